package service

import (
	"strings"
	"testing"
	"time"

	"taskdeck/internal/model"
)

func TestDueDigest(t *testing.T) {
	svc := NewDigestService()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tasks := []model.Task{
		{ID: "a", Title: "Pay rent", Status: model.StatusPending, DueDate: "2026-08-30", Priority: model.PriorityHigh},
		{ID: "b", Title: "Call mom", Status: model.StatusInProgress, DueDate: "2026-09-02"},
		{ID: "c", Title: "Far away", Status: model.StatusPending, DueDate: "2026-12-01"},
		{ID: "d", Title: "Already done", Status: model.StatusCompleted, DueDate: "2026-08-01"},
		{ID: "e", Title: "No date", Status: model.StatusPending},
	}

	digest := svc.DueDigest(tasks, now)
	if digest == "" {
		t.Fatal("DueDigest() returned empty, want a summary")
	}
	if !strings.Contains(digest, "Pay rent") {
		t.Error("digest missing the overdue task")
	}
	if !strings.Contains(digest, "Call mom") {
		t.Error("digest missing the soon-due task")
	}
	if strings.Contains(digest, "Far away") {
		t.Error("digest includes a task outside the 48h window")
	}
	if strings.Contains(digest, "Already done") {
		t.Error("digest includes a completed task")
	}
	if strings.Contains(digest, "No date") {
		t.Error("digest includes a task without a due date")
	}
	if !strings.Contains(digest, "❗") {
		t.Error("digest missing the high-priority marker")
	}
}

func TestDueDigestEmptyWhenNothingDue(t *testing.T) {
	svc := NewDigestService()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tasks := []model.Task{
		{ID: "a", Title: "Far away", Status: model.StatusPending, DueDate: "2026-12-01"},
		{ID: "b", Title: "Done", Status: model.StatusCompleted, DueDate: "2026-08-01"},
	}

	if digest := svc.DueDigest(tasks, now); digest != "" {
		t.Errorf("DueDigest() = %q, want empty", digest)
	}
	if digest := svc.DueDigest(nil, now); digest != "" {
		t.Errorf("DueDigest(nil) = %q, want empty", digest)
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		want string
	}{
		{"2025-01-01", true, "2025-01-01"},
		{"2025-01-01T00:00:00Z", true, "2025-01-01"},
		{"", false, ""},
		{"not a date", false, ""},
	}

	for _, tt := range tests {
		got, ok := ParseDueDate(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseDueDate(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDueDate(%q) = %s, want %s", tt.raw, got.Format("2006-01-02"), tt.want)
		}
	}
}
