package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"taskdeck/internal/model"
)

// DigestService builds human-readable summaries of upcoming work from a
// fetched task collection.
type DigestService struct{}

func NewDigestService() *DigestService {
	return &DigestService{}
}

// DueDigest returns a summary of open tasks that are overdue or due within
// 48 hours. It returns "" when nothing needs attention.
func (s *DigestService) DueDigest(tasks []model.Task, now time.Time) string {
	var overdue []model.Task
	var dueSoon []model.Task

	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			continue
		}
		due, ok := ParseDueDate(task.DueDate)
		if !ok {
			continue
		}
		switch {
		case now.After(due):
			overdue = append(overdue, task)
		case due.Sub(now) <= 48*time.Hour:
			dueSoon = append(dueSoon, task)
		}
	}

	if len(overdue) == 0 && len(dueSoon) == 0 {
		return ""
	}

	sortByDue(overdue)
	sortByDue(dueSoon)

	var builder strings.Builder
	builder.WriteString("📋 <b>Task digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Overdue</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatDigestLine(task))
		}
	}

	if len(dueSoon) > 0 {
		builder.WriteString("\n⏳ <b>Due within 48h</b>\n")
		for _, task := range dueSoon {
			builder.WriteString(formatDigestLine(task))
		}
	}

	return strings.TrimSpace(builder.String())
}

// ParseDueDate decodes the API's due-date string, which arrives either as a
// bare date or as an RFC 3339 timestamp.
func ParseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func sortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, _ := ParseDueDate(tasks[i].DueDate)
		b, _ := ParseDueDate(tasks[j].DueDate)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func formatDigestLine(task model.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("• %s", html.EscapeString(strings.TrimSpace(task.Title))))
	if due, ok := ParseDueDate(task.DueDate); ok {
		sb.WriteString(fmt.Sprintf(" — %s", due.Format("2006-01-02")))
	}
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" ❗")
	}
	sb.WriteByte('\n')
	return sb.String()
}
