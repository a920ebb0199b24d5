package bot

import (
	"testing"

	"taskdeck/internal/model"
)

func TestNewTaskDraftDefaults(t *testing.T) {
	draft := newTaskDraft()
	want := model.Task{Status: model.StatusPending, Priority: model.PriorityMedium}
	if draft != want {
		t.Errorf("newTaskDraft() = %+v, want %+v", draft, want)
	}
}

func TestSeedEditDraft(t *testing.T) {
	tests := []struct {
		name string
		in   model.Task
		want model.Task
	}{
		{
			name: "fetched values survive unchanged",
			in: model.Task{
				ID: "t1", Title: "Buy milk", Description: "2 liters",
				Status: "completed", DueDate: "2025-01-01", Priority: "high",
			},
			want: model.Task{
				ID: "t1", Title: "Buy milk", Description: "2 liters",
				Status: "completed", DueDate: "2025-01-01", Priority: "high",
			},
		},
		{
			name: "empty status and priority get form fallbacks",
			in:   model.Task{ID: "t2", Title: "x"},
			want: model.Task{ID: "t2", Title: "x", Status: "pending", Priority: "low"},
		},
		{
			name: "timestamp due dates are trimmed to the date",
			in:   model.Task{ID: "t3", Status: "pending", Priority: "low", DueDate: "2025-01-01T00:00:00.000Z"},
			want: model.Task{ID: "t3", Status: "pending", Priority: "low", DueDate: "2025-01-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seedEditDraft(tt.in); got != tt.want {
				t.Errorf("seedEditDraft() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRemoveTask(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Title: "one"},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three"},
	}

	got, found := removeTask(tasks, "b")
	if !found {
		t.Error("removeTask() did not report the cached row")
	}
	if len(got) != 2 {
		t.Fatalf("removeTask() left %d tasks, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("removeTask() = %+v, want rows a and c in order", got)
	}

	// Unknown id removes nothing and reports the miss so callers re-fetch.
	got, found = removeTask(tasks, "zzz")
	if found {
		t.Error("removeTask() reported an id the rows never held")
	}
	if len(got) != 3 {
		t.Errorf("removeTask() with unknown id left %d tasks, want 3", len(got))
	}

	// Empty cache, e.g. a stale button after a restart.
	if got, found := removeTask(nil, "a"); found || len(got) != 0 {
		t.Errorf("removeTask(nil) = %+v, %v; want empty, false", got, found)
	}
}

func TestEditFormKeepRoundTrip(t *testing.T) {
	fetched := model.Task{
		ID: "t1", Title: "Buy milk", Description: "2 liters",
		Status: "in-progress", DueDate: "2025-01-01T00:00:00.000Z", Priority: "high",
	}
	state := &conversationState{
		screen: screenEditTask,
		stage:  taskStageTitle,
		task:   seedEditDraft(fetched),
		editID: "t1",
	}
	seeded := state.task

	done := false
	for step := 0; step < 5; step++ {
		if done {
			t.Fatalf("form finished after %d steps, want 5", step)
		}
		_, done = advanceTaskStep(state, btnKeep)
	}
	if !done {
		t.Fatal("form did not finish after keeping all 5 fields")
	}
	if state.task != seeded {
		t.Errorf("draft after keeping every field = %+v, want %+v", state.task, seeded)
	}
}

func TestTaskStepChangesOnlyItsField(t *testing.T) {
	state := &conversationState{screen: screenNewTask, stage: taskStageTitle, task: newTaskDraft()}

	if _, done := advanceTaskStep(state, "Buy milk"); done {
		t.Fatal("form finished after the first step")
	}

	want := model.Task{Title: "Buy milk", Status: model.StatusPending, Priority: model.PriorityMedium}
	if state.task != want {
		t.Errorf("draft after title step = %+v, want %+v", state.task, want)
	}
	if state.stage != taskStageDescription {
		t.Errorf("stage = %d, want %d", state.stage, taskStageDescription)
	}
}

func TestTaskStepRejectsUnknownStatus(t *testing.T) {
	state := &conversationState{screen: screenNewTask, stage: taskStageStatus, task: newTaskDraft()}

	if _, done := advanceTaskStep(state, "bogus"); done {
		t.Fatal("form finished on invalid input")
	}
	if state.stage != taskStageStatus {
		t.Errorf("stage advanced to %d on invalid status", state.stage)
	}
	if state.task.Status != model.StatusPending {
		t.Errorf("draft status = %q, want default kept", state.task.Status)
	}
}

func TestReenterFormKeepsDraft(t *testing.T) {
	tests := []struct {
		name      string
		state     *conversationState
		wantStage int
	}{
		{
			name: "login",
			state: &conversationState{
				screen: screenLogin, stage: loginStagePassword, submitting: true,
				login: loginDraft{Email: "alice@example.com", Password: "secret"},
			},
			wantStage: loginStagePassword,
		},
		{
			name: "register",
			state: &conversationState{
				screen: screenRegister, stage: registerStagePhoto, submitting: true,
				register: registerDraft{Username: "alice", Email: "alice@example.com"},
			},
			wantStage: registerStagePhoto,
		},
		{
			name: "profile",
			state: &conversationState{
				screen: screenProfile, stage: profileStageValue, submitting: true,
				profile: profileDraft{user: model.User{Username: "alice"}, field: fieldEmail},
			},
			wantStage: profileStageValue,
		},
		{
			name: "new task",
			state: &conversationState{
				screen: screenNewTask, stage: taskStagePriority, submitting: true,
				task: model.Task{Title: "Buy milk", Status: "pending", Priority: "medium"},
			},
			wantStage: taskStagePriority,
		},
		{
			name: "edit task",
			state: &conversationState{
				screen: screenEditTask, stage: taskStagePriority, submitting: true,
				task: model.Task{ID: "t1", Title: "Buy milk", Status: "pending", Priority: "low"}, editID: "t1",
			},
			wantStage: taskStagePriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.state
			reply := reenterForm(tt.state)

			if tt.state.submitting {
				t.Error("submitting still set after re-entering the form")
			}
			if tt.state.stage != tt.wantStage {
				t.Errorf("stage = %d, want %d", tt.state.stage, tt.wantStage)
			}
			if reply.text == "" || reply.markup == nil {
				t.Error("re-entering the form produced no prompt")
			}
			if tt.state.login != before.login || tt.state.register != before.register ||
				tt.state.task != before.task || tt.state.profile != before.profile ||
				tt.state.editID != before.editID {
				t.Error("draft changed while re-entering the form")
			}
		})
	}
}

func TestProfileFieldApplyIsolation(t *testing.T) {
	base := model.User{
		Username: "alice", Email: "a@example.com", Phone: "123",
		Age: "30", Address: "Main St",
	}

	for _, f := range profileFields() {
		if f == fieldPhoto {
			continue
		}
		u := base
		f.apply(&u, "changed")

		for _, other := range profileFields() {
			if other == fieldPhoto {
				continue
			}
			want := other.value(base)
			if other == f {
				want = "changed"
			}
			if got := other.value(u); got != want {
				t.Errorf("after apply(%s): %s = %q, want %q", f.label(), other.label(), got, want)
			}
		}
	}
}

func TestProfileFieldByKey(t *testing.T) {
	for _, f := range profileFields() {
		got, ok := profileFieldByKey(f.key())
		if !ok || got != f {
			t.Errorf("profileFieldByKey(%q) = %v, %v; want %v, true", f.key(), got, ok, f)
		}
	}
	if _, ok := profileFieldByKey("nonsense"); ok {
		t.Error("profileFieldByKey accepted a key outside the closed set")
	}
}

func TestGroupByStatus(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusPending},
		{ID: "b", Status: model.StatusCompleted},
		{ID: "c", Status: "bogus"},
	}

	grouped := groupByStatus(tasks)
	if len(grouped[model.StatusPending]) != 2 {
		t.Errorf("pending group has %d tasks, want 2 (unknown statuses fold into pending)", len(grouped[model.StatusPending]))
	}
	if len(grouped[model.StatusCompleted]) != 1 {
		t.Errorf("completed group has %d tasks, want 1", len(grouped[model.StatusCompleted]))
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("short", 10); got != "short" {
		t.Errorf("shortTitle() = %q, want %q", got, "short")
	}
	if got := shortTitle("a very long title indeed", 10); got != "a very lo…" {
		t.Errorf("shortTitle() = %q, want %q", got, "a very lo…")
	}
	if got := shortTitle("line\nbreak", 20); got != "line break" {
		t.Errorf("shortTitle() = %q, want %q", got, "line break")
	}
}

func TestParseDueInput(t *testing.T) {
	if _, ok := parseDueInput("2025-11-30"); !ok {
		t.Error("parseDueInput rejected a valid date")
	}
	if _, ok := parseDueInput("30.11.2025"); ok {
		t.Error("parseDueInput accepted a wrong format")
	}
	if _, ok := parseDueInput("tomorrow"); ok {
		t.Error("parseDueInput accepted free text")
	}
}
