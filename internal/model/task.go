package model

// Task statuses understood by the remote API.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task priorities understood by the remote API.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is the transient client-side copy of a task held while a list is
// displayed. The server owns the canonical record.
type Task struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
}

// Statuses returns the closed set of valid statuses in display order.
func Statuses() []string {
	return []string{StatusPending, StatusInProgress, StatusCompleted}
}

// Priorities returns the closed set of valid priorities in display order.
func Priorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh}
}

// ValidStatus reports whether s is one of the allowed task statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidPriority reports whether p is one of the allowed task priorities.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
