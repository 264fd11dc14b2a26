// Package task defines the task resource, its typed query parameters,
// and the PostgreSQL-backed store.
package task

import "time"

// Status represents the lifecycle state of a task.
type Status string

// Task statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid returns true if the status is one of the enumerated values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority represents the urgency of a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid returns true if the priority is one of the enumerated values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single task record. The id and timestamps are assigned by
// the data store.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateParams holds the validated input for creating a task. Zero
// values for Status and Priority are filled with the enum defaults by
// the store.
type CreateParams struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
}

// UpdateParams holds the validated input for a partial update. Nil
// fields are left unchanged.
type UpdateParams struct {
	Title    *string
	Status   *Status
	Priority *Priority
	DueDate  *time.Time
}

// Empty returns true if no field is set.
func (p UpdateParams) Empty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil
}

// StatusCounts holds per-status task totals for the stats endpoint.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}
