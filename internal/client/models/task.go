package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/kumo/internal/common"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a row of the tasks table.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask is the insert payload for tasks.
type NewTask struct {
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// Normalize trims text fields, turns a blank description into NULL, defaults
// the priority to medium and validates the result.
func (n NewTask) Normalize() (NewTask, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Description != nil {
		n.Description = blankToNil(*n.Description)
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}

	if n.UserID == "" {
		return n, fmt.Errorf("%w: task owner is required", common.ErrValidation)
	}
	if n.Title == "" {
		return n, fmt.Errorf("%w: task title is required", common.ErrValidation)
	}
	if !n.Priority.Valid() {
		return n, fmt.Errorf("%w: unknown priority %q", common.ErrValidation, n.Priority)
	}
	return n, nil
}

// TaskPatch is a partial task update. Nil fields are left unchanged; the
// Clear* flags write NULL.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Completed        *bool
	Priority         *Priority
	DueDate          *time.Time
	ClearDueDate     bool
}

// Columns validates the patch and returns it as column → value.
func (p TaskPatch) Columns() (map[string]any, error) {
	cols := make(map[string]any)

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title is required", common.ErrValidation)
		}
		cols["title"] = title
	}
	switch {
	case p.ClearDescription:
		cols["description"] = nil
	case p.Description != nil:
		cols["description"] = blankToNil(*p.Description)
	}
	if p.Completed != nil {
		cols["completed"] = *p.Completed
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", common.ErrValidation, *p.Priority)
		}
		cols["priority"] = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		cols["due_date"] = nil
	case p.DueDate != nil:
		cols["due_date"] = p.DueDate.UTC()
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: empty task update", common.ErrValidation)
	}
	return cols, nil
}

// BoolPtr is a small helper for building patches.
func BoolPtr(b bool) *bool { return &b }
