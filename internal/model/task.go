package model

import "time"

// Status is a board column.
type Status string

const (
	StatusBacklog Status = "backlog"
	StatusAnalyze Status = "analyze"
	StatusDevelop Status = "develop"
	StatusTesting Status = "testing"
	StatusDone    Status = "done"
)

// Columns lists the board columns from left to right.
var Columns = []Status{
	StatusBacklog,
	StatusAnalyze,
	StatusDevelop,
	StatusTesting,
	StatusDone,
}

// NormalizeStatus maps legacy status names onto board columns.
// Unknown values are returned unchanged.
func NormalizeStatus(s Status) Status {
	switch s {
	case "todo", "":
		return StatusBacklog
	case "in_progress":
		return StatusDevelop
	default:
		return s
	}
}

// Valid reports whether s is one of the board columns.
func (s Status) Valid() bool {
	for _, c := range Columns {
		if s == c {
			return true
		}
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "med"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a card on a project board.
type Task struct {
	ID          string   `json:"id" db:"id" bson:"_id"`
	ProjectID   string   `json:"project_id" db:"project_id" bson:"project_id"`
	Title       string   `json:"title" db:"title" bson:"title"`
	Description string   `json:"description" db:"description" bson:"description"`
	Status      Status   `json:"status" db:"status" bson:"status"`
	Priority    Priority `json:"priority" db:"priority" bson:"priority"`

	// Assignee is the user id of the assigned member, empty if unassigned.
	Assignee string `json:"assignee" db:"assignee" bson:"assignee"`

	// CreatedBy is the user id of the member who created the card.
	CreatedBy string `json:"created_by" db:"created_by" bson:"created_by"`

	// Order positions the card inside its column, ascending.
	Order float64 `json:"order" db:"sort_order" bson:"order"`

	// Locked prevents the assignee from moving the card.
	Locked bool `json:"locked" db:"locked" bson:"locked"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// TaskPatch lists the fields to change on a task. Nil fields are left as-is.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	Order       *float64  `json:"order,omitempty"`
	Locked      *bool     `json:"locked,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Assignee == nil && p.Order == nil && p.Locked == nil
}

// OnlyStatusOrPriority reports whether the patch touches nothing but the
// status and/or priority fields.
func (p TaskPatch) OnlyStatusOrPriority() bool {
	return p.Title == nil && p.Description == nil && p.Assignee == nil &&
		p.Order == nil && p.Locked == nil
}

// Apply returns a copy of t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Locked != nil {
		t.Locked = *p.Locked
	}
	return t
}
