package model

import (
	"slices"
	"strings"
	"time"
)

// Kind identifies the event that produced a notification.
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindMention    Kind = "mention"
	KindStatus     Kind = "status"
	KindPriority   Kind = "priority"
)

// keyPrefix returns the short prefix used in composite notification ids.
func (k Kind) keyPrefix() string {
	switch k {
	case KindAssignment:
		return "a"
	case KindMention:
		return "m"
	case KindStatus:
		return "s"
	case KindPriority:
		return "p"
	default:
		return string(k)
	}
}

// NotificationID builds the deterministic document id for the
// (kind, task, recipient) tuple. At most one notification exists per id.
func NotificationID(kind Kind, taskID, recipientID string) string {
	return kind.keyPrefix() + "__" + taskID + "__" + recipientID
}

// NotificationRef locates a notification document inside its project.
type NotificationRef struct {
	ProjectID string `json:"project_id"`
	ID        string `json:"id"`
}

// Notification is an inbox entry addressed to a single recipient about
// activity on a task.
type Notification struct {
	// ID is the composite key built by NotificationID.
	ID string `json:"id" db:"id" bson:"id"`

	// ProjectID is the project that owns the task and the notification.
	ProjectID string `json:"project_id" db:"project_id" bson:"project_id"`

	Kind Kind `json:"kind" db:"kind" bson:"kind"`

	// TaskID links this notification to the originating task.
	TaskID string `json:"task_id" db:"task_id" bson:"task_id"`

	// RecipientID is the user the notification is for.
	RecipientID string `json:"recipient_id" db:"recipient_id" bson:"recipient_id"`

	// ActorID is the user who caused the event.
	ActorID string `json:"actor_id" db:"actor_id" bson:"actor_id"`

	// MessageID is set for mentions when the chat message is known.
	MessageID string `json:"message_id,omitempty" db:"message_id" bson:"message_id,omitempty"`

	OldStatus   string `json:"old_status,omitempty" db:"old_status" bson:"old_status,omitempty"`
	NewStatus   string `json:"new_status,omitempty" db:"new_status" bson:"new_status,omitempty"`
	OldPriority string `json:"old_priority,omitempty" db:"old_priority" bson:"old_priority,omitempty"`
	NewPriority string `json:"new_priority,omitempty" db:"new_priority" bson:"new_priority,omitempty"`

	// Read indicates whether the recipient has seen this notification.
	Read bool `json:"read" db:"read" bson:"read"`

	// CreatedAt is assigned by the store on every upsert. The zero value
	// means the timestamp has not been resolved yet.
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// Ref returns the location of n.
func (n Notification) Ref() NotificationRef {
	return NotificationRef{ProjectID: n.ProjectID, ID: n.ID}
}

// CountUnread returns how many notifications in list have not been read.
func CountUnread(list []Notification) int {
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return unread
}

// SortNewestFirst orders list by CreatedAt descending in place. Entries
// with an unresolved timestamp sort last; ties fall back to project and id
// so the order is stable across snapshots.
func SortNewestFirst(list []Notification) {
	slices.SortFunc(list, func(a, b Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(a.ProjectID, b.ProjectID); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Summary describes what happened, from the recipient's point of view.
func (n Notification) Summary() string {
	switch n.Kind {
	case KindAssignment:
		return "assigned you a task"
	case KindMention:
		return "mentioned you in a task chat"
	case KindStatus:
		return "moved a task from " + n.OldStatus + " to " + n.NewStatus
	case KindPriority:
		return "changed task priority from " + n.OldPriority + " to " + n.NewPriority
	default:
		return "updated a task"
	}
}
