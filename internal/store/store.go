package store

import (
	"context"

	"github.com/nhle/taskboard/internal/model"
)

// MaxBatchWrites is the hard per-batch write ceiling of the backend.
const MaxBatchWrites = 500

// Unsubscribe detaches a live query. It is safe to call more than once.
type Unsubscribe func()

// NotificationFilter selects the notifications addressed to one recipient.
type NotificationFilter struct {
	RecipientID string

	// ProjectID scopes the query to one project. Empty means every project
	// (the cross-collection scope).
	ProjectID string

	// UnreadOnly restricts the result to read=false.
	UnreadOnly bool
}

// Grouped reports whether the filter spans every project.
func (f NotificationFilter) Grouped() bool {
	return f.ProjectID == ""
}

// BatchOpKind is the kind of write inside a batch.
type BatchOpKind int

const (
	BatchSetRead BatchOpKind = iota
	BatchDelete
)

// BatchOp is one write in an atomic batch.
type BatchOp struct {
	Kind BatchOpKind
	Ref  model.NotificationRef
	Read bool
}

// NotificationStore is the document store surface used by the
// notification writer, the bulk mutators and the inbox watcher.
type NotificationStore interface {
	// UpsertNotification creates n or merges it into the existing document
	// with the same ref. Read is reset to false and CreatedAt is set by
	// the store clock.
	UpsertNotification(ctx context.Context, n model.Notification) error

	SetNotificationRead(ctx context.Context, ref model.NotificationRef, read bool) error
	DeleteNotification(ctx context.Context, ref model.NotificationRef) error

	QueryNotifications(ctx context.Context, f NotificationFilter) ([]model.Notification, error)

	// WatchNotifications delivers the full result of f once, then again
	// after every change that may affect it. Errors are delivered to
	// onError and end the subscription.
	WatchNotifications(
		f NotificationFilter,
		onChange func([]model.Notification),
		onError func(error),
	) Unsubscribe

	// CommitBatch applies ops atomically. More than MaxBatchWrites ops is
	// rejected with CodeInvalidArgument.
	CommitBatch(ctx context.Context, ops []BatchOp) error
}

// MembershipStore answers which projects a user belongs to.
type MembershipStore interface {
	ProjectsForMember(ctx context.Context, uid string) ([]model.Project, error)
	WatchProjectsForMember(
		uid string,
		onChange func([]model.Project),
		onError func(error),
	) Unsubscribe
}

// ProjectStore persists projects and their member lists.
type ProjectStore interface {
	MembershipStore

	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error
	AddMember(ctx context.Context, projectID, uid string) error
	RemoveMember(ctx context.Context, projectID, uid string) error
	SetOwner(ctx context.Context, projectID, uid string) error
}

// TaskStore persists board cards.
type TaskStore interface {
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	GetTask(ctx context.Context, projectID, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, projectID, id string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, projectID, id string) error
	ListTasks(ctx context.Context, projectID string) ([]model.Task, error)
	WatchTasks(
		projectID string,
		onChange func([]model.Task),
		onError func(error),
	) Unsubscribe
}

// MessageStore persists task chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, m model.Message) (model.Message, error)
	ListMessages(ctx context.Context, projectID, taskID string) ([]model.Message, error)
}

// UserStore persists user profiles.
type UserStore interface {
	UpsertUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Store is the complete document store used by the application.
type Store interface {
	NotificationStore
	ProjectStore
	TaskStore
	MessageStore
	UserStore

	Close() error
}
