// Package notify writes inbox notifications for task events and runs bulk
// mutations over a recipient's inbox.
package notify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// DefaultBatchSize is the number of writes per committed batch. It stays
// below store.MaxBatchWrites to leave headroom.
const DefaultBatchSize = 400

// maxConcurrentWrites bounds the upserts in flight for one fan-out.
const maxConcurrentWrites = 16

// Store is the part of the backend the service needs.
type Store interface {
	store.NotificationStore
	store.MembershipStore
}

// Service produces notifications and mutates inboxes in bulk.
type Service struct {
	store     Store
	batchSize int
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the number of writes per batch, clamped to
// [1, store.MaxBatchWrites].
func WithBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = min(max(n, 1), store.MaxBatchWrites)
	}
}

// NewService creates a Service on top of s.
func NewService(s Store, opts ...Option) *Service {
	svc := &Service{store: s, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// BatchSize returns the configured number of writes per batch.
func (s *Service) BatchSize() int {
	return s.batchSize
}

// Assignment is a task being assigned to a user.
type Assignment struct {
	ProjectID   string
	TaskID      string
	RecipientID string
	ActorID     string
}

// Mentions is a chat message mentioning users.
type Mentions struct {
	ProjectID    string
	TaskID       string
	RecipientIDs []string
	ActorID      string
	MessageID    string
}

// StatusChange is a task moving between columns.
type StatusChange struct {
	ProjectID    string
	TaskID       string
	Old, New     model.Status
	RecipientIDs []string
	ActorID      string
}

// PriorityChange is a task changing priority.
type PriorityChange struct {
	ProjectID    string
	TaskID       string
	Old, New     model.Priority
	RecipientIDs []string
	ActorID      string
}

// NotifyAssignment upserts the assignment notification for e. It does
// nothing when any field is empty.
func (s *Service) NotifyAssignment(ctx context.Context, e Assignment) error {
	if e.ProjectID == "" || e.TaskID == "" || e.RecipientID == "" || e.ActorID == "" {
		return nil
	}
	return s.store.UpsertNotification(ctx, model.Notification{
		ID:          model.NotificationID(model.KindAssignment, e.TaskID, e.RecipientID),
		ProjectID:   e.ProjectID,
		Kind:        model.KindAssignment,
		TaskID:      e.TaskID,
		RecipientID: e.RecipientID,
		ActorID:     e.ActorID,
	})
}

// NotifyMentions upserts one mention notification per distinct recipient.
func (s *Service) NotifyMentions(ctx context.Context, e Mentions) error {
	if e.ProjectID == "" || e.TaskID == "" {
		return nil
	}
	return s.fanOut(ctx, e.RecipientIDs, func(rid string) model.Notification {
		return model.Notification{
			ID:          model.NotificationID(model.KindMention, e.TaskID, rid),
			ProjectID:   e.ProjectID,
			Kind:        model.KindMention,
			TaskID:      e.TaskID,
			RecipientID: rid,
			ActorID:     e.ActorID,
			MessageID:   e.MessageID,
		}
	})
}

// NotifyStatusChange upserts one status notification per distinct
// recipient. It does nothing when the status did not change.
func (s *Service) NotifyStatusChange(ctx context.Context, e StatusChange) error {
	if e.Old == e.New || e.ProjectID == "" || e.TaskID == "" {
		return nil
	}
	return s.fanOut(ctx, e.RecipientIDs, func(rid string) model.Notification {
		return model.Notification{
			ID:          model.NotificationID(model.KindStatus, e.TaskID, rid),
			ProjectID:   e.ProjectID,
			Kind:        model.KindStatus,
			TaskID:      e.TaskID,
			RecipientID: rid,
			ActorID:     e.ActorID,
			OldStatus:   string(e.Old),
			NewStatus:   string(e.New),
		}
	})
}

// NotifyPriorityChange upserts one priority notification per distinct
// recipient. It does nothing when the priority did not change.
func (s *Service) NotifyPriorityChange(ctx context.Context, e PriorityChange) error {
	if e.Old == e.New || e.ProjectID == "" || e.TaskID == "" {
		return nil
	}
	return s.fanOut(ctx, e.RecipientIDs, func(rid string) model.Notification {
		return model.Notification{
			ID:          model.NotificationID(model.KindPriority, e.TaskID, rid),
			ProjectID:   e.ProjectID,
			Kind:        model.KindPriority,
			TaskID:      e.TaskID,
			RecipientID: rid,
			ActorID:     e.ActorID,
			OldPriority: string(e.Old),
			NewPriority: string(e.New),
		}
	})
}

// fanOut upserts build(rid) for every distinct recipient concurrently and
// returns the first error once all writes have finished.
func (s *Service) fanOut(
	ctx context.Context,
	recipientIDs []string,
	build func(rid string) model.Notification,
) error {
	var g errgroup.Group
	g.SetLimit(maxConcurrentWrites)
	for _, rid := range uniqueRecipients(recipientIDs) {
		n := build(rid)
		g.Go(func() error {
			return s.store.UpsertNotification(ctx, n)
		})
	}
	return g.Wait()
}

// uniqueRecipients drops empty and repeated ids, keeping first-seen order.
func uniqueRecipients(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
