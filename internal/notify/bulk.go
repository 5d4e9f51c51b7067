package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// MarkAllRead sets read on every unread notification addressed to
// recipientID and returns how many were updated. A notification deleted
// between discovery and commit aborts only its own batch; the remaining
// unread set is then discovered and committed once more.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	if recipientID == "" {
		return 0, nil
	}
	n, err := s.markUnread(ctx, recipientID)
	if store.IsNotFound(err) {
		log.Printf("[notify] notification of %s vanished while marking read, retrying: %v", recipientID, err)
		var more int
		more, err = s.markUnread(ctx, recipientID)
		n += more
	}
	if err != nil {
		return n, fmt.Errorf("marking all read for %s: %w", recipientID, err)
	}
	return n, nil
}

// markUnread discovers the unread set and commits it, returning how many
// writes were applied before any failure.
func (s *Service) markUnread(ctx context.Context, recipientID string) (int, error) {
	list, err := s.discover(ctx, recipientID, true)
	if err != nil {
		return 0, err
	}

	ops := make([]store.BatchOp, 0, len(list))
	for _, n := range list {
		ops = append(ops, store.BatchOp{Kind: store.BatchSetRead, Ref: n.Ref(), Read: true})
	}
	return s.commitChunked(ctx, ops)
}

// DeleteAllMine deletes every notification addressed to recipientID and
// returns how many were removed.
func (s *Service) DeleteAllMine(ctx context.Context, recipientID string) (int, error) {
	if recipientID == "" {
		return 0, nil
	}
	list, err := s.discover(ctx, recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("clearing inbox of %s: %w", recipientID, err)
	}

	ops := make([]store.BatchOp, 0, len(list))
	for _, n := range list {
		ops = append(ops, store.BatchOp{Kind: store.BatchDelete, Ref: n.Ref()})
	}
	n, err := s.commitChunked(ctx, ops)
	if err != nil {
		return n, fmt.Errorf("clearing inbox of %s: %w", recipientID, err)
	}
	return n, nil
}

// MarkOne sets read on a single notification. Only its recipient may
// mark it.
func (s *Service) MarkOne(ctx context.Context, recipientID string, n model.Notification) error {
	const op = "marking notification"
	if recipientID == "" {
		return store.Errorf(op, store.CodeInvalidArgument, "recipient is required")
	}
	if n.RecipientID != recipientID {
		return store.Errorf(op, store.CodePermissionDenied,
			"notification %s is not addressed to %s", n.ID, recipientID)
	}
	return s.store.SetNotificationRead(ctx, n.Ref(), true)
}

// MarkRef marks the notification at ref after checking it belongs to
// recipientID.
func (s *Service) MarkRef(ctx context.Context, recipientID string, ref model.NotificationRef) error {
	list, err := s.store.QueryNotifications(ctx, store.NotificationFilter{
		RecipientID: recipientID,
		ProjectID:   ref.ProjectID,
	})
	if err != nil {
		return fmt.Errorf("looking up notification %s: %w", ref.ID, err)
	}
	for _, n := range list {
		if n.ID == ref.ID {
			return s.MarkOne(ctx, recipientID, n)
		}
	}
	return store.Errorf("marking notification", store.CodeNotFound,
		"notification %s not found", ref.ID)
}

// ListMine returns every notification addressed to recipientID, newest
// first.
func (s *Service) ListMine(ctx context.Context, recipientID string) ([]model.Notification, error) {
	if recipientID == "" {
		return nil, nil
	}
	list, err := s.discover(ctx, recipientID, false)
	if err != nil {
		return nil, fmt.Errorf("listing inbox of %s: %w", recipientID, err)
	}
	model.SortNewestFirst(list)
	return list, nil
}

// discover finds the recipient's notifications with the cross-project
// query, falling back to one query per member project when it fails.
func (s *Service) discover(
	ctx context.Context,
	recipientID string,
	unreadOnly bool,
) ([]model.Notification, error) {
	list, err := s.store.QueryNotifications(ctx, store.NotificationFilter{
		RecipientID: recipientID,
		UnreadOnly:  unreadOnly,
	})
	if err == nil {
		return list, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Printf("[notify] cross-project query for %s failed, querying per project: %v", recipientID, err)

	projects, err := s.store.ProjectsForMember(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	var all []model.Notification
	for _, p := range projects {
		list, err := s.store.QueryNotifications(ctx, store.NotificationFilter{
			RecipientID: recipientID,
			ProjectID:   p.ID,
			UnreadOnly:  unreadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("querying project %s: %w", p.ID, err)
		}
		all = append(all, list...)
	}
	return all, nil
}

// commitChunked commits ops in batches of at most s.batchSize and returns
// how many writes were applied. Batches already committed stay applied
// when a later one fails.
func (s *Service) commitChunked(ctx context.Context, ops []store.BatchOp) (int, error) {
	done := 0
	for start := 0; start < len(ops); start += s.batchSize {
		end := min(start+s.batchSize, len(ops))
		if err := s.store.CommitBatch(ctx, ops[start:end]); err != nil {
			return done, fmt.Errorf("committing batch %d-%d of %d: %w", start, end, len(ops), err)
		}
		done = end
	}
	return done, nil
}
