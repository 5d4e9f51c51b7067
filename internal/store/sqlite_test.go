package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// newTestStore opens an in-memory store with a deterministic clock that
// advances one second per call.
func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}

	s, err := NewSQLiteStore(":memory:", append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

func seedProject(t *testing.T, s *SQLiteStore, name, owner string, members ...string) model.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), model.Project{
		Name: name, Owner: owner, Members: members,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func assignment(projectID, taskID, recipient string) model.Notification {
	return model.Notification{
		ID:          model.NotificationID(model.KindAssignment, taskID, recipient),
		ProjectID:   projectID,
		Kind:        model.KindAssignment,
		TaskID:      taskID,
		RecipientID: recipient,
		ActorID:     "actor",
	}
}

func TestUpsertNotificationIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := assignment("p1", "t1", "bob")
	if err := s.UpsertNotification(ctx, n); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.SetNotificationRead(ctx, n.Ref(), true); err != nil {
		t.Fatalf("SetNotificationRead: %v", err)
	}
	first, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if err != nil {
		t.Fatalf("QueryNotifications: %v", err)
	}

	n.ActorID = "carol"
	if err := s.UpsertNotification(ctx, n); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	list, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if err != nil {
		t.Fatalf("QueryNotifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	got := list[0]
	if got.Read {
		t.Error("re-notify should reset read to false")
	}
	if got.ActorID != "carol" {
		t.Errorf("ActorID = %q, want carol", got.ActorID)
	}
	if !got.CreatedAt.After(first[0].CreatedAt) {
		t.Errorf("CreatedAt %v should be after %v", got.CreatedAt, first[0].CreatedAt)
	}
}

func TestUpsertNotificationRequiresKey(t *testing.T) {
	s := newTestStore(t)
	err := s.UpsertNotification(context.Background(), model.Notification{ID: "x"})
	if CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeInvalidArgument)
	}
}

func TestSameIDInDifferentProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, pid := range []string{"p1", "p2"} {
		if err := s.UpsertNotification(ctx, assignment(pid, "t1", "bob")); err != nil {
			t.Fatalf("upsert in %s: %v", pid, err)
		}
	}

	list, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if err != nil {
		t.Fatalf("QueryNotifications: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notifications, want 2", len(list))
	}
	if list[0].ProjectID != "p2" {
		t.Errorf("newest first: got %s, want p2", list[0].ProjectID)
	}
}

func TestQueryNotificationsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.UpsertNotification(ctx, assignment("p1", fmt.Sprintf("t%d", i), "bob")); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.UpsertNotification(ctx, assignment("p2", "t9", "bob")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertNotification(ctx, assignment("p1", "t0", "carol")); err != nil {
		t.Fatal(err)
	}
	if err := s.SetNotificationRead(ctx, model.NotificationRef{
		ProjectID: "p1", ID: model.NotificationID(model.KindAssignment, "t1", "bob"),
	}, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter NotificationFilter
		want   int
	}{
		{"all projects", NotificationFilter{RecipientID: "bob"}, 4},
		{"one project", NotificationFilter{RecipientID: "bob", ProjectID: "p1"}, 3},
		{"unread", NotificationFilter{RecipientID: "bob", UnreadOnly: true}, 3},
		{"unread in project", NotificationFilter{RecipientID: "bob", ProjectID: "p1", UnreadOnly: true}, 2},
		{"other recipient", NotificationFilter{RecipientID: "carol"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.QueryNotifications(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryNotifications: %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("got %d, want %d", len(list), tt.want)
			}
		})
	}
}

func TestWithoutGroupQueries(t *testing.T) {
	s := newTestStore(t, WithoutGroupQueries())
	ctx := context.Background()

	_, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if CodeOf(err) != CodeFailedPrecondition {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeFailedPrecondition)
	}

	if _, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob", ProjectID: "p1"}); err != nil {
		t.Fatalf("project-scoped query should work: %v", err)
	}
}

func TestSetNotificationReadMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.SetNotificationRead(context.Background(),
		model.NotificationRef{ProjectID: "p1", ID: "nope"}, true)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDeleteNotificationMissingIsOK(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteNotification(context.Background(),
		model.NotificationRef{ProjectID: "p1", ID: "nope"})
	if err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}
}

func TestCommitBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := assignment("p1", "t1", "bob")
	b := assignment("p1", "t2", "bob")
	for _, n := range []model.Notification{a, b} {
		if err := s.UpsertNotification(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	err := s.CommitBatch(ctx, []BatchOp{
		{Kind: BatchSetRead, Ref: a.Ref(), Read: true},
		{Kind: BatchDelete, Ref: b.Ref()},
	})
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	list, err := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != a.ID || !list[0].Read {
		t.Fatalf("unexpected state after batch: %+v", list)
	}
}

func TestCommitBatchRollsBackOnMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := assignment("p1", "t1", "bob")
	if err := s.UpsertNotification(ctx, a); err != nil {
		t.Fatal(err)
	}

	err := s.CommitBatch(ctx, []BatchOp{
		{Kind: BatchSetRead, Ref: a.Ref(), Read: true},
		{Kind: BatchSetRead, Ref: model.NotificationRef{ProjectID: "p1", ID: "gone"}, Read: true},
	})
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}

	list, _ := s.QueryNotifications(ctx, NotificationFilter{RecipientID: "bob"})
	if len(list) != 1 || list[0].Read {
		t.Fatal("failed batch must not apply any write")
	}
}

func TestCommitBatchCeiling(t *testing.T) {
	s := newTestStore(t)

	ops := make([]BatchOp, MaxBatchWrites+1)
	for i := range ops {
		ops[i] = BatchOp{Kind: BatchDelete, Ref: model.NotificationRef{ProjectID: "p1", ID: fmt.Sprint(i)}}
	}
	err := s.CommitBatch(context.Background(), ops)
	if CodeOf(err) != CodeInvalidArgument {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeInvalidArgument)
	}

	if err := s.CommitBatch(context.Background(), ops[:MaxBatchWrites]); err != nil {
		t.Fatalf("batch at the ceiling should succeed: %v", err)
	}
	if err := s.CommitBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestWatchNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshots := make(chan []model.Notification, 16)
	unsubscribe := s.WatchNotifications(
		NotificationFilter{RecipientID: "bob"},
		func(list []model.Notification) { snapshots <- list },
		func(err error) { t.Errorf("unexpected watch error: %v", err) },
	)

	if got := receive(t, snapshots); len(got) != 0 {
		t.Fatalf("initial snapshot has %d entries, want 0", len(got))
	}

	if err := s.UpsertNotification(ctx, assignment("p1", "t1", "bob")); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, snapshots); len(got) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(got))
	}

	unsubscribe()
	unsubscribe()
	waitFor(t, func() bool { return s.feed.size() == 0 })
}

func TestWatchNotificationsReportsError(t *testing.T) {
	s := newTestStore(t, WithoutGroupQueries())

	errs := make(chan error, 1)
	unsubscribe := s.WatchNotifications(
		NotificationFilter{RecipientID: "bob"},
		func([]model.Notification) { t.Error("no snapshot expected") },
		func(err error) { errs <- err },
	)
	defer unsubscribe()

	select {
	case err := <-errs:
		if CodeOf(err) != CodeFailedPrecondition {
			t.Fatalf("code = %q, want %q", CodeOf(err), CodeFailedPrecondition)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch error")
	}
	waitFor(t, func() bool { return s.feed.size() == 0 })
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
