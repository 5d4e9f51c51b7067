package board

import (
	"context"
	"slices"
	"testing"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

func TestExtractMentions(t *testing.T) {
	t.Parallel()
	members := []model.User{
		{ID: "alice", Email: "alice@example.com", DisplayName: "Alice Liddell"},
		{ID: "bob", Email: "Bob.Builder@example.com", DisplayName: "Bob"},
		{ID: "carol", Email: "carol@example.com", DisplayName: "Carol King"},
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"email", "ping @carol@example.com please", []string{"carol"}},
		{"handle", "@bob.builder can you check", []string{"bob"}},
		{"display name", "thanks @CarolKing", []string{"carol"}},
		{"repeated", "@bob @bob.builder @BOB", []string{"bob"}},
		{"self mention dropped", "note to self @alice", nil},
		{"unknown", "@nobody here", nil},
		{"mixed", "@carol and @Bob.Builder@example.com", []string{"bob", "carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMentions(tt.text, members, "alice")
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractMentions(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPostMessageNotifiesMentions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, "alice", "Discuss", "", "")

	msg, err := f.svc.PostMessage(ctx, "alice", f.project.ID, task.ID, "@bob.builder and @dave, thoughts? cc @alice")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	bob := f.inbox(t, "bob")
	if len(bob) != 1 || bob[0].Kind != model.KindMention || bob[0].MessageID != msg.ID {
		t.Errorf("bob's inbox = %+v", bob)
	}
	if len(f.inbox(t, "dave")) != 0 {
		t.Error("non-members are never notified")
	}
	if len(f.inbox(t, "alice")) != 0 {
		t.Error("the author is never notified")
	}

	msgs, err := f.svc.Messages(ctx, "carol", f.project.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != msg.Text {
		t.Errorf("messages = %+v", msgs)
	}
	if _, err := f.svc.PostMessage(ctx, "dave", f.project.ID, task.ID, "hi"); !store.IsPermissionDenied(err) {
		t.Errorf("non-member post: got %v", err)
	}
}

func TestOrderBetween(t *testing.T) {
	t.Parallel()
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		prev, next *float64
		want       float64
		ok         bool
	}{
		{"empty column", nil, nil, 1, true},
		{"top", nil, f(3), 2, true},
		{"bottom", f(3), nil, 4, true},
		{"between", f(1), f(2), 1.5, true},
		{"collapsed", f(1), f(1 + minOrderGap), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OrderBetween(tt.prev, tt.next)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("OrderBetween = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	t.Parallel()
	cols := Columns([]model.Task{
		{ID: "b", Status: "todo", Order: 2},
		{ID: "a", Status: model.StatusBacklog, Order: 1},
		{ID: "c", Status: "in_progress", Order: 1},
	})
	if len(cols) != len(model.Columns) {
		t.Fatalf("got %d columns", len(cols))
	}
	if got := taskIDs(cols[0].Tasks); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("backlog = %v", got)
	}
	if got := taskIDs(cols[2].Tasks); !slices.Equal(got, []string{"c"}) {
		t.Errorf("develop = %v", got)
	}
	if cols[4].Tasks == nil {
		t.Error("empty columns should be non-nil")
	}
}
