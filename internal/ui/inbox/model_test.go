package inbox

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	live "github.com/nhle/taskboard/internal/inbox"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/tests/testutil"
)

func newTestBridge(t *testing.T) (*Bridge, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, model.Project{Name: "Launch", Owner: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, p.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	svc := notify.NewService(s)
	for _, task := range []string{"t1", "t2"} {
		err := svc.NotifyAssignment(ctx, notify.Assignment{
			ProjectID: p.ID, TaskID: task, RecipientID: "bob", ActorID: "alice",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	b := NewBridge(s, svc)
	t.Cleanup(b.Stop)
	return b, s
}

// nextSnapshot runs WaitForSnapshot until cond holds.
func nextSnapshot(t *testing.T, b *Bridge, cond func(SnapshotMsg) bool) SnapshotMsg {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		ch := make(chan tea.Msg, 1)
		go func() { ch <- b.WaitForSnapshot()() }()
		select {
		case msg := <-ch:
			snap, ok := msg.(SnapshotMsg)
			if ok && cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func press(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelShowsLiveInbox(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)
	b.Start("bob")

	snap := nextSnapshot(t, b, func(m SnapshotMsg) bool { return len(m.Snapshot.Items) == 2 })

	var m tea.Model = New(b, keys.DefaultKeyMap(), 100, 20)
	m, _ = m.Update(snap)
	view := m.View()
	for _, want := range []string{"2 unread", "primary", "assigned you a task"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// Mark the selected (newest) notification.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command for mark read")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("mark read = %+v", done)
	}
	m, _ = m.Update(done)
	if !strings.Contains(m.View(), "marked as read") {
		t.Errorf("status not shown:\n%s", m.View())
	}

	snap = nextSnapshot(t, b, func(m SnapshotMsg) bool { return m.Snapshot.Unread == 1 })
	m, _ = m.Update(snap)

	_, cmd = m.Update(press('a'))
	done = cmd().(actionDoneMsg)
	if done.err != nil || done.text != "marked 1 as read" {
		t.Errorf("mark all = %+v", done)
	}
	nextSnapshot(t, b, func(m SnapshotMsg) bool { return len(m.Snapshot.Items) == 2 && m.Snapshot.Unread == 0 })
}

func TestModelClearAndEmptyState(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)
	b.Start("bob")
	snap := nextSnapshot(t, b, func(m SnapshotMsg) bool { return len(m.Snapshot.Items) == 2 })

	var m tea.Model = New(b, keys.DefaultKeyMap(), 100, 20)
	m, _ = m.Update(snap)
	_, cmd := m.Update(press('X'))
	done := cmd().(actionDoneMsg)
	if done.err != nil || done.text != "cleared 2 notifications" {
		t.Fatalf("clear = %+v", done)
	}

	snap = nextSnapshot(t, b, func(m SnapshotMsg) bool {
		return m.Snapshot.RecipientID == "bob" && len(m.Snapshot.Items) == 0
	})
	m, _ = m.Update(snap)
	if !strings.Contains(m.View(), "all caught up") {
		t.Errorf("empty state not shown:\n%s", m.View())
	}
}

func TestModelKeys(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)
	m := New(b, keys.DefaultKeyMap(), 80, 10)

	next, _ := m.Update(press('?'))
	if !next.(Model).showHelp {
		t.Error("help not toggled")
	}
	if !strings.Contains(next.View(), "mark all read") {
		t.Errorf("full help missing:\n%s", next.View())
	}

	_, cmd := m.Update(press('q'))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}

	// Nothing selected: enter is a no-op.
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("mark read with empty list returned a command")
	}
}

func TestBridgeStopReleasesWaiters(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)
	cmd := b.WaitForSnapshot()

	// Stop publishes an empty snapshot, so a waiter sees it or nil.
	b.Stop()
	done := make(chan struct{})
	go func() {
		for cmd() != nil {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForSnapshot did not return after Stop")
	}
}

func TestBridgeDropsStaleSnapshot(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)

	b.push(live.Snapshot{RecipientID: "bob", Seq: 5})
	b.push(live.Snapshot{
		RecipientID: "bob",
		Items:       []model.Notification{{ID: "stale", RecipientID: "bob"}},
		Seq:         4,
	})

	msg, ok := b.WaitForSnapshot()().(SnapshotMsg)
	if !ok || msg.Snapshot.Seq != 5 || len(msg.Snapshot.Items) != 0 {
		t.Fatalf("got %+v", msg)
	}
	select {
	case s := <-b.updates:
		t.Fatalf("stale snapshot delivered: %+v", s)
	default:
	}
}

func TestSummaryShowsChangedValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    model.Notification
		want []string
	}{
		{
			n:    model.Notification{Kind: model.KindStatus, OldStatus: "backlog", NewStatus: "testing"},
			want: []string{"moved a task from", "backlog", "testing"},
		},
		{
			n:    model.Notification{Kind: model.KindPriority, OldPriority: "low", NewPriority: "high"},
			want: []string{"changed task priority from", "low", "high"},
		},
		{
			n:    model.Notification{Kind: model.KindAssignment},
			want: []string{"assigned you a task"},
		},
	}
	for _, tt := range tests {
		got := summary(tt.n)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("summary(%s) = %q, missing %q", tt.n.Kind, got, w)
			}
		}
	}

	n := model.Notification{Kind: model.KindStatus, OldStatus: "backlog", NewStatus: "done"}
	want := "moved a task from " +
		theme.StatusStyle(model.StatusBacklog).UnsetPadding().Render("backlog") + " to " +
		theme.StatusStyle(model.StatusDone).UnsetPadding().Render("done")
	if got := summary(n); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestStatusLineUsesHelpStyle(t *testing.T) {
	t.Parallel()
	b, _ := newTestBridge(t)
	m := New(b, keys.DefaultKeyMap(), 80, 10)

	want := theme.HelpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	if got := m.statusLine(); got != want {
		t.Errorf("statusLine = %q, want %q", got, want)
	}
}

func TestRelativeTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "pending"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
		{now.Add(-21 * 24 * time.Hour), "3w ago"},
	}
	for _, tt := range tests {
		if got := relativeTime(now, tt.t); got != tt.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
