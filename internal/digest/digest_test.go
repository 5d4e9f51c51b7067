package digest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/tests/testutil"
)

func TestBuildAndRender(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	for _, u := range []model.User{
		{ID: "alice", Email: "alice@example.com", DisplayName: "Alice"},
		{ID: "bob", Email: "bob@example.com", DisplayName: "Bob Builder"},
	} {
		if err := s.UpsertUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	n := notify.NewService(s)
	b := board.NewService(s, n)
	p, err := b.CreateProject(ctx, "alice", "Launch")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddMemberByEmail(ctx, "alice", p.ID, "bob@example.com"); err != nil {
		t.Fatal(err)
	}
	kept, err := b.CreateTask(ctx, "alice", p.ID, model.Task{Title: "Write docs", Assignee: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	gone, err := b.CreateTask(ctx, "alice", p.ID, model.Task{Title: "Old idea", Assignee: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTask(ctx, p.ID, gone.ID); err != nil {
		t.Fatal(err)
	}

	builder := NewBuilder(n, s, "digest@example.com")
	builder.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }

	msg, err := builder.Build(ctx, "bob")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if msg == nil || len(msg.Entries) != 2 {
		t.Fatalf("digest = %+v", msg)
	}
	if msg.Entries[0].Task != gone.ID {
		t.Errorf("deleted task should fall back to its id, got %q", msg.Entries[0].Task)
	}
	if msg.Entries[1].Task != kept.Title || msg.Entries[1].Actor != "Alice" || msg.Entries[1].Project != "Launch" {
		t.Errorf("entry = %+v", msg.Entries[1])
	}

	var buf bytes.Buffer
	if err := Render(&buf, msg); err != nil {
		t.Fatalf("Render: %v", err)
	}

	mr, err := mail.CreateReader(&buf)
	if err != nil {
		t.Fatalf("parsing digest: %v", err)
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil || subject != "2 unread notifications" {
		t.Errorf("subject = %q, %v", subject, err)
	}
	to, err := mr.Header.AddressList("To")
	if err != nil || len(to) != 1 || to[0].Address != "bob@example.com" {
		t.Errorf("to = %v, %v", to, err)
	}
	if id, err := mr.Header.MessageID(); err != nil || id == "" {
		t.Errorf("message id = %q, %v", id, err)
	}

	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	raw, err := io.ReadAll(part.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	for _, want := range []string{
		"Hi Bob Builder,",
		"- [Launch] Alice assigned you a task: Write docs",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildNothingUnread(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	if err := s.UpsertUser(ctx, model.User{ID: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatal(err)
	}
	n := notify.NewService(s)

	msg, err := NewBuilder(n, s, "digest@example.com").Build(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if msg != nil {
		t.Errorf("expected no digest, got %+v", msg)
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()
	one := Message{Entries: make([]Entry, 1)}
	if got := one.Subject(); got != "1 unread notification" {
		t.Errorf("Subject() = %q", got)
	}
}
