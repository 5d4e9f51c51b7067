// Package digest renders the unread part of an inbox as an RFC 5322
// email.
package digest

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/taskboard/internal/model"
)

// Inbox lists the notifications of a recipient, newest first.
type Inbox interface {
	ListMine(ctx context.Context, recipientID string) ([]model.Notification, error)
}

// Directory resolves the names shown in the digest.
type Directory interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetTask(ctx context.Context, projectID, id string) (*model.Task, error)
}

// Entry is one line of the digest.
type Entry struct {
	Project      string
	Actor        string
	Task         string
	Notification model.Notification
}

// Message is a rendered-ready digest.
type Message struct {
	From    mail.Address
	To      mail.Address
	Date    time.Time
	Entries []Entry
}

// Subject returns the subject line for m.
func (m Message) Subject() string {
	if len(m.Entries) == 1 {
		return "1 unread notification"
	}
	return fmt.Sprintf("%d unread notifications", len(m.Entries))
}

// Builder assembles digests from the inbox.
type Builder struct {
	inbox Inbox
	dir   Directory
	from  string
	now   func() time.Time
}

// NewBuilder creates a Builder sending from the given address.
func NewBuilder(inbox Inbox, dir Directory, from string) *Builder {
	return &Builder{inbox: inbox, dir: dir, from: from, now: time.Now}
}

// Build collects the unread notifications of recipientID. It returns nil
// when there is nothing unread.
func (b *Builder) Build(ctx context.Context, recipientID string) (*Message, error) {
	list, err := b.inbox.ListMine(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("building digest: %w", err)
	}

	var unread []model.Notification
	for _, n := range list {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	if len(unread) == 0 {
		return nil, nil
	}

	recipient, err := b.dir.GetUser(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("looking up digest recipient %s: %w", recipientID, err)
	}

	names := newNameCache(b.dir)
	msg := &Message{
		From: mail.Address{Name: "Taskboard", Address: b.from},
		To:   mail.Address{Name: recipient.DisplayName, Address: recipient.Email},
		Date: b.now(),
	}
	for _, n := range unread {
		msg.Entries = append(msg.Entries, Entry{
			Project:      names.project(ctx, n.ProjectID),
			Actor:        names.user(ctx, n.ActorID),
			Task:         names.task(ctx, n.ProjectID, n.TaskID),
			Notification: n,
		})
	}
	return msg, nil
}

// Render writes m as a single-part text/plain email.
func Render(w io.Writer, m *Message) error {
	var h mail.Header
	h.SetDate(m.Date)
	h.SetAddressList("From", []*mail.Address{&m.From})
	h.SetAddressList("To", []*mail.Address{&m.To})
	h.SetSubject(m.Subject())
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating digest writer: %w", err)
	}
	if _, err := io.WriteString(body, renderBody(m)); err != nil {
		body.Close()
		return fmt.Errorf("writing digest body: %w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("closing digest body: %w", err)
	}
	return nil
}

func renderBody(m *Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\nYou have %s:\n\n", displayName(m.To), m.Subject())
	for _, e := range m.Entries {
		fmt.Fprintf(&sb, "- [%s] %s %s: %s", e.Project, e.Actor, e.Notification.Summary(), e.Task)
		if !e.Notification.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, " (%s)", e.Notification.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func displayName(a mail.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

// nameCache resolves ids once per digest and falls back to the raw id
// when a lookup fails, e.g. for a deleted task.
type nameCache struct {
	dir      Directory
	users    map[string]string
	projects map[string]string
	tasks    map[string]string
}

func newNameCache(dir Directory) *nameCache {
	return &nameCache{
		dir:      dir,
		users:    make(map[string]string),
		projects: make(map[string]string),
		tasks:    make(map[string]string),
	}
}

func (c *nameCache) user(ctx context.Context, id string) string {
	if name, ok := c.users[id]; ok {
		return name
	}
	name := id
	if u, err := c.dir.GetUser(ctx, id); err != nil {
		log.Printf("[digest] resolving user %s: %v", id, err)
	} else if u.DisplayName != "" {
		name = u.DisplayName
	}
	c.users[id] = name
	return name
}

func (c *nameCache) project(ctx context.Context, id string) string {
	if name, ok := c.projects[id]; ok {
		return name
	}
	name := id
	if p, err := c.dir.GetProject(ctx, id); err != nil {
		log.Printf("[digest] resolving project %s: %v", id, err)
	} else {
		name = p.Name
	}
	c.projects[id] = name
	return name
}

func (c *nameCache) task(ctx context.Context, projectID, id string) string {
	key := projectID + "/" + id
	if name, ok := c.tasks[key]; ok {
		return name
	}
	name := id
	if t, err := c.dir.GetTask(ctx, projectID, id); err != nil {
		log.Printf("[digest] resolving task %s: %v", id, err)
	} else {
		name = t.Title
	}
	c.tasks[key] = name
	return name
}
