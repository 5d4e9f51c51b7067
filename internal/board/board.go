// Package board implements the project board: membership, task changes
// with their notification side effects, drag and drop ordering and task
// chat.
package board

import (
	"context"
	"log"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/internal/store"
)

// Notifier receives the events produced by board changes.
type Notifier interface {
	NotifyAssignment(ctx context.Context, e notify.Assignment) error
	NotifyMentions(ctx context.Context, e notify.Mentions) error
	NotifyStatusChange(ctx context.Context, e notify.StatusChange) error
	NotifyPriorityChange(ctx context.Context, e notify.PriorityChange) error
}

// Service applies board operations on behalf of an acting user.
type Service struct {
	store    store.Store
	notifier Notifier
}

// NewService creates a Service.
func NewService(s store.Store, n Notifier) *Service {
	return &Service{store: s, notifier: n}
}

// View is a project with its tasks grouped by column.
type View struct {
	Project model.Project `json:"project"`
	Columns []Column      `json:"columns"`
}

// Board returns the project and its columns. Only members may read it.
func (s *Service) Board(ctx context.Context, actor, projectID string) (*View, error) {
	p, err := s.memberProject(ctx, "reading board", actor, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &View{Project: *p, Columns: Columns(tasks)}, nil
}

// WatchBoard checks that actor belongs to the project, then calls onChange
// with the project's columns on every task change until the returned
// function is called.
func (s *Service) WatchBoard(
	ctx context.Context,
	actor, projectID string,
	onChange func([]Column),
	onError func(error),
) (store.Unsubscribe, error) {
	if _, err := s.memberProject(ctx, "watching board", actor, projectID); err != nil {
		return nil, err
	}
	return s.store.WatchTasks(projectID, func(tasks []model.Task) {
		onChange(Columns(tasks))
	}, onError), nil
}

// memberProject loads the project and checks that actor belongs to it.
func (s *Service) memberProject(ctx context.Context, op, actor, projectID string) (*model.Project, error) {
	if actor == "" {
		return nil, store.Errorf(op, store.CodeUnauthenticated, "no acting user")
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.HasMember(actor) {
		return nil, store.Errorf(op, store.CodePermissionDenied,
			"%s is not a member of project %s", actor, projectID)
	}
	return p, nil
}

// ownedProject loads the project and checks that actor owns it.
func (s *Service) ownedProject(ctx context.Context, op, actor, projectID string) (*model.Project, error) {
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return nil, err
	}
	if p.Owner != actor {
		return nil, store.Errorf(op, store.CodePermissionDenied,
			"only the owner of project %s can do this", projectID)
	}
	return p, nil
}

// recipients returns the owner and the assignee, minus the actor.
func recipients(p *model.Project, assignee, actor string) []string {
	var out []string
	for _, uid := range []string{p.Owner, assignee} {
		if uid == "" || uid == actor {
			continue
		}
		if len(out) == 1 && out[0] == uid {
			continue
		}
		out = append(out, uid)
	}
	return out
}

// sideEffect logs a failed notification. Notifications never fail the
// change that caused them.
func sideEffect(what string, err error) {
	if err != nil {
		log.Printf("[board] %s notification failed: %v", what, err)
	}
}
