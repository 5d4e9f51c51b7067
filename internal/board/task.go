package board

import (
	"cmp"
	"context"
	"strings"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/internal/store"
)

// CreateTask adds a card at the bottom of its column. Members only. The
// assignee, if any, must be a member and is notified unless they created
// the task themselves.
func (s *Service) CreateTask(ctx context.Context, actor, projectID string, t model.Task) (model.Task, error) {
	const op = "creating task"
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return model.Task{}, err
	}

	t.ProjectID = projectID
	t.CreatedBy = actor
	t.Title = strings.TrimSpace(t.Title)
	t.Status = model.NormalizeStatus(t.Status)
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := validate(op, p, t.Status, t.Priority, t.Assignee); err != nil {
		return model.Task{}, err
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return model.Task{}, err
	}
	t.Order = nextOrder(column(tasks, t.Status, ""))

	created, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return model.Task{}, err
	}

	if created.Assignee != "" && created.Assignee != actor {
		sideEffect("assignment", s.notifier.NotifyAssignment(ctx, notify.Assignment{
			ProjectID:   projectID,
			TaskID:      created.ID,
			RecipientID: created.Assignee,
			ActorID:     actor,
		}))
	}
	return created, nil
}

// CloneTask copies a task into the same column with a "(copy)" title.
func (s *Service) CloneTask(ctx context.Context, actor, projectID, taskID string) (model.Task, error) {
	if _, err := s.memberProject(ctx, "cloning task", actor, projectID); err != nil {
		return model.Task{}, err
	}
	src, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	return s.CreateTask(ctx, actor, projectID, model.Task{
		Title:       src.Title + " (copy)",
		Description: src.Description,
		Status:      src.Status,
		Priority:    src.Priority,
		Assignee:    src.Assignee,
	})
}

// UpdateTask applies patch. The owner may change anything; the assignee
// may change status and priority of an unlocked task. Status, priority
// and assignment notifications fire after the update is stored.
func (s *Service) UpdateTask(
	ctx context.Context,
	actor, projectID, taskID string,
	patch model.TaskPatch,
) (model.Task, error) {
	const op = "updating task"
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return model.Task{}, err
	}
	prev, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Empty() {
		return *prev, nil
	}
	if err := canEdit(op, p, prev, actor, patch); err != nil {
		return model.Task{}, err
	}

	if patch.Status != nil {
		st := model.NormalizeStatus(*patch.Status)
		patch.Status = &st
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, store.Errorf(op, store.CodeInvalidArgument, "task title must not be empty")
		}
		patch.Title = &title
	}
	next := patch.Apply(*prev)
	if err := validate(op, p, next.Status, next.Priority, next.Assignee); err != nil {
		return model.Task{}, err
	}

	if err := s.store.UpdateTask(ctx, projectID, taskID, patch); err != nil {
		return model.Task{}, err
	}
	s.notifyChanges(ctx, p, prev, &next, actor)
	return next, nil
}

// DeleteTask removes a task. Owner or creator only.
func (s *Service) DeleteTask(ctx context.Context, actor, projectID, taskID string) error {
	const op = "deleting task"
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return err
	}
	t, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return err
	}
	if actor != p.Owner && actor != t.CreatedBy {
		return store.Errorf(op, store.CodePermissionDenied,
			"only the owner or the creator can delete task %s", taskID)
	}
	return s.store.DeleteTask(ctx, projectID, taskID)
}

// ToggleLock flips the lock of a task and returns the new state. Owner
// only.
func (s *Service) ToggleLock(ctx context.Context, actor, projectID, taskID string) (bool, error) {
	if _, err := s.ownedProject(ctx, "locking task", actor, projectID); err != nil {
		return false, err
	}
	t, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return false, err
	}
	locked := !t.Locked
	if err := s.store.UpdateTask(ctx, projectID, taskID, model.TaskPatch{Locked: &locked}); err != nil {
		return false, err
	}
	return locked, nil
}

// canEdit enforces who may send patch.
func canEdit(op string, p *model.Project, t *model.Task, actor string, patch model.TaskPatch) error {
	if actor == p.Owner {
		return nil
	}
	if actor != t.Assignee {
		return store.Errorf(op, store.CodePermissionDenied,
			"only the owner or the assignee can change task %s", t.ID)
	}
	if t.Locked {
		return store.Errorf(op, store.CodePermissionDenied, "task %s is locked", t.ID)
	}
	if !patch.OnlyStatusOrPriority() {
		return store.Errorf(op, store.CodePermissionDenied,
			"the assignee may only change status and priority")
	}
	return nil
}

func validate(op string, p *model.Project, st model.Status, pr model.Priority, assignee string) error {
	if !st.Valid() {
		return store.Errorf(op, store.CodeInvalidArgument, "unknown status %q", st)
	}
	if !pr.Valid() {
		return store.Errorf(op, store.CodeInvalidArgument, "unknown priority %q", pr)
	}
	if assignee != "" && !p.HasMember(assignee) {
		return store.Errorf(op, store.CodeInvalidArgument,
			"assignee %s is not a member of project %s", assignee, p.ID)
	}
	return nil
}

// notifyChanges emits the notifications implied by prev -> next.
func (s *Service) notifyChanges(ctx context.Context, p *model.Project, prev, next *model.Task, actor string) {
	to := recipients(p, next.Assignee, actor)

	oldStatus := model.NormalizeStatus(prev.Status)
	newStatus := model.NormalizeStatus(next.Status)
	if oldStatus != newStatus {
		sideEffect("status", s.notifier.NotifyStatusChange(ctx, notify.StatusChange{
			ProjectID:    p.ID,
			TaskID:       next.ID,
			Old:          oldStatus,
			New:          newStatus,
			RecipientIDs: to,
			ActorID:      actor,
		}))
	}

	oldPriority := cmp.Or(prev.Priority, model.PriorityMedium)
	newPriority := cmp.Or(next.Priority, model.PriorityMedium)
	if oldPriority != newPriority {
		sideEffect("priority", s.notifier.NotifyPriorityChange(ctx, notify.PriorityChange{
			ProjectID:    p.ID,
			TaskID:       next.ID,
			Old:          oldPriority,
			New:          newPriority,
			RecipientIDs: to,
			ActorID:      actor,
		}))
	}

	if next.Assignee != "" && next.Assignee != prev.Assignee && next.Assignee != actor {
		sideEffect("assignment", s.notifier.NotifyAssignment(ctx, notify.Assignment{
			ProjectID:   p.ID,
			TaskID:      next.ID,
			RecipientID: next.Assignee,
			ActorID:     actor,
		}))
	}
}

// column returns the sorted tasks of status st, leaving out skipID.
func column(tasks []model.Task, st model.Status, skipID string) []model.Task {
	var col []model.Task
	for _, t := range tasks {
		if t.ID != skipID && model.NormalizeStatus(t.Status) == st {
			col = append(col, t)
		}
	}
	sortColumn(col)
	return col
}

func taskNotFound(op, id string) error {
	return store.Errorf(op, store.CodeNotFound, "task %s not found", id)
}
