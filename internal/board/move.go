package board

import (
	"context"
	"log"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/internal/store"
)

// Move is a card dropped at Index of column Status.
type Move struct {
	TaskID string       `json:"task_id"`
	Status model.Status `json:"status"`
	Index  int          `json:"index"`
}

// MoveTask applies a drag and drop. Moving to another column is allowed to
// the owner, who also places the card at the drop index, and to the
// assignee of an unlocked task, who only changes its status. Reordering
// within a column is owner only.
func (s *Service) MoveTask(ctx context.Context, actor, projectID string, m Move) error {
	const op = "moving task"
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return err
	}
	dst := model.NormalizeStatus(m.Status)
	if !dst.Valid() {
		return store.Errorf(op, store.CodeInvalidArgument, "unknown status %q", m.Status)
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return err
	}
	var moved *model.Task
	for i := range tasks {
		if tasks[i].ID == m.TaskID {
			moved = &tasks[i]
			break
		}
	}
	if moved == nil {
		return taskNotFound(op, m.TaskID)
	}

	isOwner := actor == p.Owner
	src := model.NormalizeStatus(moved.Status)
	col := column(tasks, dst, moved.ID)

	if src == dst {
		if !isOwner {
			return store.Errorf(op, store.CodePermissionDenied, "only the owner can reorder tasks")
		}
		return s.reorder(ctx, projectID, moved.ID, col, m.Index)
	}

	patch := model.TaskPatch{Status: &dst}
	switch {
	case isOwner:
		order, ok := orderAt(col, m.Index)
		if !ok {
			if err := s.renumber(ctx, projectID, col); err != nil {
				return err
			}
			order, _ = orderAt(col, m.Index)
		}
		patch.Order = &order
	case actor == moved.Assignee && !moved.Locked:
	default:
		return store.Errorf(op, store.CodePermissionDenied,
			"only the owner or the assignee can move task %s", moved.ID)
	}

	if err := s.store.UpdateTask(ctx, projectID, moved.ID, patch); err != nil {
		return err
	}
	sideEffect("status", s.notifier.NotifyStatusChange(ctx, notify.StatusChange{
		ProjectID:    projectID,
		TaskID:       moved.ID,
		Old:          src,
		New:          dst,
		RecipientIDs: recipients(p, moved.Assignee, actor),
		ActorID:      actor,
	}))
	return nil
}

// reorder places taskID at index of col, renumbering col first when its
// neighbors are too close.
func (s *Service) reorder(ctx context.Context, projectID, taskID string, col []model.Task, index int) error {
	order, ok := orderAt(col, index)
	if !ok {
		if err := s.renumber(ctx, projectID, col); err != nil {
			return err
		}
		order, _ = orderAt(col, index)
	}
	return s.store.UpdateTask(ctx, projectID, taskID, model.TaskPatch{Order: &order})
}

// renumber rewrites col with keys 1, 2, 3... and updates col in place.
func (s *Service) renumber(ctx context.Context, projectID string, col []model.Task) error {
	log.Printf("[board] renumbering %d tasks in project %s", len(col), projectID)
	for i := range col {
		order := float64(i + 1)
		if col[i].Order == order {
			continue
		}
		if err := s.store.UpdateTask(ctx, projectID, col[i].ID, model.TaskPatch{Order: &order}); err != nil {
			return err
		}
		col[i].Order = order
	}
	return nil
}
