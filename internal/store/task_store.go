package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/model"
)

const taskColumns = `
	id, project_id, title, description, status, priority, assignee,
	created_by, sort_order, locked, created_at, updated_at`

// CreateTask inserts a new task, generating its id and timestamps.
func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	const op = "creating task"
	if strings.TrimSpace(t.Title) == "" {
		return model.Task{}, Errorf(op, CodeInvalidArgument, "task title must not be empty")
	}
	if err := s.requireProject(ctx, op, t.ProjectID); err != nil {
		return model.Task{}, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (
			:id, :project_id, :title, :description, :status, :priority, :assignee,
			:created_by, :sort_order, :locked, :created_at, :updated_at
		)`, t)
	if err != nil {
		return model.Task{}, fmt.Errorf("%s: %w", op, err)
	}

	s.feed.publish(topicTasks)
	return t, nil
}

// GetTask retrieves a task of a project by id.
func (s *SQLiteStore) GetTask(ctx context.Context, projectID, id string) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? AND id = ?", projectID, id)
	if err != nil {
		return nil, notFoundOr(err, "getting task", "task", id)
	}
	return &t, nil
}

// UpdateTask applies the non-nil fields of patch.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	projectID, id string,
	patch model.TaskPatch,
) error {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.Assignee != nil {
		add("assignee", *patch.Assignee)
	}
	if patch.Order != nil {
		add("sort_order", *patch.Order)
	}
	if patch.Locked != nil {
		add("locked", boolToInt(*patch.Locked))
	}
	add("updated_at", s.now().UTC())
	args = append(args, projectID, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE project_id = ? AND id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return Errorf("updating task", CodeNotFound, "task %s not found", id)
	}

	s.feed.publish(topicTasks)
	return nil
}

// DeleteTask removes a task and, by cascade, its messages.
func (s *SQLiteStore) DeleteTask(ctx context.Context, projectID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE project_id = ? AND id = ?", projectID, id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return Errorf("deleting task", CodeNotFound, "task %s not found", id)
	}

	s.feed.publish(topicTasks)
	return nil
}

// ListTasks returns the tasks of a project ordered by sort order.
func (s *SQLiteStore) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY sort_order, created_at",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks of %s: %w", projectID, err)
	}
	return tasks, nil
}

// WatchTasks runs ListTasks as a live query.
func (s *SQLiteStore) WatchTasks(
	projectID string,
	onChange func([]model.Task),
	onError func(error),
) Unsubscribe {
	return watchQuery(s.feed, topicTasks,
		func(ctx context.Context) ([]model.Task, error) {
			return s.ListTasks(ctx, projectID)
		},
		onChange, onError,
	)
}
