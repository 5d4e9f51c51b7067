package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/model"
)

// CreateMessage stores a chat message on a task.
func (s *SQLiteStore) CreateMessage(ctx context.Context, m model.Message) (model.Message, error) {
	if strings.TrimSpace(m.Text) == "" {
		return model.Message{}, Errorf("creating message", CodeInvalidArgument, "message text must not be empty")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = s.now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, project_id, task_id, user_id, text, created_at)
		VALUES (:id, :project_id, :task_id, :user_id, :text, :created_at)`, m)
	if err != nil {
		return model.Message{}, fmt.Errorf("creating message: %w", err)
	}
	return m, nil
}

// ListMessages returns the chat of a task, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, projectID, taskID string) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.SelectContext(ctx, &messages, `
		SELECT id, project_id, task_id, user_id, text, created_at
		FROM messages
		WHERE project_id = ? AND task_id = ?
		ORDER BY created_at`, projectID, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying messages of %s: %w", taskID, err)
	}
	return messages, nil
}
