package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/model"
)

// CreateProject inserts a new project owned by p.Owner. The owner is
// always recorded as a member.
func (s *SQLiteStore) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	const op = "creating project"
	if strings.TrimSpace(p.Name) == "" {
		return model.Project{}, Errorf(op, CodeInvalidArgument, "project name must not be empty")
	}
	if p.Owner == "" {
		return model.Project{}, Errorf(op, CodeInvalidArgument, "project owner must not be empty")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = s.now().UTC()
	p.Members = withMember(p.Members, p.Owner)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Project{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO projects (id, name, owner, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, p.Owner, p.CreatedAt,
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, uid := range p.Members {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)",
			p.ID, uid,
		)
		if err != nil {
			return model.Project{}, fmt.Errorf("%s: adding member %s: %w", op, uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Project{}, fmt.Errorf("%s: %w", op, err)
	}

	s.feed.publish(topicProjects)
	return p, nil
}

// GetProject retrieves a single project with its member list.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p,
		"SELECT id, name, owner, created_at FROM projects WHERE id = ?", id)
	if err != nil {
		return nil, notFoundOr(err, "getting project", "project", id)
	}

	if err := s.loadMembers(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectsForMember returns every project uid belongs to, newest first.
func (s *SQLiteStore) ProjectsForMember(ctx context.Context, uid string) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects, `
		SELECT p.id, p.name, p.owner, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("querying projects for %s: %w", uid, err)
	}

	for i := range projects {
		if err := s.loadMembers(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// WatchProjectsForMember runs ProjectsForMember as a live query.
func (s *SQLiteStore) WatchProjectsForMember(
	uid string,
	onChange func([]model.Project),
	onError func(error),
) Unsubscribe {
	return watchQuery(s.feed, topicProjects,
		func(ctx context.Context) ([]model.Project, error) {
			return s.ProjectsForMember(ctx, uid)
		},
		onChange, onError,
	)
}

// RenameProject changes the display name of a project.
func (s *SQLiteStore) RenameProject(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return Errorf("renaming project", CodeInvalidArgument, "project name must not be empty")
	}
	result, err := s.db.ExecContext(ctx, "UPDATE projects SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("renaming project %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return Errorf("renaming project", CodeNotFound, "project %s not found", id)
	}

	s.feed.publish(topicProjects)
	return nil
}

// DeleteProject removes a project. Members, tasks and messages cascade;
// the project's notifications are removed in the same transaction.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return Errorf("deleting project", CodeNotFound, "project %s not found", id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("deleting notifications of project %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}

	s.feed.publish(topicProjects, topicTasks, topicNotifications)
	return nil
}

// AddMember adds uid to the project's member list.
func (s *SQLiteStore) AddMember(ctx context.Context, projectID, uid string) error {
	if err := s.requireProject(ctx, "adding member", projectID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)",
		projectID, uid,
	)
	if err != nil {
		return fmt.Errorf("adding member %s to %s: %w", uid, projectID, err)
	}

	s.feed.publish(topicProjects)
	return nil
}

// RemoveMember removes uid from the project's member list.
func (s *SQLiteStore) RemoveMember(ctx context.Context, projectID, uid string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM project_members WHERE project_id = ? AND user_id = ?",
		projectID, uid,
	)
	if err != nil {
		return fmt.Errorf("removing member %s from %s: %w", uid, projectID, err)
	}

	s.feed.publish(topicProjects)
	return nil
}

// SetOwner transfers ownership to uid, making uid a member if needed.
func (s *SQLiteStore) SetOwner(ctx context.Context, projectID, uid string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE projects SET owner = ? WHERE id = ?", uid, projectID)
	if err != nil {
		return fmt.Errorf("transferring project %s: %w", projectID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return Errorf("transferring project", CodeNotFound, "project %s not found", projectID)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)",
		projectID, uid,
	)
	if err != nil {
		return fmt.Errorf("transferring project %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transferring project %s: %w", projectID, err)
	}

	s.feed.publish(topicProjects)
	return nil
}

// loadMembers fills p.Members from project_members.
func (s *SQLiteStore) loadMembers(ctx context.Context, p *model.Project) error {
	var members []string
	err := s.db.SelectContext(ctx, &members,
		"SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id", p.ID)
	if err != nil {
		return fmt.Errorf("loading members of %s: %w", p.ID, err)
	}
	p.Members = members
	return nil
}

// requireProject returns a CodeNotFound error if the project is missing.
func (s *SQLiteStore) requireProject(ctx context.Context, op, id string) error {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		return Errorf(op, CodeNotFound, "project %s not found", id)
	}
	return nil
}

// withMember returns members with uid appended when missing.
func withMember(members []string, uid string) []string {
	for _, m := range members {
		if m == uid {
			return members
		}
	}
	return append(members, uid)
}
