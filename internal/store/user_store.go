package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

// UpsertUser inserts or replaces a user profile.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u model.User) error {
	if u.ID == "" {
		return Errorf("upserting user", CodeInvalidArgument, "user id must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, email_lower, display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			email_lower = excluded.email_lower,
			display_name = excluded.display_name`,
		u.ID, u.Email, strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser retrieves a user profile by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, email, display_name FROM users WHERE id = ?", id)
	if err != nil {
		return nil, notFoundOr(err, "getting user", "user", id)
	}
	return &u, nil
}

// GetUsers retrieves the profiles of ids. Unknown ids are skipped.
func (s *SQLiteStore) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT id, email, display_name FROM users WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("building users query: %w", err)
	}

	var users []model.User
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}

// UserByEmail finds a user by email, ignoring case.
func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return nil, Errorf("finding user", CodeInvalidArgument, "email must not be empty")
	}
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, email, display_name FROM users WHERE email_lower = ? LIMIT 1", needle)
	if err != nil {
		return nil, notFoundOr(err, "finding user", "user", needle)
	}
	return &u, nil
}
