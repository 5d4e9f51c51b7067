package board

import (
	"context"
	"strings"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// CreateProject creates a project owned by actor.
func (s *Service) CreateProject(ctx context.Context, actor, name string) (model.Project, error) {
	if actor == "" {
		return model.Project{}, store.Errorf("creating project", store.CodeUnauthenticated, "no acting user")
	}
	return s.store.CreateProject(ctx, model.Project{Name: strings.TrimSpace(name), Owner: actor})
}

// RenameProject renames a project. Owner only.
func (s *Service) RenameProject(ctx context.Context, actor, projectID, name string) error {
	if _, err := s.ownedProject(ctx, "renaming project", actor, projectID); err != nil {
		return err
	}
	return s.store.RenameProject(ctx, projectID, strings.TrimSpace(name))
}

// DeleteProject deletes a project with everything in it. Owner only.
func (s *Service) DeleteProject(ctx context.Context, actor, projectID string) error {
	if _, err := s.ownedProject(ctx, "deleting project", actor, projectID); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, projectID)
}

// AddMemberByEmail adds the user registered under email. Owner only.
func (s *Service) AddMemberByEmail(ctx context.Context, actor, projectID, email string) (*model.User, error) {
	const op = "adding member"
	if _, err := s.ownedProject(ctx, op, actor, projectID); err != nil {
		return nil, err
	}
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, projectID, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// RemoveMember removes uid from the project. The owner may remove anyone
// but themselves; other members may only leave.
func (s *Service) RemoveMember(ctx context.Context, actor, projectID, uid string) error {
	const op = "removing member"
	p, err := s.memberProject(ctx, op, actor, projectID)
	if err != nil {
		return err
	}
	if actor != p.Owner && actor != uid {
		return store.Errorf(op, store.CodePermissionDenied,
			"only the owner of project %s can remove members", projectID)
	}
	if uid == p.Owner {
		return store.Errorf(op, store.CodeFailedPrecondition,
			"the owner cannot leave project %s; transfer it first", projectID)
	}
	return s.store.RemoveMember(ctx, projectID, uid)
}

// TransferOwner hands the project over to uid, who becomes a member if
// needed. Owner only.
func (s *Service) TransferOwner(ctx context.Context, actor, projectID, uid string) error {
	const op = "transferring project"
	if _, err := s.ownedProject(ctx, op, actor, projectID); err != nil {
		return err
	}
	if uid == "" {
		return store.Errorf(op, store.CodeInvalidArgument, "new owner is required")
	}
	return s.store.SetOwner(ctx, projectID, uid)
}
