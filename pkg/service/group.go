package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/store"
)

// GroupService manages endpoint group names per project public id.
type GroupService struct {
	store store.Store
	log   *slog.Logger
}

// NewGroupService creates a GroupService.
func NewGroupService(st store.Store, log *slog.Logger) *GroupService {
	return &GroupService{store: st, log: log}
}

// FindOrCreate returns the group named name under the project public
// id, creating it if missing. A concurrent creation racing to the
// same (pid, name) pair is not a failure: the uniqueness violation is
// swallowed and the winner's row is re-read and returned.
func (s *GroupService) FindOrCreate(ctx context.Context, projectPID int64, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Field: "name", Message: "group name is required"}
	}
	if len(name) > 50 {
		return nil, &model.ValidationError{Field: "name", Message: "group name must be at most 50 characters"}
	}

	// Look first; most calls hit an existing group and skip the
	// pointless constraint round trip.
	existing, err := s.store.FindGroup(ctx, projectPID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	g := &model.Group{ProjectPID: projectPID, Name: name}
	err = s.store.CreateGroup(ctx, g)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, store.ErrDuplicate) {
		again, err := s.store.FindGroup(ctx, projectPID, name)
		if err != nil {
			return nil, err
		}
		if again != nil {
			return again, nil
		}
	}
	return nil, fmt.Errorf("create group: %w", err)
}

// List returns the project's groups, newest first.
func (s *GroupService) List(ctx context.Context, projectPID int64) ([]*model.Group, error) {
	return s.store.ListGroups(ctx, projectPID)
}
