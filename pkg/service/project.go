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

const (
	// pidSeed is the first public project id handed out on a fresh
	// store.
	pidSeed = 100000

	// maxAllocateAttempts bounds the allocator's retry-on-conflict
	// loop. Exhausting it surfaces ErrAllocationExhausted instead of
	// looping forever.
	maxAllocateAttempts = 3
)

// ErrAllocationExhausted is returned when public-id allocation loses
// the insert race maxAllocateAttempts times in a row.
var ErrAllocationExhausted = errors.New("public id allocation exhausted retries")

// ProjectService owns project lifecycle and public-id allocation.
type ProjectService struct {
	store store.Store
	log   *slog.Logger
}

// NewProjectService creates a ProjectService.
func NewProjectService(st store.Store, log *slog.Logger) *ProjectService {
	return &ProjectService{store: st, log: log}
}

// CreateProjectParams are the caller-supplied project fields. The
// public id is never caller-supplied.
type CreateProjectParams struct {
	Name        string
	Description string
	Host        string
	OwnerID     int64
}

// Create allocates a fresh public id and persists the project.
//
// Allocation is a non-atomic read-then-insert: read MAX(pid), insert
// max+1, and rely on the unique index to reject the loser of a race.
// A uniqueness violation recomputes the max and retries, bounded at
// maxAllocateAttempts.
func (s *ProjectService) Create(ctx context.Context, params CreateProjectParams) (*model.Project, error) {
	if err := model.ValidateProjectName(params.Name); err != nil {
		return nil, err
	}
	if err := model.ValidateHost(params.Host); err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= maxAllocateAttempts; attempt++ {
		max, err := s.store.MaxProjectPID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read max public id: %w", err)
		}
		pid := int64(pidSeed)
		if max > 0 {
			pid = max + 1
		}

		p := &model.Project{
			PID:         pid,
			Name:        strings.TrimSpace(params.Name),
			Description: params.Description,
			Host:        params.Host,
			OwnerID:     params.OwnerID,
		}
		err = s.store.CreateProject(ctx, p)
		if err == nil {
			s.log.Info("project created", "pid", pid, "owner", params.OwnerID)
			return p, nil
		}
		if errors.Is(err, store.ErrDuplicate) {
			s.log.Warn("public id collision, retrying", "pid", pid, "attempt", attempt+1)
			continue
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return nil, ErrAllocationExhausted
}

// Get returns a project by internal id, or nil if absent.
func (s *ProjectService) Get(ctx context.Context, id uint) (*model.Project, error) {
	return s.store.GetProject(ctx, id)
}

// GetByPID returns a project by public id, or nil if absent.
func (s *ProjectService) GetByPID(ctx context.Context, pid int64) (*model.Project, error) {
	return s.store.GetProjectByPID(ctx, pid)
}

// List returns projects owned by ownerID, newest first. ownerID 0
// lists everything.
func (s *ProjectService) List(ctx context.Context, ownerID int64) ([]*model.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// UpdateProjectParams carries a partial field update; nil pointers
// leave the field untouched. The public id is not updatable.
type UpdateProjectParams struct {
	Name        *string
	Description *string
	Host        *string
}

// Update applies a partial update and returns the updated project,
// or nil if the project does not exist.
func (s *ProjectService) Update(ctx context.Context, id uint, params UpdateProjectParams) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	if params.Name != nil {
		if err := model.ValidateProjectName(*params.Name); err != nil {
			return nil, err
		}
		p.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Host != nil {
		if err := model.ValidateHost(*params.Host); err != nil {
			return nil, err
		}
		p.Host = *params.Host
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// Delete removes the project row. Endpoints, variants, and overrides
// under it are deliberately left in place; with the project gone they
// are unreachable through the proxy, which fails at the project
// lookup.
func (s *ProjectService) Delete(ctx context.Context, id uint) (bool, error) {
	deleted, err := s.store.DeleteProject(ctx, id)
	if err == nil && deleted {
		s.log.Info("project deleted", "id", id)
	}
	return deleted, err
}
