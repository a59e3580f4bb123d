package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/store"
)

// EndpointService owns endpoint lifecycle inside a project.
type EndpointService struct {
	store  store.Store
	groups *GroupService
	log    *slog.Logger
}

// NewEndpointService creates an EndpointService.
func NewEndpointService(st store.Store, groups *GroupService, log *slog.Logger) *EndpointService {
	return &EndpointService{store: st, groups: groups, log: log}
}

// CreateEndpointParams are the declared fields of a new endpoint.
type CreateEndpointParams struct {
	Path        string
	Method      string
	Group       string
	Description string
}

// Create declares a new endpoint under the project. The path is
// normalized to a leading slash; a non-empty group name is
// find-or-created under the project's public id. (project, path)
// uniqueness is a convention, not enforced here.
func (s *EndpointService) Create(ctx context.Context, project *model.Project, params CreateEndpointParams) (*model.Endpoint, error) {
	if err := model.ValidateEndpointPath(params.Path); err != nil {
		return nil, err
	}
	method, err := model.ParseMethod(params.Method)
	if err != nil {
		return nil, &model.ValidationError{Field: "method", Message: err.Error()}
	}

	group := strings.TrimSpace(params.Group)
	if group != "" {
		if _, err := s.groups.FindOrCreate(ctx, project.PID, group); err != nil {
			return nil, fmt.Errorf("ensure group: %w", err)
		}
	}

	e := &model.Endpoint{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Path:        model.NormalizePath(params.Path),
		Method:      method,
		Group:       group,
		Description: params.Description,
	}
	if err := s.store.CreateEndpoint(ctx, e); err != nil {
		return nil, fmt.Errorf("create endpoint: %w", err)
	}
	s.log.Info("endpoint created", "project_pid", project.PID, "method", method, "path", e.Path)
	return e, nil
}

// Get returns an endpoint by id, or nil if absent.
func (s *EndpointService) Get(ctx context.Context, id string) (*model.Endpoint, error) {
	return s.store.GetEndpoint(ctx, id)
}

// UpdateEndpointParams carries a partial endpoint update.
type UpdateEndpointParams struct {
	Path        *string
	Method      *string
	Group       *string
	Description *string
}

// Update applies a partial update, or returns nil when the endpoint
// does not exist. The owning project is looked up only when a new
// group needs a home.
func (s *EndpointService) Update(ctx context.Context, id string, params UpdateEndpointParams) (*model.Endpoint, error) {
	e, err := s.store.GetEndpoint(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	if params.Path != nil {
		if err := model.ValidateEndpointPath(*params.Path); err != nil {
			return nil, err
		}
		e.Path = model.NormalizePath(*params.Path)
	}
	if params.Method != nil {
		method, err := model.ParseMethod(*params.Method)
		if err != nil {
			return nil, &model.ValidationError{Field: "method", Message: err.Error()}
		}
		e.Method = method
	}
	if params.Group != nil {
		group := strings.TrimSpace(*params.Group)
		if group != "" {
			p, err := s.store.GetProject(ctx, e.ProjectID)
			if err != nil {
				return nil, err
			}
			if p != nil {
				if _, err := s.groups.FindOrCreate(ctx, p.PID, group); err != nil {
					return nil, fmt.Errorf("ensure group: %w", err)
				}
			}
		}
		e.Group = group
	}
	if params.Description != nil {
		e.Description = *params.Description
	}
	if err := s.store.SaveEndpoint(ctx, e); err != nil {
		return nil, fmt.Errorf("save endpoint: %w", err)
	}
	return e, nil
}

// Delete removes an endpoint, reporting whether it existed.
func (s *EndpointService) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteEndpoint(ctx, id)
}

// List returns one page of the project's endpoints, newest first.
func (s *EndpointService) List(ctx context.Context, projectID uint, page, size int) ([]*model.Endpoint, error) {
	return s.store.ListEndpoints(ctx, projectID, page, size)
}

// Count returns the project's endpoint count.
func (s *EndpointService) Count(ctx context.Context, projectID uint) (int64, error) {
	return s.store.CountEndpoints(ctx, projectID)
}

// FindByPath resolves an endpoint by exact stored path within the
// project, or nil if no endpoint declares that path.
func (s *EndpointService) FindByPath(ctx context.Context, projectID uint, path string) (*model.Endpoint, error) {
	return s.store.FindEndpointByPath(ctx, projectID, model.NormalizePath(path))
}
