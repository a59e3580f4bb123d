// Package store provides the persistence contract for the mock
// platform and its relational and in-memory implementations.
//
// Uniqueness constraints (project pid, (project_pid, group name),
// (user_uid, endpoint_id) override pair, user uid/username/email) are
// the sole concurrency-control primitive: callers are expected to
// catch ErrDuplicate and retry or re-read rather than hold locks.
package store

import (
	"context"
	"errors"

	"github.com/mocknest/mocknest/pkg/model"
)

// Sentinel errors shared by all implementations.
var (
	// ErrNotFound is returned by write operations targeting a record
	// that does not exist. Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence contract. Lookup methods return (nil, nil)
// when the record is absent; only genuine storage failures produce an
// error.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *model.Project) error
	MaxProjectPID(ctx context.Context) (int64, error)
	GetProject(ctx context.Context, id uint) (*model.Project, error)
	GetProjectByPID(ctx context.Context, pid int64) (*model.Project, error)
	ListProjects(ctx context.Context, ownerID int64) ([]*model.Project, error)
	SaveProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id uint) (bool, error)

	// Endpoints
	CreateEndpoint(ctx context.Context, e *model.Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*model.Endpoint, error)
	SaveEndpoint(ctx context.Context, e *model.Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) (bool, error)
	ListEndpoints(ctx context.Context, projectID uint, page, size int) ([]*model.Endpoint, error)
	CountEndpoints(ctx context.Context, projectID uint) (int64, error)
	FindEndpointByPath(ctx context.Context, projectID uint, path string) (*model.Endpoint, error)

	// Variants
	CreateVariant(ctx context.Context, v *model.Variant) error
	GetVariant(ctx context.Context, id string) (*model.Variant, error)
	SaveVariant(ctx context.Context, v *model.Variant) error
	DeleteVariant(ctx context.Context, id string) (bool, error)
	// ListVariants returns the endpoint's variants ascending by
	// creation time.
	ListVariants(ctx context.Context, endpointID string) ([]*model.Variant, error)
	GetActiveVariant(ctx context.Context, endpointID string) (*model.Variant, error)
	// ActivateVariant clears the active flag on every variant of the
	// endpoint and sets it on the given one, atomically with respect
	// to other activations. Returns ErrNotFound if the variant is
	// absent or belongs to a different endpoint.
	ActivateVariant(ctx context.Context, endpointID, variantID string) error

	// Overrides
	// UpsertOverride is a single conditional write keyed on the
	// unique (user_uid, endpoint_id) pair; concurrent calls from the
	// same user never produce duplicate rows.
	UpsertOverride(ctx context.Context, userUID int64, endpointID, variantID string) (*model.Override, error)
	GetOverride(ctx context.Context, userUID int64, endpointID string) (*model.Override, error)

	// Groups
	CreateGroup(ctx context.Context, g *model.Group) error
	FindGroup(ctx context.Context, projectPID int64, name string) (*model.Group, error)
	ListGroups(ctx context.Context, projectPID int64) ([]*model.Group, error)

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	MaxUserUID(ctx context.Context) (int64, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
}
