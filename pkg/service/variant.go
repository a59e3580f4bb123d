package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/store"
)

// VariantService owns the response-variant lifecycle, the
// at-most-one-active-per-endpoint invariant, and the per-caller
// resolution order.
type VariantService struct {
	store store.Store
	log   *slog.Logger
}

// NewVariantService creates a VariantService.
func NewVariantService(st store.Store, log *slog.Logger) *VariantService {
	return &VariantService{store: st, log: log}
}

// Create stores a new variant under the endpoint. The payload is kept
// as opaque text; parseability is checked only at resolution time.
// With makeActive set, the variant becomes the endpoint's global
// active one through the same activation path as SetGlobalActive.
func (s *VariantService) Create(ctx context.Context, endpointID, name, payload string, makeActive bool) (*model.Variant, error) {
	if err := model.ValidateVariantName(name); err != nil {
		return nil, err
	}
	e, err := s.store.GetEndpoint(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, store.ErrNotFound
	}

	v := &model.Variant{
		ID:         uuid.NewString(),
		EndpointID: endpointID,
		Name:       name,
		Payload:    payload,
	}
	if err := s.store.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	if makeActive {
		if err := s.store.ActivateVariant(ctx, endpointID, v.ID); err != nil {
			return nil, fmt.Errorf("activate variant: %w", err)
		}
		v.IsActive = true
	}
	s.log.Info("variant created", "endpoint", endpointID, "variant", v.ID, "active", makeActive)
	return v, nil
}

// UpdateVariantParams carries a partial variant update. Setting
// IsActive true routes through the activation path; IsActive false
// is ignored; the flag is never cleared by a plain field update.
type UpdateVariantParams struct {
	Name     *string
	Payload  *string
	IsActive *bool
}

// Update applies a partial update, or returns nil when the variant
// does not exist.
func (s *VariantService) Update(ctx context.Context, id string, params UpdateVariantParams) (*model.Variant, error) {
	v, err := s.store.GetVariant(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	if params.Name != nil {
		if err := model.ValidateVariantName(*params.Name); err != nil {
			return nil, err
		}
		v.Name = *params.Name
	}
	if params.Payload != nil {
		v.Payload = *params.Payload
	}
	if err := s.store.SaveVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("save variant: %w", err)
	}
	if params.IsActive != nil && *params.IsActive {
		if err := s.store.ActivateVariant(ctx, v.EndpointID, v.ID); err != nil {
			return nil, fmt.Errorf("activate variant: %w", err)
		}
		v.IsActive = true
	}
	return v, nil
}

// Delete removes a variant, reporting whether it existed. Overrides
// pointing at it become dangling and are skipped at resolution.
func (s *VariantService) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteVariant(ctx, id)
}

// List returns the endpoint's variants ascending by creation time.
func (s *VariantService) List(ctx context.Context, endpointID string) ([]*model.Variant, error) {
	return s.store.ListVariants(ctx, endpointID)
}

// Get returns a variant by id, or nil if absent.
func (s *VariantService) Get(ctx context.Context, id string) (*model.Variant, error) {
	return s.store.GetVariant(ctx, id)
}

// SetGlobalActive makes the variant the endpoint's global active one,
// clearing the flag on every sibling first. Returns nil when the
// variant does not exist. Calling it twice on the same variant is
// idempotent: exactly one variant stays active.
func (s *VariantService) SetGlobalActive(ctx context.Context, id string) (*model.Variant, error) {
	v, err := s.store.GetVariant(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	if err := s.store.ActivateVariant(ctx, v.EndpointID, v.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("activate variant: %w", err)
	}
	v.IsActive = true
	return v, nil
}

// SetUserActive pins the variant as uid's active choice for the
// variant's endpoint. Returns nil when the variant does not exist.
// The pin is one idempotent upsert keyed on (uid, endpoint):
// re-pinning overwrites, and concurrent calls from the same user
// cannot produce duplicate rows.
func (s *VariantService) SetUserActive(ctx context.Context, uid int64, variantID string) (*model.Variant, error) {
	v, err := s.store.GetVariant(ctx, variantID)
	if err != nil || v == nil {
		return nil, err
	}
	if _, err := s.store.UpsertOverride(ctx, uid, v.EndpointID, v.ID); err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}
	s.log.Info("user override set", "uid", uid, "endpoint", v.EndpointID, "variant", v.ID)
	return v, nil
}

// ResolveActive decides which variant a caller sees for an endpoint,
// in strict priority order:
//
//  1. the caller's own override, when uid is non-nil, the override
//     row exists, and its variant still exists;
//  2. the endpoint's global-active variant;
//  3. the earliest-created variant;
//  4. nil, when the endpoint has no variants at all.
//
// Every caller therefore receives some usable mock as soon as one
// variant exists, and per-user pins never disturb anyone else's view.
func (s *VariantService) ResolveActive(ctx context.Context, endpointID string, uid *int64) (*model.Variant, error) {
	if uid != nil {
		o, err := s.store.GetOverride(ctx, *uid, endpointID)
		if err != nil {
			return nil, err
		}
		if o != nil {
			v, err := s.store.GetVariant(ctx, o.VariantID)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
			// Dangling override: the pinned variant was deleted.
			// Fall through to the global tiers.
		}
	}

	active, err := s.store.GetActiveVariant(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	all, err := s.store.ListVariants(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}
