package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mocknest/mocknest/pkg/model"
)

// MemoryStore is a thread-safe in-memory implementation of Store. It
// enforces the same uniqueness constraints as the relational schema
// and returns the same sentinels, so service-level behavior (allocator
// retries, group find-or-create fallback, override upserts) can be
// exercised without a database.
type MemoryStore struct {
	mu sync.RWMutex

	projects      map[uint]*model.Project
	projectPIDs   map[int64]uint
	nextProjectID uint

	endpoints   map[string]*model.Endpoint
	endpointSeq map[string]uint64

	variants   map[string]*model.Variant
	variantSeq map[string]uint64

	overrides      map[string]*model.Override
	nextOverrideID uint

	groups      map[string]*model.Group
	nextGroupID uint

	users         map[uint]*model.User
	userUIDs      map[int64]uint
	userNames     map[string]uint
	userEmails    map[string]uint
	nextUserID    uint

	seq uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:    make(map[uint]*model.Project),
		projectPIDs: make(map[int64]uint),
		endpoints:   make(map[string]*model.Endpoint),
		endpointSeq: make(map[string]uint64),
		variants:    make(map[string]*model.Variant),
		variantSeq:  make(map[string]uint64),
		overrides:   make(map[string]*model.Override),
		groups:      make(map[string]*model.Group),
		users:       make(map[uint]*model.User),
		userUIDs:    make(map[int64]uint),
		userNames:   make(map[string]uint),
		userEmails:  make(map[string]uint),
	}
}

func overrideKey(userUID int64, endpointID string) string {
	return fmt.Sprintf("%d|%s", userUID, endpointID)
}

func groupKey(projectPID int64, name string) string {
	return fmt.Sprintf("%d|%s", projectPID, name)
}

func cloneProject(p *model.Project) *model.Project    { c := *p; return &c }
func cloneEndpoint(e *model.Endpoint) *model.Endpoint { c := *e; return &c }
func cloneVariant(v *model.Variant) *model.Variant    { c := *v; return &c }
func cloneOverride(o *model.Override) *model.Override { c := *o; return &c }
func cloneGroup(g *model.Group) *model.Group          { c := *g; return &c }
func cloneUser(u *model.User) *model.User             { c := *u; return &c }

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// --- Projects ---

func (s *MemoryStore) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projectPIDs[p.PID]; exists {
		return ErrDuplicate
	}
	s.nextProjectID++
	p.ID = s.nextProjectID
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.projects[p.ID] = cloneProject(p)
	s.projectPIDs[p.PID] = p.ID
	return nil
}

func (s *MemoryStore) MaxProjectPID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for pid := range s.projectPIDs {
		if pid > max {
			max = pid
		}
	}
	return max, nil
}

func (s *MemoryStore) GetProject(_ context.Context, id uint) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[id]; ok {
		return cloneProject(p), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetProjectByPID(_ context.Context, pid int64) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.projectPIDs[pid]; ok {
		return cloneProject(s.projects[id]), nil
	}
	return nil, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, ownerID int64) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Project
	for _, p := range s.projects {
		if ownerID == 0 || p.OwnerID == ownerID {
			result = append(result, cloneProject(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) SaveProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return false, nil
	}
	delete(s.projectPIDs, p.PID)
	delete(s.projects, id)
	return true, nil
}

// --- Endpoints ---

func (s *MemoryStore) CreateEndpoint(_ context.Context, e *model.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.seq++
	s.endpointSeq[e.ID] = s.seq
	s.endpoints[e.ID] = cloneEndpoint(e)
	return nil
}

func (s *MemoryStore) GetEndpoint(_ context.Context, id string) (*model.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.endpoints[id]; ok {
		return cloneEndpoint(e), nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveEndpoint(_ context.Context, e *model.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[e.ID]; !ok {
		return ErrNotFound
	}
	e.UpdatedAt = time.Now()
	s.endpoints[e.ID] = cloneEndpoint(e)
	return nil
}

func (s *MemoryStore) DeleteEndpoint(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return false, nil
	}
	delete(s.endpoints, id)
	delete(s.endpointSeq, id)
	return true, nil
}

func (s *MemoryStore) listEndpointsLocked(projectID uint) []*model.Endpoint {
	var result []*model.Endpoint
	for _, e := range s.endpoints {
		if e.ProjectID == projectID {
			result = append(result, e)
		}
	}
	// Newest first, matching the relational ORDER BY created_at DESC.
	sort.Slice(result, func(i, j int) bool {
		return s.endpointSeq[result[i].ID] > s.endpointSeq[result[j].ID]
	})
	return result
}

func (s *MemoryStore) ListEndpoints(_ context.Context, projectID uint, page, size int) ([]*model.Endpoint, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.listEndpointsLocked(projectID)
	start := (page - 1) * size
	if start >= len(all) {
		return nil, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	result := make([]*model.Endpoint, 0, end-start)
	for _, e := range all[start:end] {
		result = append(result, cloneEndpoint(e))
	}
	return result, nil
}

func (s *MemoryStore) CountEndpoints(_ context.Context, projectID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.endpoints {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FindEndpointByPath(_ context.Context, projectID uint, path string) (*model.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.endpoints {
		if e.ProjectID == projectID && e.Path == path {
			return cloneEndpoint(e), nil
		}
	}
	return nil, nil
}

// --- Variants ---

func (s *MemoryStore) CreateVariant(_ context.Context, v *model.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&v.CreatedAt, &v.UpdatedAt)
	s.seq++
	s.variantSeq[v.ID] = s.seq
	s.variants[v.ID] = cloneVariant(v)
	return nil
}

func (s *MemoryStore) GetVariant(_ context.Context, id string) (*model.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.variants[id]; ok {
		return cloneVariant(v), nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveVariant(_ context.Context, v *model.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.variants[v.ID]; !ok {
		return ErrNotFound
	}
	v.UpdatedAt = time.Now()
	s.variants[v.ID] = cloneVariant(v)
	return nil
}

func (s *MemoryStore) DeleteVariant(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.variants[id]; !ok {
		return false, nil
	}
	delete(s.variants, id)
	delete(s.variantSeq, id)
	return true, nil
}

func (s *MemoryStore) ListVariants(_ context.Context, endpointID string) ([]*model.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Variant
	for _, v := range s.variants {
		if v.EndpointID == endpointID {
			result = append(result, cloneVariant(v))
		}
	}
	// Oldest first: resolution's last-resort tier picks the head.
	sort.Slice(result, func(i, j int) bool {
		return s.variantSeq[result[i].ID] < s.variantSeq[result[j].ID]
	})
	return result, nil
}

func (s *MemoryStore) GetActiveVariant(_ context.Context, endpointID string) (*model.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.variants {
		if v.EndpointID == endpointID && v.IsActive {
			return cloneVariant(v), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ActivateVariant(_ context.Context, endpointID, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.variants[variantID]
	if !ok || target.EndpointID != endpointID {
		return ErrNotFound
	}
	// Clear-then-set under one lock hold keeps the at-most-one-active
	// invariant even against concurrent activations.
	for _, v := range s.variants {
		if v.EndpointID == endpointID && v.IsActive {
			v.IsActive = false
			v.UpdatedAt = time.Now()
		}
	}
	target.IsActive = true
	target.UpdatedAt = time.Now()
	return nil
}

// --- Overrides ---

func (s *MemoryStore) UpsertOverride(_ context.Context, userUID int64, endpointID, variantID string) (*model.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := overrideKey(userUID, endpointID)
	if o, ok := s.overrides[key]; ok {
		o.VariantID = variantID
		o.UpdatedAt = time.Now()
		return cloneOverride(o), nil
	}
	s.nextOverrideID++
	o := &model.Override{
		ID:         s.nextOverrideID,
		UserUID:    userUID,
		EndpointID: endpointID,
		VariantID:  variantID,
	}
	stamp(&o.CreatedAt, &o.UpdatedAt)
	s.overrides[key] = o
	return cloneOverride(o), nil
}

func (s *MemoryStore) GetOverride(_ context.Context, userUID int64, endpointID string) (*model.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.overrides[overrideKey(userUID, endpointID)]; ok {
		return cloneOverride(o), nil
	}
	return nil, nil
}

// --- Groups ---

func (s *MemoryStore) CreateGroup(_ context.Context, g *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(g.ProjectPID, g.Name)
	if _, exists := s.groups[key]; exists {
		return ErrDuplicate
	}
	s.nextGroupID++
	g.ID = s.nextGroupID
	stamp(&g.CreatedAt, &g.UpdatedAt)
	s.groups[key] = cloneGroup(g)
	return nil
}

func (s *MemoryStore) FindGroup(_ context.Context, projectPID int64, name string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.groups[groupKey(projectPID, name)]; ok {
		return cloneGroup(g), nil
	}
	return nil, nil
}

func (s *MemoryStore) ListGroups(_ context.Context, projectPID int64) ([]*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Group
	for _, g := range s.groups {
		if g.ProjectPID == projectPID {
			result = append(result, cloneGroup(g))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// --- Users ---

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.userUIDs[u.UID]; exists {
		return ErrDuplicate
	}
	if _, exists := s.userNames[u.Username]; exists {
		return ErrDuplicate
	}
	if _, exists := s.userEmails[u.Email]; exists {
		return ErrDuplicate
	}
	s.nextUserID++
	u.ID = s.nextUserID
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = cloneUser(u)
	s.userUIDs[u.UID] = u.ID
	s.userNames[u.Username] = u.ID
	s.userEmails[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) MaxUserUID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for uid := range s.userUIDs {
		if uid > max {
			max = uid
		}
	}
	return max, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.userNames[username]; ok {
		return cloneUser(s.users[id]), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.userEmails[email]; ok {
		return cloneUser(s.users[id]), nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	s.users[u.ID] = cloneUser(u)
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
