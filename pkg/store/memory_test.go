package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mocknest/mocknest/pkg/model"
)

func newProject(pid int64) *model.Project {
	return &model.Project{PID: pid, Name: fmt.Sprintf("p-%d", pid), OwnerID: 1}
}

func newVariant(id, endpointID, name string) *model.Variant {
	return &model.Variant{ID: id, EndpointID: endpointID, Name: name, Payload: "{}"}
}

func TestMemory_ProjectPIDUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateProject(ctx, newProject(100000)); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	err := s.CreateProject(ctx, newProject(100000))
	if err != ErrDuplicate {
		t.Fatalf("duplicate pid error = %v, want ErrDuplicate", err)
	}

	max, err := s.MaxProjectPID(ctx)
	if err != nil {
		t.Fatalf("MaxProjectPID() error = %v", err)
	}
	if max != 100000 {
		t.Errorf("MaxProjectPID() = %d, want 100000", max)
	}
}

func TestMemory_GetProjectByPID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := newProject(100000)
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	got, err := s.GetProjectByPID(ctx, 100000)
	if err != nil {
		t.Fatalf("GetProjectByPID() error = %v", err)
	}
	if got == nil || got.ID != p.ID {
		t.Fatalf("GetProjectByPID() = %+v, want project %d", got, p.ID)
	}

	missing, err := s.GetProjectByPID(ctx, 999999)
	if err != nil || missing != nil {
		t.Errorf("GetProjectByPID(absent) = %v, %v; want nil, nil", missing, err)
	}
}

func TestMemory_VariantOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		v := newVariant(fmt.Sprintf("v%d", i), "ep1", fmt.Sprintf("variant %d", i))
		if err := s.CreateVariant(ctx, v); err != nil {
			t.Fatalf("CreateVariant() error = %v", err)
		}
	}

	list, err := s.ListVariants(ctx, "ep1")
	if err != nil {
		t.Fatalf("ListVariants() error = %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("ListVariants() len = %d, want 5", len(list))
	}
	for i, v := range list {
		if want := fmt.Sprintf("v%d", i); v.ID != want {
			t.Errorf("list[%d].ID = %q, want %q (ascending by creation)", i, v.ID, want)
		}
	}
}

func TestMemory_ActivateVariant(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateVariant(ctx, newVariant(id, "ep1", id)); err != nil {
			t.Fatalf("CreateVariant() error = %v", err)
		}
	}

	if err := s.ActivateVariant(ctx, "ep1", "b"); err != nil {
		t.Fatalf("ActivateVariant() error = %v", err)
	}
	if err := s.ActivateVariant(ctx, "ep1", "c"); err != nil {
		t.Fatalf("ActivateVariant() error = %v", err)
	}

	active := 0
	list, _ := s.ListVariants(ctx, "ep1")
	for _, v := range list {
		if v.IsActive {
			active++
			if v.ID != "c" {
				t.Errorf("active variant = %q, want %q", v.ID, "c")
			}
		}
	}
	if active != 1 {
		t.Errorf("active count = %d, want 1", active)
	}

	if err := s.ActivateVariant(ctx, "ep1", "missing"); err != ErrNotFound {
		t.Errorf("ActivateVariant(missing) = %v, want ErrNotFound", err)
	}
	// Wrong endpoint scope is also not found.
	if err := s.ActivateVariant(ctx, "other", "a"); err != ErrNotFound {
		t.Errorf("ActivateVariant(wrong endpoint) = %v, want ErrNotFound", err)
	}
}

func TestMemory_UpsertOverrideIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	o1, err := s.UpsertOverride(ctx, 10000, "ep1", "v1")
	if err != nil {
		t.Fatalf("UpsertOverride() error = %v", err)
	}
	o2, err := s.UpsertOverride(ctx, 10000, "ep1", "v2")
	if err != nil {
		t.Fatalf("UpsertOverride() error = %v", err)
	}
	if o1.ID != o2.ID {
		t.Errorf("second upsert created a new row: %d != %d", o1.ID, o2.ID)
	}

	got, err := s.GetOverride(ctx, 10000, "ep1")
	if err != nil {
		t.Fatalf("GetOverride() error = %v", err)
	}
	if got.VariantID != "v2" {
		t.Errorf("override variant = %q, want %q (overwritten)", got.VariantID, "v2")
	}
}

func TestMemory_UpsertOverrideConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertOverride(ctx, 10000, "ep1", fmt.Sprintf("v%d", i))
			if err != nil {
				t.Errorf("UpsertOverride() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Exactly one row survives regardless of interleaving.
	o, err := s.GetOverride(ctx, 10000, "ep1")
	if err != nil || o == nil {
		t.Fatalf("GetOverride() = %v, %v", o, err)
	}
	if s.nextOverrideID != 1 {
		t.Errorf("override rows created = %d, want 1", s.nextOverrideID)
	}
}

func TestMemory_GroupUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateGroup(ctx, &model.Group{ProjectPID: 100000, Name: "users"}); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if err := s.CreateGroup(ctx, &model.Group{ProjectPID: 100000, Name: "users"}); err != ErrDuplicate {
		t.Errorf("duplicate group error = %v, want ErrDuplicate", err)
	}
	// Same name under a different project is fine.
	if err := s.CreateGroup(ctx, &model.Group{ProjectPID: 100001, Name: "users"}); err != nil {
		t.Errorf("CreateGroup(other project) error = %v", err)
	}
}

func TestMemory_UserUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &model.User{UID: 10000, Username: "alice", Email: "alice@example.com", Password: "x"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	cases := []*model.User{
		{UID: 10000, Username: "bob", Email: "bob@example.com", Password: "x"},
		{UID: 10001, Username: "alice", Email: "carol@example.com", Password: "x"},
		{UID: 10002, Username: "carol", Email: "alice@example.com", Password: "x"},
	}
	for _, c := range cases {
		if err := s.CreateUser(ctx, c); err != ErrDuplicate {
			t.Errorf("CreateUser(%s) error = %v, want ErrDuplicate", c.Username, err)
		}
	}
}

func TestMemory_EndpointPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		e := &model.Endpoint{ID: fmt.Sprintf("e%d", i), ProjectID: 1, Path: fmt.Sprintf("/p/%d", i), Method: model.MethodGet}
		if err := s.CreateEndpoint(ctx, e); err != nil {
			t.Fatalf("CreateEndpoint() error = %v", err)
		}
	}

	page1, err := s.ListEndpoints(ctx, 1, 1, 10)
	if err != nil {
		t.Fatalf("ListEndpoints() error = %v", err)
	}
	if len(page1) != 10 {
		t.Errorf("page 1 len = %d, want 10", len(page1))
	}
	// Newest first.
	if page1[0].ID != "e24" {
		t.Errorf("page1[0].ID = %q, want e24", page1[0].ID)
	}

	page3, err := s.ListEndpoints(ctx, 1, 3, 10)
	if err != nil {
		t.Fatalf("ListEndpoints() error = %v", err)
	}
	if len(page3) != 5 {
		t.Errorf("page 3 len = %d, want 5", len(page3))
	}

	n, _ := s.CountEndpoints(ctx, 1)
	if n != 25 {
		t.Errorf("CountEndpoints() = %d, want 25", n)
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateVariant(ctx, newVariant("v1", "ep1", "one")); err != nil {
		t.Fatalf("CreateVariant() error = %v", err)
	}
	got, _ := s.GetVariant(ctx, "v1")
	got.Name = "mutated"

	again, _ := s.GetVariant(ctx, "v1")
	if again.Name != "one" {
		t.Errorf("store leaked internal pointer: name = %q", again.Name)
	}
}
