// Package model defines the persisted records of the mock platform:
// projects, endpoints, response variants, per-user overrides, groups,
// and user accounts.
package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Method is a declared HTTP method on an endpoint, stored lowercase.
type Method string

// Supported endpoint methods.
const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodPatch  Method = "patch"
	MethodDelete Method = "delete"
)

// ParseMethod normalizes and validates an HTTP method string.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("unsupported method %q", s)
}

// Matches reports whether an incoming request method matches the
// declared one, case-insensitively.
func (m Method) Matches(requestMethod string) bool {
	return string(m) == strings.ToLower(requestMethod)
}

// Project is a mock-API workspace. PID is the externally visible
// public id; it is assigned exactly once by the allocator and never
// reused or reassigned. The unique index on pid is the concurrency
// primitive the allocator's retry loop relies on.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PID         int64     `gorm:"column:pid;uniqueIndex;not null" json:"pid"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Host        string    `gorm:"size:100" json:"host,omitempty"`
	OwnerID     int64     `gorm:"index;not null" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Endpoint is a declared (method, path) contract inside a project.
// (project_id, path) is unique by convention only; no constraint
// enforces it.
type Endpoint struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   uint      `gorm:"index;not null" json:"project_id"`
	Path        string    `gorm:"size:255;not null" json:"path"`
	Method      Method    `gorm:"size:10;not null" json:"method"`
	Group       string    `gorm:"column:group_name;size:50" json:"group,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is one named response payload for an endpoint. Payload is
// opaque text at rest; it is parsed only at resolution time. At most
// one variant per endpoint has IsActive set, and the flag is mutated
// exclusively through the activation path.
type Variant struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EndpointID string    `gorm:"size:36;index;not null" json:"endpoint_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	IsActive   bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Override pins a specific variant to a specific (user, endpoint)
// pair. The unique index on (user_uid, endpoint_id) makes the upsert
// a single conditional write.
type Override struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserUID    int64     `gorm:"column:user_uid;not null;uniqueIndex:idx_override_user_endpoint" json:"user_uid"`
	EndpointID string    `gorm:"size:36;not null;uniqueIndex:idx_override_user_endpoint" json:"endpoint_id"`
	VariantID  string    `gorm:"size:36;not null;index" json:"variant_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Group names a set of endpoints inside a project, keyed by the
// project's public id. (project_pid, name) is unique; concurrent
// creation falls back to re-reading the winner.
type Group struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectPID int64     `gorm:"column:project_pid;not null;uniqueIndex:idx_group_project_name" json:"project_pid"`
	Name       string    `gorm:"size:50;not null;uniqueIndex:idx_group_project_name" json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// User roles and statuses.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User is an account on the management surface. UID is the public
// user identifier referenced by overrides and the proxy path.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UID         int64      `gorm:"column:uid;uniqueIndex;not null" json:"uid"`
	Username    string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"size:200;not null" json:"-"`
	Nickname    string     `gorm:"size:50" json:"nickname,omitempty"`
	Phone       string     `gorm:"size:20" json:"phone,omitempty"`
	Role        string     `gorm:"size:20;not null;default:user" json:"role"`
	Status      string     `gorm:"size:20;not null;default:active" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// All lists every model for schema setup.
func All() []any {
	return []any{&Project{}, &Endpoint{}, &Variant{}, &Override{}, &Group{}, &User{}}
}

// Migrate creates or updates the relational schema, including the
// unique indexes the concurrency model depends on.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
