package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mocknest/mocknest/pkg/model"
)

// GormStore implements Store on a relational database through gorm.
// It holds no in-process locks: all exclusivity comes from the unique
// indexes declared on the models, surfaced here as ErrDuplicate.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the configured database and runs schema setup.
// Supported drivers: "sqlite", "postgres".
func Open(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// TranslateError maps driver-specific unique violations onto
		// gorm.ErrDuplicatedKey, which the allocator retry loop and
		// the group find-or-create fallback depend on.
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := model.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStore wraps an already-open gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	}
	return err
}

// first runs a lookup and converts "not found" into (zero, nil).
func first[T any](tx *gorm.DB) (*T, error) {
	var rec T
	if err := tx.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// --- Projects ---

func (s *GormStore) CreateProject(ctx context.Context, p *model.Project) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) MaxProjectPID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.WithContext(ctx).Model(&model.Project{}).
		Select("COALESCE(MAX(pid), 0)").Scan(&max).Error
	return max, err
}

func (s *GormStore) GetProject(ctx context.Context, id uint) (*model.Project, error) {
	return first[model.Project](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) GetProjectByPID(ctx context.Context, pid int64) (*model.Project, error) {
	return first[model.Project](s.db.WithContext(ctx).Where("pid = ?", pid))
}

func (s *GormStore) ListProjects(ctx context.Context, ownerID int64) ([]*model.Project, error) {
	var projects []*model.Project
	tx := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != 0 {
		tx = tx.Where("owner_id = ?", ownerID)
	}
	return projects, tx.Find(&projects).Error
}

func (s *GormStore) SaveProject(ctx context.Context, p *model.Project) error {
	return translate(s.db.WithContext(ctx).Save(p).Error)
}

func (s *GormStore) DeleteProject(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.Project{}, id)
	return res.RowsAffected > 0, res.Error
}

// --- Endpoints ---

func (s *GormStore) CreateEndpoint(ctx context.Context, e *model.Endpoint) error {
	return translate(s.db.WithContext(ctx).Create(e).Error)
}

func (s *GormStore) GetEndpoint(ctx context.Context, id string) (*model.Endpoint, error) {
	return first[model.Endpoint](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) SaveEndpoint(ctx context.Context, e *model.Endpoint) error {
	return translate(s.db.WithContext(ctx).Save(e).Error)
}

func (s *GormStore) DeleteEndpoint(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Endpoint{})
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) ListEndpoints(ctx context.Context, projectID uint, page, size int) ([]*model.Endpoint, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	var endpoints []*model.Endpoint
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&endpoints).Error
	return endpoints, err
}

func (s *GormStore) CountEndpoints(ctx context.Context, projectID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Endpoint{}).
		Where("project_id = ?", projectID).Count(&n).Error
	return n, err
}

func (s *GormStore) FindEndpointByPath(ctx context.Context, projectID uint, path string) (*model.Endpoint, error) {
	return first[model.Endpoint](s.db.WithContext(ctx).
		Where("project_id = ? AND path = ?", projectID, path))
}

// --- Variants ---

func (s *GormStore) CreateVariant(ctx context.Context, v *model.Variant) error {
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *GormStore) GetVariant(ctx context.Context, id string) (*model.Variant, error) {
	return first[model.Variant](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) SaveVariant(ctx context.Context, v *model.Variant) error {
	return translate(s.db.WithContext(ctx).Save(v).Error)
}

func (s *GormStore) DeleteVariant(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Variant{})
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) ListVariants(ctx context.Context, endpointID string) ([]*model.Variant, error) {
	var variants []*model.Variant
	err := s.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Order("created_at ASC, id ASC").
		Find(&variants).Error
	return variants, err
}

func (s *GormStore) GetActiveVariant(ctx context.Context, endpointID string) (*model.Variant, error) {
	return first[model.Variant](s.db.WithContext(ctx).
		Where("endpoint_id = ? AND is_active = ?", endpointID, true))
}

// ActivateVariant runs the clear-then-set sequence inside one storage
// transaction so concurrent activations for the same endpoint cannot
// leave zero or two active variants.
func (s *GormStore) ActivateVariant(ctx context.Context, endpointID, variantID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.Variant
		if err := tx.Where("id = ? AND endpoint_id = ?", variantID, endpointID).First(&v).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&model.Variant{}).
			Where("endpoint_id = ?", endpointID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Variant{}).
			Where("id = ?", variantID).
			Update("is_active", true).Error
	})
}

// --- Overrides ---

func (s *GormStore) UpsertOverride(ctx context.Context, userUID int64, endpointID, variantID string) (*model.Override, error) {
	o := &model.Override{
		UserUID:    userUID,
		EndpointID: endpointID,
		VariantID:  variantID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_uid"}, {Name: "endpoint_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"variant_id": variantID,
			"updated_at": time.Now(),
		}),
	}).Create(o).Error
	if err != nil {
		return nil, err
	}
	return s.GetOverride(ctx, userUID, endpointID)
}

func (s *GormStore) GetOverride(ctx context.Context, userUID int64, endpointID string) (*model.Override, error) {
	return first[model.Override](s.db.WithContext(ctx).
		Where("user_uid = ? AND endpoint_id = ?", userUID, endpointID))
}

// --- Groups ---

func (s *GormStore) CreateGroup(ctx context.Context, g *model.Group) error {
	return translate(s.db.WithContext(ctx).Create(g).Error)
}

func (s *GormStore) FindGroup(ctx context.Context, projectPID int64, name string) (*model.Group, error) {
	return first[model.Group](s.db.WithContext(ctx).
		Where("project_pid = ? AND name = ?", projectPID, name))
}

func (s *GormStore) ListGroups(ctx context.Context, projectPID int64) ([]*model.Group, error) {
	var groups []*model.Group
	err := s.db.WithContext(ctx).
		Where("project_pid = ?", projectPID).
		Order("created_at DESC").
		Find(&groups).Error
	return groups, err
}

// --- Users ---

func (s *GormStore) CreateUser(ctx context.Context, u *model.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) MaxUserUID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Select("COALESCE(MAX(uid), 0)").Scan(&max).Error
	return max, err
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return first[model.User](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return first[model.User](s.db.WithContext(ctx).Where("username = ?", username))
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return first[model.User](s.db.WithContext(ctx).Where("email = ?", email))
}

func (s *GormStore) SaveUser(ctx context.Context, u *model.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
