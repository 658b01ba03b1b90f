package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckcutgo/internal/database"
	"github.com/xelth-com/eckcutgo/internal/models"
)

// Compile-time contract assertion
var _ Store = (*GormStore)(nil)

const createBatchSize = 200

// GormStore persists work orders in PostgreSQL through GORM
type GormStore struct {
	db *database.DB
}

// NewGormStore creates a store on an open database connection
func NewGormStore(db *database.DB) *GormStore {
	return &GormStore{db: db}
}

// Ping implements Store
func (s *GormStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Exists implements Store
func (s *GormStore) Exists(ctx context.Context, table models.EntityType, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table(string(table)).
		Where("id = ?", id).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s %q: %w", table, id, err)
	}
	return count > 0, nil
}

// FindWorkOrders implements Store
func (s *GormStore) FindWorkOrders(ctx context.Context, id, name string) ([]models.WorkOrder, error) {
	var workOrders []models.WorkOrder
	err := s.db.WithContext(ctx).
		Where("id = ? OR name = ?", id, name).
		Order("imported_date ASC").
		Find(&workOrders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up work orders: %w", err)
	}
	return workOrders, nil
}

// LoadWorkOrder implements Store
func (s *GormStore) LoadWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.WithContext(ctx).
		Preload("NestSheets", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("NestSheets.Parts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&wo, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %q: %w", id, err)
	}
	return &wo, nil
}

// UpdatePartCategories implements Store
func (s *GormStore) UpdatePartCategories(ctx context.Context, categories map[string]string) error {
	// Group by label so each category is one UPDATE
	byCategory := make(map[string][]string)
	for id, category := range categories {
		byCategory[category] = append(byCategory[category], id)
	}
	labels := make([]string, 0, len(byCategory))
	for label := range byCategory {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, label := range labels {
			err := tx.Model(&models.Part{}).
				Where("id IN ?", byCategory[label]).
				Update("category", label).Error
			if err != nil {
				return fmt.Errorf("failed to categorize parts as %q: %w", label, err)
			}
		}
		return nil
	})
}

// Begin implements Store
func (s *GormStore) Begin(ctx context.Context) (UnitOfWork, error) {
	return &gormUnitOfWork{db: s.db.DB}, nil
}

type gormUnitOfWork struct {
	db       *gorm.DB
	staged   []models.Entity
	finished bool
}

func (u *gormUnitOfWork) Add(entities ...models.Entity) {
	u.staged = append(u.staged, entities...)
}

func (u *gormUnitOfWork) Len() int { return len(u.staged) }

// Commit inserts every staged row in one transaction, parents before children
func (u *gormUnitOfWork) Commit(ctx context.Context) error {
	if u.finished {
		return ErrClosed
	}
	u.finished = true

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertStaged(tx, u.staged)
	})
}

// insertStaged inserts the entities table by table in models.EntityTypes order
func insertStaged(tx *gorm.DB, staged []models.Entity) error {
	grouped := groupByType(staged)
	for _, t := range models.EntityTypes {
		rows := grouped[t]
		if len(rows) == 0 {
			continue
		}
		batch, err := typedBatch(t, rows)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).CreateInBatches(batch, createBatchSize).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("failed to insert %s: %w", t, ErrDuplicateKey)
			}
			return fmt.Errorf("failed to insert %s: %w", t, err)
		}
	}
	return nil
}

// Rollback drops staged rows; nothing touches the database before Commit
func (u *gormUnitOfWork) Rollback() error {
	u.finished = true
	u.staged = nil
	return nil
}

// typedBatch converts staged entities into a slice GORM can insert in one statement
func typedBatch(t models.EntityType, rows []models.Entity) (interface{}, error) {
	switch t {
	case models.EntityWorkOrder:
		return collect[models.WorkOrder](rows)
	case models.EntityNestSheet:
		return collect[models.NestSheet](rows)
	case models.EntityProduct:
		return collect[models.Product](rows)
	case models.EntitySubassembly:
		return collect[models.Subassembly](rows)
	case models.EntityDetachedProduct:
		return collect[models.DetachedProduct](rows)
	case models.EntityPart:
		return collect[models.Part](rows)
	case models.EntityHardware:
		return collect[models.Hardware](rows)
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// collect accepts entities staged either by pointer or by value
func collect[T any](rows []models.Entity) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		switch v := any(row).(type) {
		case *T:
			out = append(out, v)
		case T:
			c := v
			out = append(out, &c)
		default:
			return nil, fmt.Errorf("unexpected entity %T", row)
		}
	}
	return out, nil
}
