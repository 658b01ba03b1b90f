// Package store persists work order entity graphs.
//
// The import pipeline only needs identifier existence checks, a work order
// lookup for duplicate detection and an atomic add-and-commit; both the GORM
// store and the in-memory store implement that contract.
package store

import (
	"context"
	"errors"

	"github.com/xelth-com/eckcutgo/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned by Commit when a staged identifier already exists
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrClosed is returned when a unit of work is used after commit or rollback
	ErrClosed = errors.New("unit of work already finished")
)

// Store is the persisted store contract used by the import pipeline
type Store interface {
	// Exists reports whether an entity with the identifier is persisted in the table
	Exists(ctx context.Context, table models.EntityType, id string) (bool, error)
	// FindWorkOrders returns work orders whose ID equals id or whose Name equals name
	FindWorkOrders(ctx context.Context, id, name string) ([]models.WorkOrder, error)
	// LoadWorkOrder returns a work order with its nest sheets and their parts
	LoadWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error)
	// UpdatePartCategories writes category labels keyed by part ID
	UpdatePartCategories(ctx context.Context, categories map[string]string) error
	// Begin starts a unit of work
	Begin(ctx context.Context) (UnitOfWork, error)
	// Ping reports whether the backing database answers
	Ping(ctx context.Context) error
}

// UnitOfWork stages entities and persists them all or nothing
type UnitOfWork interface {
	Add(entities ...models.Entity)
	Len() int
	Commit(ctx context.Context) error
	Rollback() error
}

// groupByType splits staged entities per table keeping their staging order
func groupByType(entities []models.Entity) map[models.EntityType][]models.Entity {
	grouped := make(map[models.EntityType][]models.Entity)
	for _, e := range entities {
		grouped[e.GetEntityType()] = append(grouped[e.GetEntityType()], e)
	}
	return grouped
}
