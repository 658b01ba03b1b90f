package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xelth-com/eckcutgo/internal/models"
)

// Compile-time contract assertion
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entities in maps. It backs tests and dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[models.EntityType]map[string]models.Entity
	order    map[models.EntityType][]string
	failNext error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[models.EntityType]map[string]models.Entity),
		order:  make(map[models.EntityType][]string),
	}
}

// Seed inserts entities directly, bypassing any unit of work
func (s *MemoryStore) Seed(entities ...models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		s.put(e)
	}
}

// FailNextCommit makes the next Commit return err without applying anything
func (s *MemoryStore) FailNextCommit(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Count returns the number of rows in a table
func (s *MemoryStore) Count(table models.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Get returns a stored entity
func (s *MemoryStore) Get(table models.EntityType, id string) (models.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tables[table][id]
	return e, ok
}

// All returns the rows of a table in insertion order
func (s *MemoryStore) All(table models.EntityType) []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entity, 0, len(s.order[table]))
	for _, id := range s.order[table] {
		out = append(out, s.tables[table][id])
	}
	return out
}

func (s *MemoryStore) put(e models.Entity) {
	t := e.GetEntityType()
	if s.tables[t] == nil {
		s.tables[t] = make(map[string]models.Entity)
	}
	if _, ok := s.tables[t][e.GetEntityID()]; !ok {
		s.order[t] = append(s.order[t], e.GetEntityID())
	}
	s.tables[t][e.GetEntityID()] = e
}

// Ping implements Store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Exists implements Store
func (s *MemoryStore) Exists(ctx context.Context, table models.EntityType, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[table][id]
	return ok, nil
}

// FindWorkOrders implements Store
func (s *MemoryStore) FindWorkOrders(ctx context.Context, id, name string) ([]models.WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []models.WorkOrder
	for _, key := range s.order[models.EntityWorkOrder] {
		wo := workOrderValue(s.tables[models.EntityWorkOrder][key])
		if (id != "" && wo.ID == id) || (name != "" && wo.Name == name) {
			found = append(found, wo)
		}
	}
	return found, nil
}

// LoadWorkOrder implements Store
func (s *MemoryStore) LoadWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tables[models.EntityWorkOrder][id]
	if !ok {
		return nil, ErrNotFound
	}
	wo := workOrderValue(e)

	sheetIndex := make(map[string]int)
	for _, key := range s.order[models.EntityNestSheet] {
		sheet := nestSheetValue(s.tables[models.EntityNestSheet][key])
		if sheet.WorkOrderID != id {
			continue
		}
		sheet.Parts = nil
		sheetIndex[sheet.ID] = len(wo.NestSheets)
		wo.NestSheets = append(wo.NestSheets, sheet)
	}
	for _, key := range s.order[models.EntityPart] {
		part := partValue(s.tables[models.EntityPart][key])
		if idx, ok := sheetIndex[part.NestSheetID]; ok && part.WorkOrderID == id {
			wo.NestSheets[idx].Parts = append(wo.NestSheets[idx].Parts, part)
		}
	}
	return &wo, nil
}

// UpdatePartCategories implements Store
func (s *MemoryStore) UpdatePartCategories(ctx context.Context, categories map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(categories))
	for id := range categories {
		if _, ok := s.tables[models.EntityPart][id]; !ok {
			return fmt.Errorf("part %s: %w", id, ErrNotFound)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		part := partValue(s.tables[models.EntityPart][id])
		part.Category = categories[id]
		s.tables[models.EntityPart][id] = &part
	}
	return nil
}

// Begin implements Store
func (s *MemoryStore) Begin(ctx context.Context) (UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryUnitOfWork{store: s}, nil
}

type memoryUnitOfWork struct {
	store    *MemoryStore
	staged   []models.Entity
	finished bool
}

func (u *memoryUnitOfWork) Add(entities ...models.Entity) {
	u.staged = append(u.staged, entities...)
}

func (u *memoryUnitOfWork) Len() int { return len(u.staged) }

func (u *memoryUnitOfWork) Commit(ctx context.Context) error {
	if u.finished {
		return ErrClosed
	}
	u.finished = true
	if err := ctx.Err(); err != nil {
		return err
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	// Validate everything before touching the tables so a failure applies nothing
	seen := make(map[models.EntityType]map[string]bool)
	for _, e := range u.staged {
		t := e.GetEntityType()
		if seen[t] == nil {
			seen[t] = make(map[string]bool)
		}
		id := e.GetEntityID()
		if id == "" {
			return fmt.Errorf("%s: empty identifier", t)
		}
		if _, ok := s.tables[t][id]; ok || seen[t][id] {
			return fmt.Errorf("%s %q: %w", t, id, ErrDuplicateKey)
		}
		seen[t][id] = true
	}

	grouped := groupByType(u.staged)
	for _, t := range models.EntityTypes {
		for _, e := range grouped[t] {
			s.put(e)
		}
	}
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	if u.finished {
		return nil
	}
	u.finished = true
	u.staged = nil
	return nil
}

func workOrderValue(e models.Entity) models.WorkOrder {
	switch v := e.(type) {
	case *models.WorkOrder:
		return *v
	case models.WorkOrder:
		return v
	}
	return models.WorkOrder{}
}

func nestSheetValue(e models.Entity) models.NestSheet {
	switch v := e.(type) {
	case *models.NestSheet:
		return *v
	case models.NestSheet:
		return v
	}
	return models.NestSheet{}
}

func partValue(e models.Entity) models.Part {
	switch v := e.(type) {
	case *models.Part:
		return *v
	case models.Part:
		return v
	}
	return models.Part{}
}
