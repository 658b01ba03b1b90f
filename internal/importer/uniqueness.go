package importer

import (
	"context"
	"fmt"

	"github.com/xelth-com/eckcutgo/internal/models"
	"github.com/xelth-com/eckcutgo/internal/store"
)

const maxUniqueAttempts = 10000

// IDAllocator hands out identifiers that are unique both in the persisted
// store and among the identifiers already handed out in this conversion
type IDAllocator struct {
	store    store.Store
	reserved map[models.EntityType]map[string]bool
}

// NewIDAllocator creates an allocator for one conversion
func NewIDAllocator(st store.Store) *IDAllocator {
	return &IDAllocator{
		store:    st,
		reserved: make(map[models.EntityType]map[string]bool),
	}
}

// Claim returns base, or base with "_1", "_2", ... appended, whichever is free
// first, and reserves it
func (a *IDAllocator) Claim(ctx context.Context, table models.EntityType, base string) (string, error) {
	id, err := a.Peek(ctx, table, base, 1)
	if err != nil {
		return "", err
	}
	a.reserve(table, id)
	return id, nil
}

// Peek resolves the base of an entity that expands into units. It tries base,
// then base with "_1", "_2", ... appended, and returns the first candidate
// whose units are all free: the candidate itself for a single unit, otherwise
// every "<candidate>_<i>". Nothing is reserved; units are claimed one by one.
func (a *IDAllocator) Peek(ctx context.Context, table models.EntityType, base string, units int) (string, error) {
	if units > MaxExpandQuantity {
		units = MaxExpandQuantity
	}
	candidate := base
	for i := 1; i <= maxUniqueAttempts; i++ {
		free, err := a.unitsFree(ctx, table, candidate, units)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return "", fmt.Errorf("no unique %s identifier for %q after %d attempts", table, base, maxUniqueAttempts)
}

func (a *IDAllocator) unitsFree(ctx context.Context, table models.EntityType, base string, units int) (bool, error) {
	if units <= 1 {
		return a.free(ctx, table, base)
	}
	for i := 1; i <= units; i++ {
		free, err := a.free(ctx, table, fmt.Sprintf("%s_%d", base, i))
		if err != nil || !free {
			return false, err
		}
	}
	return true, nil
}

func (a *IDAllocator) free(ctx context.Context, table models.EntityType, id string) (bool, error) {
	if a.reserved[table][id] {
		return false, nil
	}
	exists, err := a.store.Exists(ctx, table, id)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (a *IDAllocator) reserve(table models.EntityType, id string) {
	if a.reserved[table] == nil {
		a.reserved[table] = make(map[string]bool)
	}
	a.reserved[table][id] = true
}
