package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xelth-com/eckcutgo/internal/models"
	"github.com/xelth-com/eckcutgo/internal/store"
)

const maxSuggestionAttempts = 5

// DuplicateDetectionResult describes a clash between a candidate work order and persisted ones
type DuplicateDetectionResult struct {
	HasDuplicateID        bool       `json:"hasDuplicateId"`
	HasDuplicateName      bool       `json:"hasDuplicateName"`
	ExistingWorkOrderID   string     `json:"existingWorkOrderId,omitempty"`
	ExistingWorkOrderName string     `json:"existingWorkOrderName,omitempty"`
	ExistingImportedDate  *time.Time `json:"existingImportedDate,omitempty"`
	SuggestedID           string     `json:"suggestedId,omitempty"`
	SuggestedName         string     `json:"suggestedName,omitempty"`
	Messages              []string   `json:"messages,omitempty"`
}

// HasConflict reports whether the identifier or the name is taken
func (d *DuplicateDetectionResult) HasConflict() bool {
	return d.HasDuplicateID || d.HasDuplicateName
}

// DuplicateResolver checks candidate work orders against the store
type DuplicateResolver struct {
	store     store.Store
	now       func() time.Time
	newSuffix func() string
}

// NewDuplicateResolver creates a resolver on the store
func NewDuplicateResolver(st store.Store) *DuplicateResolver {
	return &DuplicateResolver{
		store:     st,
		now:       time.Now,
		newSuffix: func() string { return uuid.NewString()[:4] },
	}
}

// Check looks for persisted work orders sharing the identifier or the name.
// On a clash the result carries timestamp-suffixed alternates for both.
func (r *DuplicateResolver) Check(ctx context.Context, id, name string) (*DuplicateDetectionResult, error) {
	existing, err := r.store.FindWorkOrders(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate work orders: %w", err)
	}

	result := &DuplicateDetectionResult{}
	var match *models.WorkOrder
	for i := range existing {
		wo := &existing[i]
		if id != "" && wo.ID == id {
			result.HasDuplicateID = true
			match = wo
		}
		if name != "" && wo.Name == name {
			result.HasDuplicateName = true
			if match == nil {
				match = wo
			}
		}
	}
	if !result.HasConflict() {
		return result, nil
	}

	imported := match.ImportedDate
	result.ExistingWorkOrderID = match.ID
	result.ExistingWorkOrderName = match.Name
	result.ExistingImportedDate = &imported

	if result.HasDuplicateID {
		result.Messages = append(result.Messages, fmt.Sprintf(
			"Work order ID '%s' already exists (name '%s', imported %s)",
			id, match.Name, imported.Format("2006-01-02 15:04")))
	}
	if result.HasDuplicateName {
		result.Messages = append(result.Messages, fmt.Sprintf(
			"Work order name '%s' already exists (ID '%s', imported %s)",
			name, match.ID, imported.Format("2006-01-02 15:04")))
	}

	now := r.now()
	if result.SuggestedID, err = r.suggestID(ctx, id, now); err != nil {
		return nil, err
	}
	if result.SuggestedName, err = r.suggestName(ctx, name, now); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *DuplicateResolver) suggestID(ctx context.Context, id string, now time.Time) (string, error) {
	stamped := fmt.Sprintf("%s_%s", id, now.Format("20060102150405"))
	candidate := stamped
	for i := 0; i < maxSuggestionAttempts; i++ {
		exists, err := r.store.Exists(ctx, models.EntityWorkOrder, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check suggested work order ID: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%s", stamped, r.newSuffix())
	}
	return "", fmt.Errorf("could not derive a free work order ID from %q", id)
}

func (r *DuplicateResolver) suggestName(ctx context.Context, name string, now time.Time) (string, error) {
	stamped := fmt.Sprintf("%s (%s)", name, now.Format("2006-01-02 15:04:05"))
	candidate := stamped
	for i := 0; i < maxSuggestionAttempts; i++ {
		taken, err := r.store.FindWorkOrders(ctx, "", candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check suggested work order name: %w", err)
		}
		if len(taken) == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s [%s]", stamped, r.newSuffix())
	}
	return "", fmt.Errorf("could not derive a free work order name from %q", name)
}
