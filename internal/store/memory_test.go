package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/eckcutgo/internal/models"
)

func TestMemoryStore_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	uow, err := st.Begin(ctx)
	require.NoError(t, err)
	productID := "P1"
	// Staged out of dependency order on purpose
	uow.Add(
		&models.Part{ID: "PT1", WorkOrderID: "WO1", ProductID: &productID, NestSheetID: "N1"},
		&models.Product{ID: productID, WorkOrderID: "WO1"},
		&models.NestSheet{ID: "N1", WorkOrderID: "WO1", Name: "Sheet 1"},
		&models.WorkOrder{ID: "WO1", Name: "Kitchen"},
	)
	assert.Equal(t, 4, uow.Len())
	require.NoError(t, uow.Commit(ctx))

	exists, err := st.Exists(ctx, models.EntityPart, "PT1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = st.Exists(ctx, models.EntityProduct, "PT1")
	require.NoError(t, err)
	assert.False(t, exists, "identifiers are scoped per table")

	wo, err := st.LoadWorkOrder(ctx, "WO1")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", wo.Name)
	require.Len(t, wo.NestSheets, 1)
	require.Len(t, wo.NestSheets[0].Parts, 1)
	assert.Equal(t, "PT1", wo.NestSheets[0].Parts[0].ID)

	_, err = st.LoadWorkOrder(ctx, "WO2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, uow.Commit(ctx), ErrClosed)
	assert.NoError(t, uow.Rollback())
}

func TestMemoryStore_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	st.Seed(&models.Part{ID: "PT1"})

	uow, err := st.Begin(ctx)
	require.NoError(t, err)
	uow.Add(
		&models.WorkOrder{ID: "WO1", Name: "Kitchen"},
		&models.Part{ID: "PT2"},
		&models.Part{ID: "PT1"},
	)
	err = uow.Commit(ctx)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 0, st.Count(models.EntityWorkOrder))
	assert.Equal(t, 1, st.Count(models.EntityPart))

	uow, err = st.Begin(ctx)
	require.NoError(t, err)
	uow.Add(&models.Part{ID: "PT3"}, &models.Part{ID: "PT3"})
	assert.ErrorIs(t, uow.Commit(ctx), ErrDuplicateKey)

	uow, err = st.Begin(ctx)
	require.NoError(t, err)
	uow.Add(&models.Part{ID: ""})
	assert.Error(t, uow.Commit(ctx))
	assert.Equal(t, 1, st.Count(models.EntityPart))
}

func TestMemoryStore_FailNextCommit(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	boom := errors.New("boom")
	st.FailNextCommit(boom)

	uow, _ := st.Begin(ctx)
	uow.Add(&models.WorkOrder{ID: "WO1"})
	assert.ErrorIs(t, uow.Commit(ctx), boom)
	assert.Equal(t, 0, st.Count(models.EntityWorkOrder))

	uow, _ = st.Begin(ctx)
	uow.Add(&models.WorkOrder{ID: "WO1"})
	assert.NoError(t, uow.Commit(ctx))
}

func TestMemoryStore_Rollback(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	uow, _ := st.Begin(ctx)
	uow.Add(&models.WorkOrder{ID: "WO1"})
	require.NoError(t, uow.Rollback())
	assert.ErrorIs(t, uow.Commit(ctx), ErrClosed)
	assert.Equal(t, 0, st.Count(models.EntityWorkOrder))
}

func TestMemoryStore_FindWorkOrders(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	st.Seed(
		&models.WorkOrder{ID: "WO1", Name: "Kitchen"},
		&models.WorkOrder{ID: "WO2", Name: "Bath"},
	)

	found, err := st.FindWorkOrders(ctx, "WO2", "Kitchen")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = st.FindWorkOrders(ctx, "", "Bath")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "WO2", found[0].ID)

	found, err = st.FindWorkOrders(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryStore_UpdatePartCategories(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	st.Seed(&models.Part{ID: "PT1", Category: models.PartCategoryStandard})

	require.NoError(t, st.UpdatePartCategories(ctx, map[string]string{"PT1": "Doors"}))
	e, _ := st.Get(models.EntityPart, "PT1")
	assert.Equal(t, "Doors", e.(*models.Part).Category)

	err := st.UpdatePartCategories(ctx, map[string]string{"PT9": "Doors"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := NewMemoryStore()

	_, err := st.Exists(ctx, models.EntityPart, "PT1")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = st.Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
