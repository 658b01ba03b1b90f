package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/eckcutgo/internal/models"
)

type recordedInsert struct {
	table string
	sql   string
}

// newDryRunDB builds statements against the postgres dialect without a server
func newDryRunDB(t *testing.T) (*gorm.DB, *[]recordedInsert) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=1 user=eckcut dbname=eckcut sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	var inserts []recordedInsert
	err = db.Callback().Create().After("gorm:create").Register("eckcut:record_insert", func(tx *gorm.DB) {
		inserts = append(inserts, recordedInsert{table: tx.Statement.Table, sql: tx.Statement.SQL.String()})
	})
	require.NoError(t, err)
	return db, &inserts
}

func TestTypedBatch(t *testing.T) {
	batch, err := typedBatch(models.EntityPart, []models.Entity{
		&models.Part{ID: "PT1"},
		models.Part{ID: "PT2"},
	})
	require.NoError(t, err)
	parts, ok := batch.([]*models.Part)
	require.True(t, ok, "got %T", batch)
	require.Len(t, parts, 2)
	assert.Equal(t, "PT1", parts[0].ID)
	assert.Equal(t, "PT2", parts[1].ID)

	batch, err = typedBatch(models.EntityWorkOrder, []models.Entity{models.WorkOrder{ID: "WO1"}})
	require.NoError(t, err)
	assert.IsType(t, []*models.WorkOrder{}, batch)

	_, err = typedBatch(models.EntityPart, []models.Entity{&models.Product{ID: "P1"}})
	assert.Error(t, err)

	_, err = typedBatch(models.EntityType("widgets"), nil)
	assert.Error(t, err)
}

func TestInsertStaged_ParentsBeforeChildren(t *testing.T) {
	db, inserts := newDryRunDB(t)
	productID := "P1"
	subID := "S1"

	err := insertStaged(db, []models.Entity{
		&models.Hardware{ID: "H1", WorkOrderID: "WO1", ProductID: &productID, Quantity: 4},
		&models.Part{ID: "PT1", WorkOrderID: "WO1", SubassemblyID: &subID, NestSheetID: "N1"},
		&models.Part{ID: "PT2", WorkOrderID: "WO1", ProductID: &productID, NestSheetID: "N1"},
		&models.Subassembly{ID: subID, WorkOrderID: "WO1", ProductID: &productID},
		&models.Product{ID: productID, WorkOrderID: "WO1", Parts: []models.Part{{ID: "PT2"}}},
		&models.NestSheet{ID: "N1", WorkOrderID: "WO1", Parts: []models.Part{{ID: "PT1"}}},
		models.WorkOrder{ID: "WO1", Name: "Kitchen"},
	})
	require.NoError(t, err)

	var tables []string
	for _, ins := range *inserts {
		tables = append(tables, ins.table)
	}
	// Associations are omitted, so each table is written exactly once
	assert.Equal(t, []string{"work_orders", "nest_sheets", "products", "subassemblies", "parts", "hardware"}, tables)

	parts := (*inserts)[4].sql
	assert.True(t, strings.HasPrefix(parts, `INSERT INTO "parts"`), parts)
	assert.Equal(t, 1, strings.Count(parts, "),("), "both parts go in one statement: %s", parts)
}

func TestInsertStaged_RejectsForeignEntity(t *testing.T) {
	db, inserts := newDryRunDB(t)
	err := insertStaged(db, []models.Entity{mislabeled{}})
	assert.Error(t, err)
	assert.Empty(t, *inserts)
}

// mislabeled claims the parts table without being a part
type mislabeled struct{}

func (mislabeled) GetEntityID() string              { return "X" }
func (mislabeled) GetEntityType() models.EntityType { return models.EntityPart }
