package database

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/models"
)

// workOrderIndexes back the lookups the importer and the label printer run
// per work order. AutoMigrate only creates the single-column ones.
var workOrderIndexes = []struct {
	name, table, columns string
}{
	{"idx_work_orders_imported_date", "work_orders", "imported_date"},
	{"idx_parts_work_order_sheet", "parts", "work_order_id, nest_sheet_id"},
	{"idx_nest_sheets_work_order_barcode", "nest_sheets", "work_order_id, barcode"},
	{"idx_hardware_work_order_owner", "hardware", "work_order_id, product_id, subassembly_id"},
}

func indexStatement(name, table, columns string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, columns)
}

// AutoMigrate synchronizes the work order schema and its composite indexes
func (db *DB) AutoMigrate() error {
	if err := db.DB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	for _, idx := range workOrderIndexes {
		if err := db.Exec(indexStatement(idx.name, idx.table, idx.columns)).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	db.log.Info("Schema migrated", zap.Int("models", len(models.AllModels())), zap.Int("indexes", len(workOrderIndexes)))
	return nil
}
