package models

// Entity is implemented by every persisted work order entity.
// The store uses it to stage rows and to check identifier uniqueness per table.
type Entity interface {
	GetEntityID() string
	GetEntityType() EntityType
}

// EntityType names the table an entity lives in
type EntityType string

const (
	EntityWorkOrder       EntityType = "work_orders"
	EntityProduct         EntityType = "products"
	EntitySubassembly     EntityType = "subassemblies"
	EntityPart            EntityType = "parts"
	EntityHardware        EntityType = "hardware"
	EntityDetachedProduct EntityType = "detached_products"
	EntityNestSheet       EntityType = "nest_sheets"
)

// EntityTypes lists tables in commit order (parents before children)
var EntityTypes = []EntityType{
	EntityWorkOrder,
	EntityNestSheet,
	EntityProduct,
	EntitySubassembly,
	EntityDetachedProduct,
	EntityPart,
	EntityHardware,
}

// AllModels returns the GORM models for schema migration
func AllModels() []interface{} {
	return []interface{}{
		&WorkOrder{},
		&NestSheet{},
		&Product{},
		&Subassembly{},
		&DetachedProduct{},
		&Part{},
		&Hardware{},
	}
}
