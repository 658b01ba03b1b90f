package models

import "time"

// WorkOrder is the root of one import/selection commit
type WorkOrder struct {
	ID           string     `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Name         string     `gorm:"not null;index" json:"name"`
	ImportedDate time.Time  `gorm:"not null" json:"imported_date"`
	IsArchived   bool       `gorm:"default:false;index" json:"is_archived"`
	ArchivedDate *time.Time `json:"archived_date,omitempty"`

	// Relations
	Products         []Product         `gorm:"foreignKey:WorkOrderID" json:"products,omitempty"`
	Hardware         []Hardware        `gorm:"foreignKey:WorkOrderID" json:"hardware,omitempty"`
	DetachedProducts []DetachedProduct `gorm:"foreignKey:WorkOrderID" json:"detached_products,omitempty"`
	NestSheets       []NestSheet       `gorm:"foreignKey:WorkOrderID" json:"nest_sheets,omitempty"`
}

func (WorkOrder) TableName() string { return string(EntityWorkOrder) }

func (w WorkOrder) GetEntityID() string       { return w.ID }
func (w WorkOrder) GetEntityType() EntityType { return EntityWorkOrder }
