package models

import "time"

// PartStatus tracks a part through the shop floor
type PartStatus string

const (
	PartStatusPending   PartStatus = "Pending"
	PartStatusCut       PartStatus = "Cut"
	PartStatusSorted    PartStatus = "Sorted"
	PartStatusAssembled PartStatus = "Assembled"
	PartStatusShipped   PartStatus = "Shipped"
)

// PartCategoryStandard is carried by every part until the categorizer has run
const PartCategoryStandard = "Standard"

// Part is a single cut part
type Part struct {
	ID                string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID       string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	ProductID         *string `gorm:"type:varchar(255);index" json:"product_id,omitempty"`
	SubassemblyID     *string `gorm:"type:varchar(255);index" json:"subassembly_id,omitempty"`
	DetachedProductID *string `gorm:"type:varchar(255);index" json:"detached_product_id,omitempty"`
	NestSheetID       string  `gorm:"type:varchar(255);not null;index" json:"nest_sheet_id"`

	Name      string  `gorm:"not null" json:"name"`
	Quantity  int     `gorm:"default:1" json:"quantity"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Thickness float64 `json:"thickness"`
	Material  string  `json:"material"`

	EdgebandingTop    string `json:"edgebanding_top"`
	EdgebandingBottom string `json:"edgebanding_bottom"`
	EdgebandingLeft   string `json:"edgebanding_left"`
	EdgebandingRight  string `json:"edgebanding_right"`
	// Banded sides as side letters in T, B, L, R order, e.g. "TL"
	EdgeBandingCode string `gorm:"type:varchar(4)" json:"edge_banding_code"`

	Status            PartStatus `gorm:"type:varchar(50);default:'Pending';index" json:"status"`
	StatusUpdatedDate *time.Time `json:"status_updated_date,omitempty"`
	Category          string     `gorm:"type:varchar(50);default:'Standard'" json:"category"`
}

func (Part) TableName() string { return string(EntityPart) }

func (p Part) GetEntityID() string       { return p.ID }
func (p Part) GetEntityType() EntityType { return EntityPart }

// Hardware items are tracked with their container quantity, never expanded per unit
type Hardware struct {
	ID            string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID   string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	ProductID     *string `gorm:"type:varchar(255);index" json:"product_id,omitempty"`
	SubassemblyID *string `gorm:"type:varchar(255);index" json:"subassembly_id,omitempty"`
	Name          string  `json:"name"`
	Quantity      int     `gorm:"default:1" json:"quantity"`
	Status        string  `gorm:"type:varchar(50);default:'Pending'" json:"status"`
}

func (Hardware) TableName() string { return string(EntityHardware) }

func (h Hardware) GetEntityID() string       { return h.ID }
func (h Hardware) GetEntityType() EntityType { return EntityHardware }

// NestSheet is a material sheet parts are cut from
type NestSheet struct {
	ID          string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	Name        string  `json:"name"`
	Material    string  `json:"material"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Thickness   float64 `json:"thickness"`
	Barcode     string  `gorm:"index" json:"barcode"`
	IsProcessed bool    `gorm:"default:false" json:"is_processed"`

	Parts []Part `gorm:"foreignKey:NestSheetID" json:"parts,omitempty"`
}

func (NestSheet) TableName() string { return string(EntityNestSheet) }

func (n NestSheet) GetEntityID() string       { return n.ID }
func (n NestSheet) GetEntityType() EntityType { return EntityNestSheet }
