package models

import (
	"gorm.io/datatypes"
)

// Product is one physical product instance of a work order (quantity is always 1 once expanded)
type Product struct {
	ID            string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID   string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	ProductNumber string  `gorm:"index" json:"product_number"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Quantity      int     `gorm:"default:1" json:"quantity"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Depth         float64 `json:"depth"`
	Status        string  `gorm:"type:varchar(50);default:'Pending'" json:"status"`

	// Export row the product was built from, kept for traceability
	SourceData datatypes.JSON `gorm:"type:jsonb" json:"source_data,omitempty"`

	Parts         []Part        `gorm:"foreignKey:ProductID" json:"parts,omitempty"`
	Subassemblies []Subassembly `gorm:"foreignKey:ProductID" json:"subassemblies,omitempty"`
	Hardware      []Hardware    `gorm:"foreignKey:ProductID" json:"hardware,omitempty"`
}

func (Product) TableName() string { return string(EntityProduct) }

func (p Product) GetEntityID() string       { return p.ID }
func (p Product) GetEntityType() EntityType { return EntityProduct }

// Subassembly nests under a product or another subassembly
type Subassembly struct {
	ID                  string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID         string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	ProductID           *string `gorm:"type:varchar(255);index" json:"product_id,omitempty"`
	ParentSubassemblyID *string `gorm:"type:varchar(255);index" json:"parent_subassembly_id,omitempty"`
	Name                string  `json:"name"`
	Quantity            int     `gorm:"default:1" json:"quantity"`
	Width               float64 `json:"width"`
	Height              float64 `json:"height"`
	Depth               float64 `json:"depth"`

	Parts         []Part        `gorm:"foreignKey:SubassemblyID" json:"parts,omitempty"`
	Subassemblies []Subassembly `gorm:"foreignKey:ParentSubassemblyID" json:"subassemblies,omitempty"`
	Hardware      []Hardware    `gorm:"foreignKey:SubassemblyID" json:"hardware,omitempty"`
}

func (Subassembly) TableName() string { return string(EntitySubassembly) }

func (s Subassembly) GetEntityID() string       { return s.ID }
func (s Subassembly) GetEntityType() EntityType { return EntitySubassembly }

// DetachedProduct is a product made of exactly one part
type DetachedProduct struct {
	ID                string  `gorm:"primaryKey;type:varchar(255)" json:"id"`
	WorkOrderID       string  `gorm:"type:varchar(255);not null;index" json:"work_order_id"`
	ProductNumber     string  `gorm:"index" json:"product_number"`
	Name              string  `json:"name"`
	Quantity          int     `gorm:"default:1" json:"quantity"`
	Length            float64 `json:"length"`
	Width             float64 `json:"width"`
	Thickness         float64 `json:"thickness"`
	Material          string  `json:"material"`
	EdgebandingTop    string  `json:"edgebanding_top"`
	EdgebandingBottom string  `json:"edgebanding_bottom"`
	EdgebandingLeft   string  `json:"edgebanding_left"`
	EdgebandingRight  string  `json:"edgebanding_right"`
	// Part identifier from the export, reused by the companion part for scanning
	PhysicalPartID string `gorm:"type:varchar(255);index" json:"physical_part_id"`
	Status         string `gorm:"type:varchar(50);default:'Pending'" json:"status"`

	Parts []Part `gorm:"foreignKey:DetachedProductID" json:"parts,omitempty"`
}

func (DetachedProduct) TableName() string { return string(EntityDetachedProduct) }

func (d DetachedProduct) GetEntityID() string       { return d.ID }
func (d DetachedProduct) GetEntityType() EntityType { return EntityDetachedProduct }
