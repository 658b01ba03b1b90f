package importer

// ImportData is the parsed, not yet persisted tree of one export
type ImportData struct {
	WorkOrderID      string                   `json:"workOrderId,omitempty"`
	WorkOrderName    string                   `json:"workOrderName,omitempty"`
	Products         []*ImportProduct         `json:"products"`
	Hardware         []*ImportHardware        `json:"hardware"`
	DetachedProducts []*ImportDetachedProduct `json:"detachedProducts"`
	NestSheets       []*ImportNestSheet       `json:"nestSheets"`
	// Part identifier to sheet identifier, from the optimization results
	PartSheetMap map[string]string `json:"-"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// ImportProduct is a logical product with its declared quantity
type ImportProduct struct {
	ID            string               `json:"id"`
	ProductNumber string               `json:"productNumber"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	Quantity      int                  `json:"quantity"`
	Width         float64              `json:"width"`
	Height        float64              `json:"height"`
	Depth         float64              `json:"depth"`
	Parts         []*ImportPart        `json:"parts"`
	Subassemblies []*ImportSubassembly `json:"subassemblies"`
	Hardware      []*ImportHardware    `json:"hardware"`
	Source        Row                  `json:"-"`
}

// ImportSubassembly nests under a product or another subassembly
type ImportSubassembly struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	ProductID           string               `json:"productId,omitempty"`
	ParentSubassemblyID string               `json:"parentSubassemblyId,omitempty"`
	Quantity            int                  `json:"quantity"`
	Width               float64              `json:"width"`
	Height              float64              `json:"height"`
	Depth               float64              `json:"depth"`
	Parts               []*ImportPart        `json:"parts"`
	Subassemblies       []*ImportSubassembly `json:"subassemblies"`
	Hardware            []*ImportHardware    `json:"hardware,omitempty"`
}

// ImportPart is a part row of the export
type ImportPart struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ProductID         string  `json:"productId,omitempty"`
	SubassemblyID     string  `json:"subassemblyId,omitempty"`
	Quantity          int     `json:"quantity"`
	Length            float64 `json:"length"`
	Width             float64 `json:"width"`
	Thickness         float64 `json:"thickness"`
	Material          string  `json:"material"`
	EdgebandingTop    string  `json:"edgebandingTop,omitempty"`
	EdgebandingBottom string  `json:"edgebandingBottom,omitempty"`
	EdgebandingLeft   string  `json:"edgebandingLeft,omitempty"`
	EdgebandingRight  string  `json:"edgebandingRight,omitempty"`
	EdgeBandingCode   string  `json:"edgeBandingCode,omitempty"`
}

// ImportHardware is a hardware row; its quantity is never expanded
type ImportHardware struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ProductID     string `json:"productId,omitempty"`
	SubassemblyID string `json:"subassemblyId,omitempty"`
	Quantity      int    `json:"quantity"`
}

// ImportDetachedProduct is a product consisting of a single part
type ImportDetachedProduct struct {
	ID             string      `json:"id"`
	ProductNumber  string      `json:"productNumber"`
	Name           string      `json:"name"`
	Quantity       int         `json:"quantity"`
	Part           *ImportPart `json:"part"`
	PhysicalPartID string      `json:"physicalPartId"`
	// Product the unit was classified from; converted as such when selected as a product
	Product *ImportProduct `json:"-"`
}

// ImportNestSheet is a placed sheet from the nesting results
type ImportNestSheet struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Material  string  `json:"material"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Thickness float64 `json:"thickness"`
	Barcode   string  `json:"barcode"`
}

// Counts returns logical entity counts of the tree, used for previews and logs
func (d *ImportData) Counts() map[string]int {
	counts := map[string]int{
		"products":         len(d.Products),
		"hardware":         len(d.Hardware),
		"detachedProducts": len(d.DetachedProducts),
		"nestSheets":       len(d.NestSheets),
	}
	var walk func(subs []*ImportSubassembly)
	walk = func(subs []*ImportSubassembly) {
		for _, s := range subs {
			counts["subassemblies"]++
			counts["parts"] += len(s.Parts)
			counts["hardware"] += len(s.Hardware)
			walk(s.Subassemblies)
		}
	}
	for _, p := range d.Products {
		counts["parts"] += len(p.Parts)
		counts["hardware"] += len(p.Hardware)
		walk(p.Subassemblies)
	}
	return counts
}
