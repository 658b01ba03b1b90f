package importer

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/metrics"
)

// TreeBuilder assembles flat export rows into product trees
type TreeBuilder struct {
	fields *FieldResolver
	log    *zap.Logger
	newID  func() string
}

// NewTreeBuilder creates a tree builder reading rows through the field resolver
func NewTreeBuilder(fields *FieldResolver, log *zap.Logger) *TreeBuilder {
	return &TreeBuilder{
		fields: fields,
		log:    log,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// rowIndex groups rows by their string foreign keys
type rowIndex struct {
	directParts        map[string][]Row // product ID -> parts without a subassembly
	subassemblyParts   map[string][]Row // subassembly ID -> parts
	topSubassemblies   map[string][]Row // product ID -> subassemblies without a parent
	childSubassemblies map[string][]Row // parent subassembly ID -> subassemblies
	productHardware    map[string][]Row // product ID -> hardware without a subassembly
	subHardware        map[string][]Row // subassembly ID -> hardware
	visited            map[string]bool  // subassembly IDs reached from a product
}

// Build parses the bundle into an ImportData tree. Problems in the data become
// warnings with fallback values; Build never fails.
func (b *TreeBuilder) Build(bundle *Bundle) *ImportData {
	data := &ImportData{}
	idx := b.index(bundle)

	for table, rows := range map[TableType][]Row{
		TableProducts:            bundle.Products,
		TableSubassemblies:       bundle.Subassemblies,
		TableParts:               bundle.Parts,
		TableHardware:            bundle.Hardware,
		TablePlacedSheets:        bundle.NestSheets,
		TableOptimizationResults: bundle.OptimizationResults,
	} {
		metrics.RowsParsed.WithLabelValues(string(table)).Add(float64(len(rows)))
	}

	productIDs := make(map[string]bool, len(bundle.Products))
	for _, row := range bundle.Products {
		product := b.buildProduct(row, idx, data)
		productIDs[product.ID] = true

		if data.WorkOrderID == "" {
			data.WorkOrderID = b.fields.String(TableProducts, row, "WorkOrderId")
		}
		if data.WorkOrderName == "" {
			data.WorkOrderName = b.fields.String(TableProducts, row, "WorkOrderName")
		}

		if isDetached(product) {
			data.DetachedProducts = append(data.DetachedProducts, toDetached(product))
			continue
		}
		data.Products = append(data.Products, product)
	}

	// Hardware that no product or subassembly claims belongs to the work order itself
	for _, row := range bundle.Hardware {
		subID := b.fields.String(TableHardware, row, "SubassemblyId")
		if subID != "" && idx.visited[subID] {
			continue
		}
		productID := b.fields.String(TableHardware, row, "ProductId")
		if subID == "" && productID != "" && productIDs[productID] {
			continue
		}
		data.Hardware = append(data.Hardware, b.buildHardware(row))
	}

	b.warnUnreachable(bundle, productIDs, idx, data)
	data.NestSheets = b.buildNestSheets(bundle.NestSheets, data)
	data.PartSheetMap = BuildPartSheetMap(b.fields, bundle.OptimizationResults)

	b.log.Info("Import tree built",
		zap.String("work_order_id", data.WorkOrderID),
		zap.Any("counts", data.Counts()),
		zap.Int("warnings", len(data.Warnings)))
	return data
}

func (b *TreeBuilder) index(bundle *Bundle) *rowIndex {
	idx := &rowIndex{
		directParts:        make(map[string][]Row),
		subassemblyParts:   make(map[string][]Row),
		topSubassemblies:   make(map[string][]Row),
		childSubassemblies: make(map[string][]Row),
		productHardware:    make(map[string][]Row),
		subHardware:        make(map[string][]Row),
		visited:            make(map[string]bool),
	}
	for _, row := range bundle.Parts {
		if subID := b.fields.String(TableParts, row, "SubassemblyId"); subID != "" {
			idx.subassemblyParts[subID] = append(idx.subassemblyParts[subID], row)
			continue
		}
		productID := b.fields.String(TableParts, row, "ProductId")
		idx.directParts[productID] = append(idx.directParts[productID], row)
	}
	for _, row := range bundle.Subassemblies {
		if parentID := b.fields.String(TableSubassemblies, row, "ParentSubassemblyId"); parentID != "" {
			idx.childSubassemblies[parentID] = append(idx.childSubassemblies[parentID], row)
			continue
		}
		productID := b.fields.String(TableSubassemblies, row, "ProductId")
		idx.topSubassemblies[productID] = append(idx.topSubassemblies[productID], row)
	}
	for _, row := range bundle.Hardware {
		if subID := b.fields.String(TableHardware, row, "SubassemblyId"); subID != "" {
			idx.subHardware[subID] = append(idx.subHardware[subID], row)
			continue
		}
		productID := b.fields.String(TableHardware, row, "ProductId")
		idx.productHardware[productID] = append(idx.productHardware[productID], row)
	}
	return idx
}

func (b *TreeBuilder) buildProduct(row Row, idx *rowIndex, data *ImportData) *ImportProduct {
	f := b.fields
	product := &ImportProduct{
		ID:            f.String(TableProducts, row, "ProductId"),
		ProductNumber: f.String(TableProducts, row, "ItemNumber"),
		Name:          f.String(TableProducts, row, "Name"),
		Description:   f.String(TableProducts, row, "Description"),
		Quantity:      b.unitCount(TableProducts, row, data),
		Width:         f.Decimal(TableProducts, row, "Width"),
		Height:        f.Decimal(TableProducts, row, "Height"),
		Depth:         f.Decimal(TableProducts, row, "Depth"),
		Source:        row,
	}
	if product.Name == "" {
		product.Name = product.Description
	}
	if product.ID == "" {
		product.ID = "EMPTY_PROD_" + b.newID()
		b.warn(data, "empty_product_id",
			fmt.Sprintf("Product %q has no identifier, using placeholder %s", product.Name, product.ID))
		return product
	}

	for _, partRow := range idx.directParts[product.ID] {
		product.Parts = append(product.Parts, b.buildPart(partRow))
	}
	for _, subRow := range idx.topSubassemblies[product.ID] {
		processing := make(map[string]bool)
		product.Subassemblies = append(product.Subassemblies,
			b.buildSubassembly(subRow, product.ID, idx, processing, data))
	}
	for _, hwRow := range idx.productHardware[product.ID] {
		product.Hardware = append(product.Hardware, b.buildHardware(hwRow))
	}
	return product
}

// buildSubassembly recurses into nested subassemblies. processing holds the
// identifiers on the current path; meeting one again ends the branch.
func (b *TreeBuilder) buildSubassembly(row Row, productID string, idx *rowIndex, processing map[string]bool, data *ImportData) *ImportSubassembly {
	f := b.fields
	sub := &ImportSubassembly{
		ID:                  f.String(TableSubassemblies, row, "SubassemblyId"),
		Name:                f.String(TableSubassemblies, row, "Name"),
		ProductID:           f.String(TableSubassemblies, row, "ProductId"),
		ParentSubassemblyID: f.String(TableSubassemblies, row, "ParentSubassemblyId"),
		Quantity:            b.unitCount(TableSubassemblies, row, data),
		Width:               f.Decimal(TableSubassemblies, row, "Width"),
		Height:              f.Decimal(TableSubassemblies, row, "Height"),
		Depth:               f.Decimal(TableSubassemblies, row, "Depth"),
	}
	if sub.ProductID == "" {
		sub.ProductID = productID
	}

	if sub.ID == "" {
		sub.ID = "EMPTY_SUB_" + b.newID()
		b.warn(data, "empty_subassembly_id",
			fmt.Sprintf("Subassembly %q under product %s has no identifier, using placeholder %s", sub.Name, productID, sub.ID))
		return sub
	}

	if processing[sub.ID] {
		b.warn(data, "subassembly_cycle",
			fmt.Sprintf("Circular subassembly reference at %s under product %s, nested expansion stopped", sub.ID, productID))
		return sub
	}
	processing[sub.ID] = true
	defer delete(processing, sub.ID)
	idx.visited[sub.ID] = true

	for _, partRow := range idx.subassemblyParts[sub.ID] {
		sub.Parts = append(sub.Parts, b.buildPart(partRow))
	}
	for _, hwRow := range idx.subHardware[sub.ID] {
		sub.Hardware = append(sub.Hardware, b.buildHardware(hwRow))
	}
	for _, childRow := range idx.childSubassemblies[sub.ID] {
		sub.Subassemblies = append(sub.Subassemblies,
			b.buildSubassembly(childRow, productID, idx, processing, data))
	}
	return sub
}

func (b *TreeBuilder) buildPart(row Row) *ImportPart {
	f := b.fields
	part := &ImportPart{
		ID:                f.String(TableParts, row, "PartId"),
		Name:              f.String(TableParts, row, "Name"),
		ProductID:         f.String(TableParts, row, "ProductId"),
		SubassemblyID:     f.String(TableParts, row, "SubassemblyId"),
		Quantity:          f.Int(TableParts, row, "Quantity"),
		Length:            f.Decimal(TableParts, row, "Length"),
		Width:             f.Decimal(TableParts, row, "Width"),
		Thickness:         f.Decimal(TableParts, row, "Thickness"),
		Material:          f.String(TableParts, row, "Material"),
		EdgebandingTop:    f.String(TableParts, row, "EdgebandingTop"),
		EdgebandingBottom: f.String(TableParts, row, "EdgebandingBottom"),
		EdgebandingLeft:   f.String(TableParts, row, "EdgebandingLeft"),
		EdgebandingRight:  f.String(TableParts, row, "EdgebandingRight"),
	}
	part.EdgeBandingCode = EdgeBandingCode(part.EdgebandingTop, part.EdgebandingBottom, part.EdgebandingLeft, part.EdgebandingRight)
	return part
}

func (b *TreeBuilder) buildHardware(row Row) *ImportHardware {
	f := b.fields
	return &ImportHardware{
		ID:            f.String(TableHardware, row, "HardwareId"),
		Name:          f.String(TableHardware, row, "Name"),
		ProductID:     f.String(TableHardware, row, "ProductId"),
		SubassemblyID: f.String(TableHardware, row, "SubassemblyId"),
		Quantity:      f.Int(TableHardware, row, "Quantity"),
	}
}

func (b *TreeBuilder) buildNestSheets(rows []Row, data *ImportData) []*ImportNestSheet {
	f := b.fields
	seen := make(map[string]bool, len(rows))
	sheets := make([]*ImportNestSheet, 0, len(rows))
	for _, row := range rows {
		sheet := &ImportNestSheet{
			ID:        f.String(TablePlacedSheets, row, "SheetId"),
			Name:      f.String(TablePlacedSheets, row, "Name"),
			Material:  f.String(TablePlacedSheets, row, "Material"),
			Length:    f.Decimal(TablePlacedSheets, row, "Length"),
			Width:     f.Decimal(TablePlacedSheets, row, "Width"),
			Thickness: f.Decimal(TablePlacedSheets, row, "Thickness"),
			Barcode:   f.String(TablePlacedSheets, row, "Barcode"),
		}
		if sheet.ID == "" {
			b.warn(data, "empty_sheet_id", fmt.Sprintf("Nest sheet %q has no identifier and was skipped", sheet.Name))
			continue
		}
		if seen[sheet.ID] {
			continue
		}
		seen[sheet.ID] = true
		if sheet.Name == "" {
			sheet.Name = sheet.ID
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// warnUnreachable reports rows no product picked up. Subassemblies whose
// parents only point at each other never hang off a product and end up here.
func (b *TreeBuilder) warnUnreachable(bundle *Bundle, productIDs map[string]bool, idx *rowIndex, data *ImportData) {
	unreachable := 0
	for _, row := range bundle.Subassemblies {
		id := b.fields.String(TableSubassemblies, row, "SubassemblyId")
		if id != "" && !idx.visited[id] {
			unreachable++
		}
	}
	if unreachable > 0 {
		b.warn(data, "unreachable_subassemblies",
			fmt.Sprintf("%d subassembly rows are not reachable from any product (missing or circular parent references) and were skipped", unreachable))
	}

	orphans := 0
	for productID, rows := range idx.directParts {
		if !productIDs[productID] {
			orphans += len(rows)
		}
	}
	for subID, rows := range idx.subassemblyParts {
		if !idx.visited[subID] {
			orphans += len(rows)
		}
	}
	if orphans > 0 {
		b.warn(data, "orphan_parts", fmt.Sprintf("%d part rows reference no known product or subassembly and were skipped", orphans))
	}
}

// unitCount reads the quantity of an expandable row, capped at MaxExpandQuantity
func (b *TreeBuilder) unitCount(table TableType, row Row, data *ImportData) int {
	qty := b.fields.Int(table, row, "Quantity")
	if qty > MaxExpandQuantity {
		b.warn(data, "quantity_capped", fmt.Sprintf("%s row %s declares quantity %d, expanding only %d units",
			table, b.fields.String(table, row, "Id"), qty, MaxExpandQuantity))
		return MaxExpandQuantity
	}
	return qty
}

func (b *TreeBuilder) warn(data *ImportData, kind, msg string) {
	data.Warnings = append(data.Warnings, msg)
	metrics.TransformationWarnings.WithLabelValues(kind).Inc()
	b.log.Warn(msg, zap.String("kind", kind))
}

// isDetached reports whether a product is just one part with nothing else around it
func isDetached(p *ImportProduct) bool {
	return len(p.Parts) == 1 && len(p.Subassemblies) == 0 && len(p.Hardware) == 0
}

func toDetached(p *ImportProduct) *ImportDetachedProduct {
	part := p.Parts[0]
	return &ImportDetachedProduct{
		ID:             p.ID,
		ProductNumber:  p.ProductNumber,
		Name:           p.Name,
		Quantity:       p.Quantity,
		Part:           part,
		PhysicalPartID: part.ID,
		Product:        p,
	}
}
