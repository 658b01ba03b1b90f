package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/xelth-com/eckcutgo/internal/metrics"
	"github.com/xelth-com/eckcutgo/internal/models"
	"github.com/xelth-com/eckcutgo/internal/store"
)

// ConversionStatistics counts the entities a conversion persisted
type ConversionStatistics struct {
	ConvertedProducts         int `json:"convertedProducts"`
	ConvertedParts            int `json:"convertedParts"`
	ConvertedSubassemblies    int `json:"convertedSubassemblies"`
	ConvertedHardware         int `json:"convertedHardware"`
	ConvertedDetachedProducts int `json:"convertedDetachedProducts"`
	ConvertedNestSheets       int `json:"convertedNestSheets"`
}

// ConversionStatus classifies the outcome of a conversion
type ConversionStatus string

const (
	StatusSuccess         ConversionStatus = "success"
	StatusValidationError ConversionStatus = "validation_error"
	StatusDuplicate       ConversionStatus = "duplicate"
	StatusError           ConversionStatus = "error"
	StatusPersistError    ConversionStatus = "persist_error"
)

// ConversionResult is returned by every conversion; callers branch on Success
type ConversionResult struct {
	Success     bool                      `json:"success"`
	Status      ConversionStatus          `json:"status"`
	WorkOrderID string                    `json:"workOrderId,omitempty"`
	Statistics  ConversionStatistics      `json:"statistics"`
	Errors      []string                  `json:"errors,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
	Duplicate   *DuplicateDetectionResult `json:"duplicate,omitempty"`
	// Persisted graph, populated on success
	WorkOrder *models.WorkOrder `json:"-"`
}

// Converter persists a selected subset of an import tree as a new work order
type Converter struct {
	store       store.Store
	duplicates  *DuplicateResolver
	categorizer Categorizer
	log         *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewConverter creates a converter. A nil categorizer labels every part standard.
func NewConverter(st store.Store, categorizer Categorizer, log *zap.Logger) *Converter {
	if categorizer == nil {
		categorizer = StandardCategorizer
	}
	return &Converter{
		store:       st,
		duplicates:  NewDuplicateResolver(st),
		categorizer: categorizer,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Convert validates the selection, builds the entity graph for it and commits
// the graph atomically. Nothing is persisted unless Success is true.
func (c *Converter) Convert(ctx context.Context, data *ImportData, req SelectionRequest) *ConversionResult {
	start := time.Now()
	defer func() { metrics.ConversionDuration.Observe(time.Since(start).Seconds()) }()

	result := &ConversionResult{}
	if errs := validateSelection(data, req); len(errs) > 0 {
		result.Errors = errs
		return c.fail(result, StatusValidationError)
	}

	name := strings.TrimSpace(req.WorkOrderName)
	id := strings.TrimSpace(req.WorkOrderID)
	if id == "" {
		id = data.WorkOrderID
	}
	if id == "" {
		id = c.newID()
	}

	dup, err := c.duplicates.Check(ctx, id, name)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return c.fail(result, StatusError)
	}
	if dup.HasConflict() {
		result.Duplicate = dup
		if !req.AllowDuplicates {
			result.Errors = append(result.Errors, dup.Messages...)
			return c.fail(result, StatusDuplicate)
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Duplicate work order resolved: importing as '%s' (%s)", dup.SuggestedName, dup.SuggestedID))
		id, name = dup.SuggestedID, dup.SuggestedName
	}

	conv := c.newConversion(ctx, data, req, id, name)
	if err := conv.build(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to build work order: %v", err))
		return c.fail(result, StatusError)
	}
	if conv.empty() {
		result.Errors = append(result.Errors,
			"Selection contains nothing to convert: selected parts, subassemblies and hardware need their product selected too")
		return c.fail(result, StatusValidationError)
	}
	if err := conv.commit(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to persist work order: %v", err))
		return c.fail(result, StatusPersistError)
	}

	conv.categorize()

	result.Success = true
	result.Status = StatusSuccess
	result.WorkOrderID = id
	result.Statistics = conv.stats
	result.Warnings = append(result.Warnings, conv.warnings...)
	result.WorkOrder = conv.graph()

	c.record(conv.stats)
	metrics.ConversionsTotal.WithLabelValues(string(StatusSuccess)).Inc()
	c.log.Info("Work order converted",
		zap.String("work_order_id", id),
		zap.String("work_order_name", name),
		zap.Any("statistics", conv.stats),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("took", time.Since(start)))
	return result
}

func (c *Converter) fail(result *ConversionResult, status ConversionStatus) *ConversionResult {
	result.Success = false
	result.Status = status
	result.Statistics = ConversionStatistics{}
	metrics.ConversionsTotal.WithLabelValues(string(status)).Inc()
	c.log.Warn("Work order conversion failed",
		zap.String("status", string(status)),
		zap.Strings("errors", result.Errors))
	return result
}

func (c *Converter) record(stats ConversionStatistics) {
	metrics.EntitiesConverted.WithLabelValues("product").Add(float64(stats.ConvertedProducts))
	metrics.EntitiesConverted.WithLabelValues("part").Add(float64(stats.ConvertedParts))
	metrics.EntitiesConverted.WithLabelValues("subassembly").Add(float64(stats.ConvertedSubassemblies))
	metrics.EntitiesConverted.WithLabelValues("hardware").Add(float64(stats.ConvertedHardware))
	metrics.EntitiesConverted.WithLabelValues("detached_product").Add(float64(stats.ConvertedDetachedProducts))
	metrics.EntitiesConverted.WithLabelValues("nest_sheet").Add(float64(stats.ConvertedNestSheets))
}

// conversion is the state of one Convert call
type conversion struct {
	ctx       context.Context
	c         *Converter
	data      *ImportData
	sel       *selection
	ids       *IDAllocator
	workOrder *models.WorkOrder
	sheets    *NestSheetResolver
	stats     ConversionStatistics
	warnings  []string

	products    []*models.Product
	subs        []*models.Subassembly
	detached    []*models.DetachedProduct
	parts       []*models.Part
	partSources []string // export part ID for each entry of parts
	hardware    []*models.Hardware
}

func (c *Converter) newConversion(ctx context.Context, data *ImportData, req SelectionRequest, id, name string) *conversion {
	cv := &conversion{
		ctx:  ctx,
		c:    c,
		data: data,
		sel:  newSelection(req.SelectedItems),
		ids:  NewIDAllocator(c.store),
		workOrder: &models.WorkOrder{
			ID:           id,
			Name:         name,
			ImportedDate: c.now(),
		},
	}
	cv.ids.reserve(models.EntityWorkOrder, id)
	cv.sheets = NewNestSheetResolver(data.PartSheetMap, cv.createDefaultSheet)
	return cv
}

func (cv *conversion) build() error {
	for _, sheet := range cv.data.NestSheets {
		if !cv.sel.has(ItemNestSheet, sheet.ID) {
			continue
		}
		if err := cv.addNestSheet(sheet); err != nil {
			return err
		}
	}
	for _, product := range cv.data.Products {
		if !cv.sel.has(ItemProduct, product.ID) {
			continue
		}
		if err := cv.addProduct(product); err != nil {
			return err
		}
	}
	for _, hw := range cv.data.Hardware {
		if !cv.sel.has(ItemHardware, hw.ID) {
			continue
		}
		if err := cv.addHardware(hw, hardwareOwner{}, ""); err != nil {
			return err
		}
	}
	for _, detached := range cv.data.DetachedProducts {
		var err error
		switch {
		case cv.sel.explicit(ItemProduct, detached.ID) && detached.Product != nil:
			// Selected as a product, so it stays one
			err = cv.addProduct(detached.Product)
		case cv.sel.has(ItemDetachedProduct, detached.ID):
			err = cv.addDetached(detached)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return cv.resolveSheets()
}

func (cv *conversion) addNestSheet(src *ImportNestSheet) error {
	id, err := cv.ids.Claim(cv.ctx, models.EntityNestSheet, src.ID)
	if err != nil {
		return err
	}
	sheet := &models.NestSheet{
		ID:          id,
		WorkOrderID: cv.workOrder.ID,
		Name:        src.Name,
		Material:    src.Material,
		Length:      src.Length,
		Width:       src.Width,
		Thickness:   src.Thickness,
		Barcode:     src.Barcode,
	}
	cv.sheets.Register(src.ID, sheet)
	cv.stats.ConvertedNestSheets++
	return nil
}

func (cv *conversion) createDefaultSheet() (*models.NestSheet, error) {
	id, err := cv.ids.Claim(cv.ctx, models.EntityNestSheet, "DEFAULT_"+cv.workOrder.ID)
	if err != nil {
		return nil, err
	}
	cv.stats.ConvertedNestSheets++
	return &models.NestSheet{
		ID:          id,
		WorkOrderID: cv.workOrder.ID,
		Name:        DefaultNestSheetName,
		Material:    DefaultNestSheetMaterial,
		Barcode:     DefaultNestSheetBarcode,
	}, nil
}

func (cv *conversion) addProduct(src *ImportProduct) error {
	base, err := cv.ids.Peek(cv.ctx, models.EntityProduct, src.ID, src.Quantity)
	if err != nil {
		return err
	}
	source := sourceJSON(src.Source)

	for _, inst := range Expand(base, src.Name, src.Quantity, "") {
		id, err := cv.ids.Claim(cv.ctx, models.EntityProduct, inst.ID)
		if err != nil {
			return err
		}
		cv.products = append(cv.products, &models.Product{
			ID:            id,
			WorkOrderID:   cv.workOrder.ID,
			ProductNumber: src.ProductNumber,
			Name:          inst.Name,
			Description:   src.Description,
			Quantity:      1,
			Width:         src.Width,
			Height:        src.Height,
			Depth:         src.Depth,
			Status:        string(models.PartStatusPending),
			SourceData:    source,
		})
		cv.stats.ConvertedProducts++

		productID := id
		for _, part := range src.Parts {
			if !cv.sel.has(ItemPart, part.ID) {
				continue
			}
			if err := cv.addPart(part, inst.Suffix, partOwner{product: &productID}); err != nil {
				return err
			}
		}
		for _, sub := range src.Subassemblies {
			if !cv.sel.has(ItemSubassembly, sub.ID) {
				continue
			}
			if err := cv.addSubassembly(sub, inst.Suffix, &productID, nil); err != nil {
				return err
			}
		}
		for _, hw := range src.Hardware {
			if !cv.sel.has(ItemHardware, hw.ID) {
				continue
			}
			if err := cv.addHardware(hw, hardwareOwner{product: &productID}, inst.Suffix); err != nil {
				return err
			}
		}
	}
	return nil
}

// addSubassembly materializes a subassembly under a product instance (productID
// set) or under a parent subassembly instance (parentID set)
func (cv *conversion) addSubassembly(src *ImportSubassembly, inheritedSuffix string, productID, parentID *string) error {
	base, err := cv.ids.Peek(cv.ctx, models.EntitySubassembly, src.ID+inheritedSuffix, src.Quantity)
	if err != nil {
		return err
	}

	for _, inst := range Expand(base, src.Name, src.Quantity, inheritedSuffix) {
		id, err := cv.ids.Claim(cv.ctx, models.EntitySubassembly, inst.ID)
		if err != nil {
			return err
		}
		cv.subs = append(cv.subs, &models.Subassembly{
			ID:                  id,
			WorkOrderID:         cv.workOrder.ID,
			ProductID:           productID,
			ParentSubassemblyID: parentID,
			Name:                inst.Name,
			Quantity:            1,
			Width:               src.Width,
			Height:              src.Height,
			Depth:               src.Depth,
		})
		cv.stats.ConvertedSubassemblies++

		subID := id
		for _, part := range src.Parts {
			if !cv.sel.has(ItemPart, part.ID) {
				continue
			}
			if err := cv.addPart(part, inst.Suffix, partOwner{subassembly: &subID}); err != nil {
				return err
			}
		}
		for _, hw := range src.Hardware {
			if !cv.sel.has(ItemHardware, hw.ID) {
				continue
			}
			if err := cv.addHardware(hw, hardwareOwner{subassembly: &subID}, inst.Suffix); err != nil {
				return err
			}
		}
		for _, child := range src.Subassemblies {
			if !cv.sel.has(ItemSubassembly, child.ID) {
				continue
			}
			if err := cv.addSubassembly(child, inst.Suffix, nil, &subID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cv *conversion) addDetached(src *ImportDetachedProduct) error {
	base, err := cv.ids.Peek(cv.ctx, models.EntityDetachedProduct, src.ID, src.Quantity)
	if err != nil {
		return err
	}
	part := src.Part
	if part == nil {
		part = &ImportPart{ID: src.PhysicalPartID, Name: src.Name, Quantity: 1}
	}

	for _, inst := range Expand(base, src.Name, src.Quantity, "") {
		id, err := cv.ids.Claim(cv.ctx, models.EntityDetachedProduct, inst.ID)
		if err != nil {
			return err
		}
		cv.detached = append(cv.detached, &models.DetachedProduct{
			ID:                id,
			WorkOrderID:       cv.workOrder.ID,
			ProductNumber:     src.ProductNumber,
			Name:              inst.Name,
			Quantity:          1,
			Length:            part.Length,
			Width:             part.Width,
			Thickness:         part.Thickness,
			Material:          part.Material,
			EdgebandingTop:    part.EdgebandingTop,
			EdgebandingBottom: part.EdgebandingBottom,
			EdgebandingLeft:   part.EdgebandingLeft,
			EdgebandingRight:  part.EdgebandingRight,
			PhysicalPartID:    src.PhysicalPartID,
			Status:            string(models.PartStatusPending),
		})
		cv.stats.ConvertedDetachedProducts++

		// Companion part so the unit flows through cutting and sorting like any other part;
		// it keeps the export part identifier so scans still match
		detachedID := id
		if err := cv.addPart(part, inst.Suffix, partOwner{detached: &detachedID}); err != nil {
			return err
		}
	}
	return nil
}

type partOwner struct {
	product     *string
	subassembly *string
	detached    *string
}

func (cv *conversion) addPart(src *ImportPart, suffix string, owner partOwner) error {
	id, err := cv.ids.Claim(cv.ctx, models.EntityPart, src.ID+suffix)
	if err != nil {
		return err
	}
	cv.parts = append(cv.parts, &models.Part{
		ID:                id,
		WorkOrderID:       cv.workOrder.ID,
		ProductID:         owner.product,
		SubassemblyID:     owner.subassembly,
		DetachedProductID: owner.detached,
		Name:              src.Name,
		Quantity:          src.Quantity,
		Length:            src.Length,
		Width:             src.Width,
		Thickness:         src.Thickness,
		Material:          src.Material,
		EdgebandingTop:    src.EdgebandingTop,
		EdgebandingBottom: src.EdgebandingBottom,
		EdgebandingLeft:   src.EdgebandingLeft,
		EdgebandingRight:  src.EdgebandingRight,
		EdgeBandingCode:   src.EdgeBandingCode,
		Status:            models.PartStatusPending,
		Category:          models.PartCategoryStandard,
	})
	cv.partSources = append(cv.partSources, src.ID)
	cv.stats.ConvertedParts++
	return nil
}

// hardwareOwner is empty for hardware that belongs to the work order itself
type hardwareOwner struct {
	product     *string
	subassembly *string
}

func (cv *conversion) addHardware(src *ImportHardware, owner hardwareOwner, suffix string) error {
	id, err := cv.ids.Claim(cv.ctx, models.EntityHardware, src.ID+suffix)
	if err != nil {
		return err
	}
	cv.hardware = append(cv.hardware, &models.Hardware{
		ID:            id,
		WorkOrderID:   cv.workOrder.ID,
		ProductID:     owner.product,
		SubassemblyID: owner.subassembly,
		Name:          src.Name,
		Quantity:      src.Quantity,
		Status:        string(models.PartStatusPending),
	})
	cv.stats.ConvertedHardware++
	return nil
}

// empty reports whether the selection produced nothing but nest sheets
func (cv *conversion) empty() bool {
	return len(cv.products)+len(cv.subs)+len(cv.detached)+len(cv.parts)+len(cv.hardware) == 0
}

// resolveSheets gives every part its nest sheet
func (cv *conversion) resolveSheets() error {
	unmatched := 0
	for i, part := range cv.parts {
		matched, err := cv.sheets.Assign(cv.partSources[i], part)
		if err != nil {
			return err
		}
		if !matched {
			unmatched++
		}
	}
	if unmatched > 0 {
		target := "the first nest sheet"
		if d := cv.sheets.DefaultSheet(); d != nil {
			target = "the default nest sheet " + d.ID
		}
		cv.warn("unplaced_parts", fmt.Sprintf("%d parts have no nest sheet placement and were assigned to %s", unmatched, target))
	}
	return nil
}

func (cv *conversion) commit() error {
	uow, err := cv.c.store.Begin(cv.ctx)
	if err != nil {
		return err
	}

	uow.Add(cv.workOrder)
	for _, sheet := range cv.sheets.Sheets() {
		uow.Add(sheet)
	}
	for _, p := range cv.products {
		uow.Add(p)
	}
	for _, s := range cv.subs {
		uow.Add(s)
	}
	for _, d := range cv.detached {
		uow.Add(d)
	}
	for _, p := range cv.parts {
		uow.Add(p)
	}
	for _, h := range cv.hardware {
		uow.Add(h)
	}

	if err := uow.Commit(cv.ctx); err != nil {
		_ = uow.Rollback()
		return err
	}
	return nil
}

// categorize runs the categorizer once per persisted part and stores changed labels
func (cv *conversion) categorize() {
	changed := make(map[string]string)
	for _, part := range cv.parts {
		label := cv.c.categorizer.Categorize(*part)
		if label == "" {
			label = models.PartCategoryStandard
		}
		if label != part.Category {
			changed[part.ID] = label
		}
	}
	if len(changed) == 0 {
		return
	}
	if err := cv.c.store.UpdatePartCategories(cv.ctx, changed); err != nil {
		cv.warn("categorize_failed", fmt.Sprintf("Failed to store part categories: %v", err))
		return
	}
	for _, part := range cv.parts {
		if label, ok := changed[part.ID]; ok {
			part.Category = label
		}
	}
}

func (cv *conversion) warn(kind, msg string) {
	cv.warnings = append(cv.warnings, msg)
	metrics.TransformationWarnings.WithLabelValues(kind).Inc()
	cv.c.log.Warn(msg, zap.String("kind", kind), zap.String("work_order_id", cv.workOrder.ID))
}

// graph assembles the persisted entities into a work order tree
func (cv *conversion) graph() *models.WorkOrder {
	wo := *cv.workOrder

	partsBy := func(match func(*models.Part) bool) []models.Part {
		var out []models.Part
		for _, p := range cv.parts {
			if match(p) {
				out = append(out, *p)
			}
		}
		return out
	}

	var subTree func(match func(*models.Subassembly) bool) []models.Subassembly
	subTree = func(match func(*models.Subassembly) bool) []models.Subassembly {
		var out []models.Subassembly
		for _, s := range cv.subs {
			if !match(s) {
				continue
			}
			sub := *s
			id := s.ID
			sub.Parts = partsBy(func(p *models.Part) bool { return eq(p.SubassemblyID, id) })
			for _, h := range cv.hardware {
				if eq(h.SubassemblyID, id) {
					sub.Hardware = append(sub.Hardware, *h)
				}
			}
			sub.Subassemblies = subTree(func(c *models.Subassembly) bool { return eq(c.ParentSubassemblyID, id) })
			out = append(out, sub)
		}
		return out
	}

	for _, sheet := range cv.sheets.Sheets() {
		s := *sheet
		id := sheet.ID
		s.Parts = partsBy(func(p *models.Part) bool { return p.NestSheetID == id })
		wo.NestSheets = append(wo.NestSheets, s)
	}
	for _, product := range cv.products {
		p := *product
		id := product.ID
		p.Parts = partsBy(func(part *models.Part) bool { return eq(part.ProductID, id) })
		p.Subassemblies = subTree(func(s *models.Subassembly) bool { return eq(s.ProductID, id) })
		for _, h := range cv.hardware {
			if eq(h.ProductID, id) {
				p.Hardware = append(p.Hardware, *h)
			}
		}
		wo.Products = append(wo.Products, p)
	}
	for _, h := range cv.hardware {
		if h.ProductID == nil && h.SubassemblyID == nil {
			wo.Hardware = append(wo.Hardware, *h)
		}
	}
	for _, detached := range cv.detached {
		d := *detached
		id := detached.ID
		d.Parts = partsBy(func(p *models.Part) bool { return eq(p.DetachedProductID, id) })
		wo.DetachedProducts = append(wo.DetachedProducts, d)
	}
	return &wo
}

func eq(ptr *string, value string) bool {
	return ptr != nil && *ptr == value
}

func sourceJSON(row Row) datatypes.JSON {
	if len(row) == 0 {
		return nil
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
