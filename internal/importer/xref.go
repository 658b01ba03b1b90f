package importer

import (
	"github.com/xelth-com/eckcutgo/internal/models"
)

const (
	DefaultNestSheetName     = "Default Nest Sheet"
	DefaultNestSheetMaterial = "Unknown"
	DefaultNestSheetBarcode  = "DEFAULT"
)

// BuildPartSheetMap reads the optimization results into part ID -> sheet ID.
// The first placement of a part wins.
func BuildPartSheetMap(fields *FieldResolver, rows []Row) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		partID := fields.String(TableOptimizationResults, row, "PartId")
		sheetID := fields.String(TableOptimizationResults, row, "SheetId")
		if partID == "" || sheetID == "" {
			continue
		}
		if _, ok := out[partID]; !ok {
			out[partID] = sheetID
		}
	}
	return out
}

// NestSheetResolver links converted parts to the nest sheets of one work order
type NestSheetResolver struct {
	partSheets    map[string]string
	bySource      map[string]*models.NestSheet
	sheets        []*models.NestSheet
	defaultSheet  *models.NestSheet
	createDefault func() (*models.NestSheet, error)
}

// NewNestSheetResolver creates a resolver. createDefault builds the catch-all
// sheet and is called at most once, the first time an unmapped part finds no sheet.
func NewNestSheetResolver(partSheets map[string]string, createDefault func() (*models.NestSheet, error)) *NestSheetResolver {
	return &NestSheetResolver{
		partSheets:    partSheets,
		bySource:      make(map[string]*models.NestSheet),
		createDefault: createDefault,
	}
}

// Register adds a converted sheet under the identifier it had in the export
func (r *NestSheetResolver) Register(sourceID string, sheet *models.NestSheet) {
	r.bySource[sourceID] = sheet
	r.sheets = append(r.sheets, sheet)
}

// Sheets returns the work order's sheets in registration order
func (r *NestSheetResolver) Sheets() []*models.NestSheet {
	return r.sheets
}

// DefaultSheet returns the synthesized sheet, nil if none was needed
func (r *NestSheetResolver) DefaultSheet() *models.NestSheet {
	return r.defaultSheet
}

// Assign links the part to the sheet the optimizer placed sourcePartID on,
// falling back to the work order's first sheet and then to the default sheet.
// It returns whether a cross-reference matched.
func (r *NestSheetResolver) Assign(sourcePartID string, part *models.Part) (bool, error) {
	if sheetID, ok := r.partSheets[sourcePartID]; ok {
		if sheet, ok := r.bySource[sheetID]; ok {
			r.attach(sheet, part)
			return true, nil
		}
	}

	if len(r.sheets) > 0 {
		r.attach(r.sheets[0], part)
		return false, nil
	}

	sheet, err := r.createDefault()
	if err != nil {
		return false, err
	}
	r.defaultSheet = sheet
	r.sheets = append(r.sheets, sheet)
	r.attach(sheet, part)
	return false, nil
}

func (r *NestSheetResolver) attach(sheet *models.NestSheet, part *models.Part) {
	part.NestSheetID = sheet.ID
	sheet.Parts = append(sheet.Parts, *part)
}
