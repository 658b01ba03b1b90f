package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xelth-com/eckcutgo/internal/metrics"
)

// FieldMappings maps logical field names to physical export column names per table type
type FieldMappings map[TableType]map[string]string

// defaultFieldMappings mirrors the column layout of the cut-list export.
// Several logical aliases may resolve to the same physical column.
var defaultFieldMappings = FieldMappings{
	TableProducts: {
		"Id":            "LinkID",
		"ProductId":     "LinkID",
		"Name":          "ItemNumber",
		"ProductName":   "ItemNumber",
		"ItemNumber":    "ItemNumber",
		"ProductNumber": "ItemNumber",
		"Description":   "Description",
		"Quantity":      "Quantity",
		"Qty":           "Quantity",
		"Width":         "Width",
		"Height":        "Height",
		"Depth":         "Depth",
		"WorkOrderId":   "LinkIDWorkOrder",
		"WorkOrderName": "WorkOrderName",
	},
	TableSubassemblies: {
		"Id":                  "LinkID",
		"SubassemblyId":       "LinkID",
		"Name":                "Name",
		"SubassemblyName":     "Name",
		"ProductId":           "LinkIDProduct",
		"ParentSubassemblyId": "LinkIDParentSubassembly",
		"Quantity":            "Quantity",
		"Qty":                 "Quantity",
		"Width":               "Width",
		"Height":              "Height",
		"Depth":               "Depth",
	},
	TableParts: {
		"Id":                "LinkID",
		"PartId":            "LinkID",
		"Name":              "Name",
		"PartName":          "Name",
		"ProductId":         "LinkIDProduct",
		"SubassemblyId":     "LinkIDSubAssembly",
		"Quantity":          "Quantity",
		"Qty":               "Quantity",
		"Length":            "Length",
		"Width":             "Width",
		"Thickness":         "Thickness",
		"Material":          "MaterialName",
		"MaterialName":      "MaterialName",
		"EdgebandingTop":    "EdgeNameTop",
		"EdgebandingBottom": "EdgeNameBottom",
		"EdgebandingLeft":   "EdgeNameLeft",
		"EdgebandingRight":  "EdgeNameRight",
	},
	TableHardware: {
		"Id":            "LinkID",
		"HardwareId":    "LinkID",
		"Name":          "Name",
		"HardwareName":  "Name",
		"ProductId":     "LinkIDProduct",
		"SubassemblyId": "LinkIDSubAssembly",
		"Quantity":      "Quantity",
		"Qty":           "Quantity",
	},
	TablePlacedSheets: {
		"Id":           "LinkID",
		"SheetId":      "LinkID",
		"NestSheetId":  "LinkID",
		"Name":         "FileName",
		"SheetName":    "FileName",
		"FileName":     "FileName",
		"Material":     "MaterialName",
		"MaterialName": "MaterialName",
		"Length":       "Length",
		"Width":        "Width",
		"Thickness":    "Thickness",
		"Barcode":      "Barcode",
	},
	TableOptimizationResults: {
		"PartId":        "LinkIDPart",
		"SheetId":       "LinkIDSheet",
		"PlacedSheetId": "LinkIDSheet",
		"NestSheetId":   "LinkIDSheet",
		"ProductId":     "LinkIDProduct",
	},
}

func init() {
	defaultFieldMappings[TableNestSheets] = defaultFieldMappings[TablePlacedSheets]
}

// DefaultFieldMappings returns a copy of the built-in mapping table
func DefaultFieldMappings() FieldMappings {
	return defaultFieldMappings.clone()
}

func (m FieldMappings) clone() FieldMappings {
	out := make(FieldMappings, len(m))
	for table, fields := range m {
		copied := make(map[string]string, len(fields))
		for logical, physical := range fields {
			copied[logical] = physical
		}
		out[table] = copied
	}
	return out
}

// LoadFieldMappings reads mapping overrides from a YAML file:
//
//	PARTS:
//	  Material: MaterialCode
func LoadFieldMappings(path string) (FieldMappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field map %s: %w", path, err)
	}
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse field map %s: %w", path, err)
	}
	out := make(FieldMappings, len(raw))
	for name, fields := range raw {
		table, ok := ParseTableType(name)
		if !ok {
			return nil, fmt.Errorf("field map %s: unknown table type %q", path, name)
		}
		out[table] = fields
	}
	return out, nil
}

// FieldResolver maps logical field names to physical ones and reads typed values from rows
type FieldResolver struct {
	mappings FieldMappings
	log      *zap.Logger
	warned   sync.Map
}

// NewFieldResolver creates a resolver over the built-in table, extended by overrides
func NewFieldResolver(log *zap.Logger, overrides FieldMappings) *FieldResolver {
	mappings := DefaultFieldMappings()
	for table, fields := range overrides {
		if mappings[table] == nil {
			mappings[table] = make(map[string]string)
		}
		for logical, physical := range fields {
			mappings[table][logical] = physical
		}
		// Keep the PLACEDSHEETS / NESTSHEETS alias in step
		switch table {
		case TablePlacedSheets:
			mappings[TableNestSheets] = mappings[TablePlacedSheets]
		case TableNestSheets:
			mappings[TablePlacedSheets] = mappings[TableNestSheets]
		}
	}
	return &FieldResolver{mappings: mappings, log: log}
}

// Resolve returns the physical field name, or the logical name itself when no mapping exists
func (r *FieldResolver) Resolve(table TableType, logical string) string {
	if physical, ok := r.mappings[table][logical]; ok {
		return physical
	}
	key := string(table) + "." + logical
	if _, seen := r.warned.LoadOrStore(key, true); !seen {
		r.log.Warn("No field mapping, using logical name",
			zap.String("table", string(table)),
			zap.String("field", logical))
		metrics.TransformationWarnings.WithLabelValues("missing_field_mapping").Inc()
	}
	return logical
}

// lookup finds the value of a logical field; exports are not consistent about column case
func (r *FieldResolver) lookup(table TableType, row Row, logical string) (any, bool) {
	physical := r.Resolve(table, logical)
	if v, ok := row[physical]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, physical) {
			return v, true
		}
	}
	return nil, false
}

// String returns the field as trimmed text, "" when missing
func (r *FieldResolver) String(table TableType, row Row, logical string) string {
	v, ok := r.lookup(table, row, logical)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Int returns the field as an integer. Missing or unparsable values default to 1:
// rows without an explicit quantity are single units.
func (r *FieldResolver) Int(table TableType, row Row, logical string) int {
	const fallback = 1
	v, ok := r.lookup(table, row, logical)
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		return floatToInt(val, fallback)
	case float32:
		return floatToInt(float64(val), fallback)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return floatToInt(f, fallback)
		}
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f, fallback)
		}
	}
	return fallback
}

// floatToInt truncates f, saturating at the int range
func floatToInt(f float64, fallback int) int {
	switch {
	case math.IsNaN(f):
		return fallback
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// Decimal returns the field as a float, 0 when missing or unparsable
func (r *FieldResolver) Decimal(table TableType, row Row, logical string) float64 {
	v, ok := r.lookup(table, row, logical)
	if !ok || v == nil {
		return 0
	}
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}
