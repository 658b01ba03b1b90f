// Package importer turns flat cut-list export records into work order entity graphs.
//
// The pipeline runs leaf to root: the field resolver maps logical names onto
// the physical export columns, the tree builder assembles products with their
// nested subassemblies, parts and hardware, and the converter walks a user
// selection of that tree, expanding quantities, resolving nest sheets and
// identifier collisions before committing everything in one unit of work.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// TableType tags the export table a row came from
type TableType string

const (
	TableProducts            TableType = "PRODUCTS"
	TableSubassemblies       TableType = "SUBASSEMBLIES"
	TableParts               TableType = "PARTS"
	TableHardware            TableType = "HARDWARE"
	TablePlacedSheets        TableType = "PLACEDSHEETS"
	TableNestSheets          TableType = "NESTSHEETS"
	TableOptimizationResults TableType = "OPTIMIZATIONRESULTS"
)

// ParseTableType normalizes a table or sheet name, e.g. "PlacedSheets" or "placed_sheets"
func ParseTableType(name string) (TableType, bool) {
	key := strings.ToUpper(strings.NewReplacer("_", "", " ", "", "-", "").Replace(name))
	switch key {
	case "PRODUCTS":
		return TableProducts, true
	case "SUBASSEMBLIES":
		return TableSubassemblies, true
	case "PARTS":
		return TableParts, true
	case "HARDWARE":
		return TableHardware, true
	case "PLACEDSHEETS", "SHEETS":
		return TablePlacedSheets, true
	case "NESTSHEETS":
		return TableNestSheets, true
	case "OPTIMIZATIONRESULTS", "OPTIMIZATIONRESULT":
		return TableOptimizationResults, true
	}
	return "", false
}

// Row is one export record: physical field name to scalar value (string, number, bool or nil)
type Row map[string]any

// Bundle is the already-deserialized output of the export extraction tool
type Bundle struct {
	Products            []Row `json:"products"`
	Parts               []Row `json:"parts"`
	Subassemblies       []Row `json:"subassemblies"`
	Hardware            []Row `json:"hardware"`
	NestSheets          []Row `json:"nestSheets"`
	OptimizationResults []Row `json:"optimizationResults"`
}

// Rows returns the rows of a table type
func (b *Bundle) Rows(table TableType) []Row {
	switch table {
	case TableProducts:
		return b.Products
	case TableSubassemblies:
		return b.Subassemblies
	case TableParts:
		return b.Parts
	case TableHardware:
		return b.Hardware
	case TablePlacedSheets, TableNestSheets:
		return b.NestSheets
	case TableOptimizationResults:
		return b.OptimizationResults
	}
	return nil
}

// Append adds rows to the table type
func (b *Bundle) Append(table TableType, rows ...Row) {
	switch table {
	case TableProducts:
		b.Products = append(b.Products, rows...)
	case TableSubassemblies:
		b.Subassemblies = append(b.Subassemblies, rows...)
	case TableParts:
		b.Parts = append(b.Parts, rows...)
	case TableHardware:
		b.Hardware = append(b.Hardware, rows...)
	case TablePlacedSheets, TableNestSheets:
		b.NestSheets = append(b.NestSheets, rows...)
	case TableOptimizationResults:
		b.OptimizationResults = append(b.OptimizationResults, rows...)
	}
}

// Empty reports whether the bundle has no product rows
func (b *Bundle) Empty() bool {
	return len(b.Products) == 0
}

// DecodeBundle reads a JSON bundle. Numbers stay json.Number so long
// identifiers are not rounded through float64.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &bundle, nil
}
