package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook reads an exported workbook into a bundle. Each worksheet named
// after a table type (PRODUCTS, Parts, Placed_Sheets, ...) contributes its rows;
// the first row holds the physical field names. Other worksheets are ignored.
func LoadWorkbook(r io.Reader) (*Bundle, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	bundle := &Bundle{}
	matched := 0
	for _, sheet := range f.GetSheetList() {
		table, ok := ParseTableType(sheet)
		if !ok {
			continue
		}
		matched++
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		bundle.Append(table, sheetRows(rows)...)
	}
	if matched == 0 {
		return nil, fmt.Errorf("workbook has no recognizable export sheets")
	}
	return bundle, nil
}

// sheetRows turns a header row plus data rows into records. Blank rows are skipped.
func sheetRows(rows [][]string) []Row {
	if len(rows) < 2 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(Row, len(header))
		blank := true
		for i, name := range header {
			if name == "" {
				continue
			}
			if i >= len(cells) {
				row[name] = nil
				continue
			}
			v := cellValue(cells[i])
			if v != nil {
				blank = false
			}
			row[name] = v
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}

// cellValue keeps identifiers as text and turns plain numbers into float64,
// the same shape JSON decoding produces. A number only converts when float64
// holds it exactly, so long numeric identifiers stay distinct.
func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if looksLikeCode(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strconv.FormatFloat(f, 'f', -1, 64) != s {
		return s
	}
	return f
}

// looksLikeCode reports numerals that must stay text, e.g. "007", "1e5" or "Inf"
func looksLikeCode(s string) bool {
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return true
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
