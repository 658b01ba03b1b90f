package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/eckcutgo/internal/importer"
	"github.com/xelth-com/eckcutgo/internal/models"
)

// LabelConfig holds the sheet layout for label PDFs
type LabelConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultLabelConfig is a 3x7 A4 sticker sheet
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{Cols: 3, Rows: 7, MarginTop: 10, MarginLeft: 7, GapX: 2.5, GapY: 0}
}

// Label is the content of one sticker
type Label struct {
	Code     string // QR payload, printed below the code
	Title    string
	Subtitle string
	Corner   string // small text top right
}

// NestSheetLabels lists one label per nest sheet of the work order followed by
// one per part on that sheet. Sheet labels carry the barcode the saw scans.
func NestSheetLabels(wo *models.WorkOrder) []Label {
	var labels []Label
	for _, sheet := range wo.NestSheets {
		code := sheet.Barcode
		if code == "" || code == importer.DefaultNestSheetBarcode {
			code = sheet.ID
		}
		labels = append(labels, Label{
			Code:     code,
			Title:    sheet.Name,
			Subtitle: fmt.Sprintf("%s %gx%gx%g", sheet.Material, sheet.Length, sheet.Width, sheet.Thickness),
			Corner:   fmt.Sprintf("%d parts", len(sheet.Parts)),
		})
		for _, part := range sheet.Parts {
			subtitle := fmt.Sprintf("%gx%gx%g", part.Length, part.Width, part.Thickness)
			if part.EdgeBandingCode != "" {
				long, short := importer.EdgeBandingSides(part.EdgeBandingCode)
				subtitle += fmt.Sprintf(" EB:%s %dL%dS", part.EdgeBandingCode, long, short)
			}
			labels = append(labels, Label{
				Code:     part.ID,
				Title:    part.Name,
				Subtitle: subtitle,
				Corner:   part.Category,
			})
		}
	}
	return labels
}

// GenerateNestSheetLabels renders the nest sheet and part labels of a work order
func GenerateNestSheetLabels(wo *models.WorkOrder, cfg LabelConfig) ([]byte, error) {
	labels := NestSheetLabels(wo)
	if len(labels) == 0 {
		return nil, fmt.Errorf("work order %s has no nest sheets", wo.ID)
	}
	return GenerateLabelsPDF(labels, cfg)
}

// GenerateLabelsPDF creates a PDF with one QR code label per entry
func GenerateLabelsPDF(labels []Label, cfg LabelConfig) ([]byte, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("invalid label grid %dx%d", cfg.Cols, cfg.Rows)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY

	// Symmetric margins
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)

	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		// Top-left of label
		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(label.Code, qrcode.Low, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR for %s: %w", label.Code, err)
		}

		imgName := fmt.Sprintf("qr_%d", i)
		imgOptions := gofpdf.ImageOptions{
			ImageType: "PNG",
			ReadDpi:   true,
		}
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR on the left half, text on the right
		qrSize := labelH * 0.7
		if qrSize > labelW/2 {
			qrSize = labelW / 2 * 0.9
		}
		qrX := x + 2
		qrY := y + (labelH-qrSize)/2 - 2

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		textX := qrX + qrSize + 2
		textW := labelW - (textX - x) - 2

		pdf.SetXY(textX, y+labelH/2-6)
		pdf.SetFontSize(9)
		pdf.CellFormat(textW, 5, tr(label.Title), "", 2, "L", false, 0, "")
		pdf.SetX(textX)
		pdf.SetFontSize(7)
		pdf.CellFormat(textW, 4, tr(label.Subtitle), "", 0, "L", false, 0, "")

		pdf.SetXY(x, y+labelH-6)
		pdf.SetFontSize(7)
		pdf.CellFormat(labelW, 5, tr(label.Code), "", 0, "C", false, 0, "")

		if label.Corner != "" {
			pdf.SetXY(x, y+1)
			pdf.SetFontSize(6)
			pdf.CellFormat(labelW-1, 3, tr(label.Corner), "", 0, "R", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
