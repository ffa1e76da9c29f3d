package certificate

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer lays certificates out on a landscape A4 page
type PDFRenderer struct {
	Font string
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Font: "Helvetica"}
}

func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetMargins(25, 30, 25)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont(r.Font, "B", 30)
	pdf.CellFormat(0, 30, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(r.Font, "", 15)
	pdf.MultiCell(0, 9, tr(doc.Body), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDFRenderer.Render -> %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}

func (r *PDFRenderer) Extension() string {
	return ".pdf"
}
