package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// Field is one label/value line of a document section.
type Field struct {
	Label string
	Value string
}

// Section groups fields under a heading. A section with a Table renders the
// table after its fields.
type Section struct {
	Heading string
	Fields  []Field
	Table   *Dataset
}

// Document is a single-record report such as a student profile or marksheet.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
	Footer   string
}

// PDFExporter renders datasets and documents with gofpdf.
type PDFExporter struct {
	now func() time.Time
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Render creates a tabular PDF with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := e.newPDF()
	if title != "" {
		e.title(pdf, title, "")
	}
	e.table(pdf, data)
	return e.output(pdf)
}

// RenderDocument lays out a record report section by section.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf document requires a title")
	}
	pdf := e.newPDF()
	e.title(pdf, doc.Title, doc.Subtitle)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.SetFillColor(230, 230, 230)
			pdf.CellFormat(pageWidth, 8, section.Heading, "", 1, "L", true, 0, "")
			pdf.Ln(1)
		}
		pdf.SetFont("Arial", "", 10)
		for _, f := range section.Fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(55, 6, f.Label, "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(pageWidth-55, 6, valueOrDash(f.Value), "", "L", false)
		}
		if section.Table != nil && len(section.Table.Headers) > 0 {
			pdf.Ln(2)
			e.table(pdf, *section.Table)
		}
		pdf.Ln(4)
	}

	footer := doc.Footer
	if footer == "" {
		footer = "Generated " + e.now().Format("02 Jan 2006 15:04")
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(pageWidth, 6, footer, "", 1, "R", false, 0, "")
	return e.output(pdf)
}

func (e *PDFExporter) newPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf
}

func (e *PDFExporter) title(pdf *gofpdf.Fpdf, title, subtitle string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	if subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(5)
}

func (e *PDFExporter) table(pdf *gofpdf.Fpdf, data Dataset) {
	colWidth := pageWidth / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (e *PDFExporter) output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
