package reports

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

type pdfColumn struct {
	label string
	width float64
	value func(Row) string
}

// Landscape A4 with 10mm margins leaves 277mm; the widths add up to 275.
var pdfColumns = []pdfColumn{
	{"Fecha", 19, func(r Row) string { return r.Fecha }},
	{"Hora", 12, func(r Row) string { return r.Hora }},
	{"Hecho", 20, func(r Row) string { return r.Tipo }},
	{"Medio", 20, func(r Row) string { return r.Medio }},
	{"Vehículo", 41, func(r Row) string { return r.Vehiculo }},
	{"Patente", 19, func(r Row) string { return r.Patente }},
	{"Sector", 51, func(r Row) string { return r.Sector }},
	{"Dirección", 75, func(r Row) string { return r.Direccion }},
	{"H", 9, func(r Row) string { return fmt.Sprintf("%d", r.Heridos) }},
	{"F", 9, func(r Row) string { return fmt.Sprintf("%d", r.Fallecidos) }},
}

const pdfRowHeight = 6

// BuildPDF renders the tabular report: landscape pages, a column header that
// repeats after every page break and a trailing totals line.
func BuildPDF(rows []Row, meta Meta) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	title := meta.Title
	if title == "" {
		title = "Reporte"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Fecha & hora: %s", meta.GeneratedAt.Format("02/01/2006 15:04:05"))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "H: Heridos | F: Fallecidos", "", 1, "L", false, 0, "")
	if meta.Filters != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Filtros: %s", meta.Filters)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, tr(col.label), "B", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfRowHeight)
		pdf.SetFont("Helvetica", "", 8)
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottomMargin := pdf.GetMargins()

	ensureSpace := func() {
		if pdf.GetY()+pdfRowHeight > pageH-bottomMargin-8 {
			pdf.AddPage()
			drawHeader()
		}
	}

	drawHeader()

	for _, r := range rows {
		ensureSpace()
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, fitCell(pdf, tr(col.value(r)), col.width), "", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfRowHeight)
	}

	heridos, fallecidos := Totals(rows)
	pdf.Ln(3)
	ensureSpace()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, pdfRowHeight, tr(fmt.Sprintf(
		"Total incidentes: %d | Heridos: %d | Fallecidos: %d",
		len(rows), heridos, fallecidos)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitCell truncates text that would overflow its column, with an ellipsis.
// The input is already translated to the document code page, so byte slicing
// is safe.
func fitCell(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width-2 {
		s = s[:len(s)-1]
	}
	return s + "..."
}
