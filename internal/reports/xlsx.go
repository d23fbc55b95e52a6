package reports

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	detailSheet  = "Incidentes"
	summarySheet = "Resumen"

	// placeholder label for blank group keys in the summary sheet
	sinDato = "Sin dato"
)

var xlsxHeader = []string{
	"Fecha", "Hora", "Hecho", "Medio", "Vehículo", "Patente",
	"Sector", "Dirección", "Lugar", "H", "F", "Descripcion", "Web",
}

var xlsxWidths = []float64{12, 8, 12, 12, 22, 10, 25, 35, 12, 6, 6, 25, 25}

// BuildXLSX renders the two-sheet spreadsheet report: a detail sheet with a
// frozen header and a totals row, and a summary sheet with grouped breakdowns
// by tipo, medio and sector.
func BuildXLSX(rows []Row, meta Meta) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	title := meta.Title
	if title == "" {
		title = "Reporte"
	}
	generated := fmt.Sprintf("Fecha & hora: %s", meta.GeneratedAt.Format("02/01/2006 15:04:05"))

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}

	// ===== detail sheet =====
	f.SetSheetName("Sheet1", detailSheet)

	f.SetCellValue(detailSheet, "A1", title)
	f.MergeCell(detailSheet, "A1", "M1")
	f.SetCellStyle(detailSheet, "A1", "A1", titleStyle)

	f.SetCellValue(detailSheet, "A2", generated)
	f.MergeCell(detailSheet, "A2", "M2")

	f.SetCellValue(detailSheet, "A3", "H: Heridos | F: Fallecidos")
	f.MergeCell(detailSheet, "A3", "M3")

	if meta.Filters != "" {
		f.SetCellValue(detailSheet, "A4", fmt.Sprintf("Filtros: %s", meta.Filters))
		f.MergeCell(detailSheet, "A4", "M4")
	}

	const headerRow = 5
	for i, h := range xlsxHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(detailSheet, cell, h)
	}
	f.SetCellStyle(detailSheet, "A5", "M5", boldStyle)

	for i, w := range xlsxWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(detailSheet, col, col, w)
	}

	for i, r := range rows {
		rowNum := headerRow + 1 + i
		values := []interface{}{
			r.Fecha, r.Hora, r.Tipo, r.Medio, r.Vehiculo, r.Patente,
			r.Sector, r.Direccion, r.Lugar, r.Heridos, r.Fallecidos,
			r.Descripcion, r.Web,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			f.SetCellValue(detailSheet, cell, v)
		}
	}

	f.SetPanes(detailSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})

	heridos, fallecidos := Totals(rows)
	totalsRow := headerRow + len(rows) + 2
	f.SetCellValue(detailSheet, fmt.Sprintf("A%d", totalsRow), "Totales")
	f.SetCellValue(detailSheet, fmt.Sprintf("J%d", totalsRow), heridos)
	f.SetCellValue(detailSheet, fmt.Sprintf("K%d", totalsRow), fallecidos)
	f.SetCellStyle(detailSheet, fmt.Sprintf("A%d", totalsRow), fmt.Sprintf("M%d", totalsRow), boldStyle)

	// ===== summary sheet =====
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	summaryWidths := []float64{30, 12, 12, 12}
	for i, w := range summaryWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(summarySheet, col, col, w)
	}

	f.SetCellValue(summarySheet, "A1", title)
	f.MergeCell(summarySheet, "A1", "D1")
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)

	f.SetCellValue(summarySheet, "A2", generated)
	f.MergeCell(summarySheet, "A2", "D2")

	next := 4
	addSection := func(sectionTitle string, groups []GroupStat) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", next), sectionTitle)
		f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", next), fmt.Sprintf("A%d", next), sectionStyle)
		next++

		headers := []string{"Categoría", "Cantidad", "Heridos", "Fallecidos"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, next)
			f.SetCellValue(summarySheet, cell, h)
		}
		f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", next), fmt.Sprintf("D%d", next), boldStyle)
		next++

		for _, g := range groups {
			f.SetCellValue(summarySheet, fmt.Sprintf("A%d", next), g.Key)
			f.SetCellValue(summarySheet, fmt.Sprintf("B%d", next), g.Count)
			f.SetCellValue(summarySheet, fmt.Sprintf("C%d", next), g.Heridos)
			f.SetCellValue(summarySheet, fmt.Sprintf("D%d", next), g.Fallecidos)
			next++
		}
		next++ // blank separator
	}

	addSection("Resumen por Hecho (Tipo)", GroupBy(rows, func(r Row) string { return r.Tipo }))
	addSection("Resumen por Medio", GroupBy(rows, func(r Row) string { return r.Medio }))
	addSection("Resumen por Sector", GroupBy(rows, func(r Row) string { return r.Sector }))

	f.SetPanes(summarySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      3,
		TopLeftCell: "A4",
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GroupStat is one breakdown line of the summary sheet.
type GroupStat struct {
	Key        string
	Count      int
	Heridos    int
	Fallecidos int
}

// GroupBy groups rows by the given key, summing counts and casualties.
// Blank keys collapse into the "Sin dato" bucket. Groups are sorted by count
// descending, then key ascending so output is deterministic.
func GroupBy(rows []Row, keyFn func(Row) string) []GroupStat {
	byKey := map[string]*GroupStat{}
	for _, r := range rows {
		key := keyFn(r)
		if key == "" {
			key = sinDato
		}
		g, ok := byKey[key]
		if !ok {
			g = &GroupStat{Key: key}
			byKey[key] = g
		}
		g.Count++
		g.Heridos += r.Heridos
		g.Fallecidos += r.Fallecidos
	}

	groups := make([]GroupStat, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
