package reports

import (
	"time"

	"github.com/skynetdev/incidentes-api/internal/models"
)

// Row is the flattened, display-formatted projection of an incident used by
// both renderers. It is never persisted.
type Row struct {
	Fecha       string
	Hora        string
	Tipo        string
	Medio       string
	Vehiculo    string
	Patente     string
	Sector      string
	Direccion   string
	Lugar       string
	Heridos     int
	Fallecidos  int
	Descripcion string
	Web         string
}

// Meta accompanies the rows into a renderer.
type Meta struct {
	Title       string
	GeneratedAt time.Time
	// Filters echoes the query that produced the report, for the header.
	Filters string
}

// MapRow flattens an incident into a report row, defaulting missing fields
// to display placeholders.
func MapRow(inc models.Incident) Row {
	row := Row{
		Hora:        inc.Hora,
		Tipo:        inc.Incidente,
		Medio:       inc.Medio,
		Vehiculo:    inc.Vehiculo,
		Patente:     inc.Patente,
		Sector:      inc.Sector,
		Direccion:   inc.Direccion,
		Lugar:       inc.Lugar,
		Heridos:     inc.Heridos,
		Fallecidos:  inc.Fallecidos,
		Descripcion: inc.Descripcion,
		Web:         inc.Web,
	}
	if !inc.Fecha.IsZero() {
		// es-AR short date, evaluated in UTC like the stored value.
		row.Fecha = inc.Fecha.UTC().Format("02/01/2006")
	}
	if row.Patente == "" {
		row.Patente = "-"
	}
	if row.Descripcion == "" {
		row.Descripcion = "-"
	}
	return row
}

// MapRows maps a result set preserving order.
func MapRows(incidents []models.Incident) []Row {
	rows := make([]Row, len(incidents))
	for i, inc := range incidents {
		rows[i] = MapRow(inc)
	}
	return rows
}

// Totals aggregates the injured and fatality counts of a row set.
func Totals(rows []Row) (heridos, fallecidos int) {
	for _, r := range rows {
		heridos += r.Heridos
		fallecidos += r.Fallecidos
	}
	return heridos, fallecidos
}
