package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validIncident() *Incident {
	return &Incident{
		Fecha:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Hora:        "14:30",
		Incidente:   "choque",
		Medio:       "automovil",
		Heridos:     1,
		Fallecidos:  0,
		Direccion:   "Av. Colon 1200",
		Sector:      "Centro. Punta Alta.",
		Lugar:       "esquina",
		Descripcion: "Colision entre dos vehiculos",
		Web:         "user",
	}
}

func TestIncident_Validate(t *testing.T) {
	t.Run("valid incident", func(t *testing.T) {
		assert.NoError(t, validIncident().Validate())
	})

	t.Run("invalid hora", func(t *testing.T) {
		inc := validIncident()
		inc.Hora = "25:00"
		assert.Error(t, inc.Validate())

		inc.Hora = "9:30" // must be zero-padded
		assert.Error(t, inc.Validate())
	})

	t.Run("incidente outside the enum", func(t *testing.T) {
		inc := validIncident()
		inc.Incidente = "explosion"
		assert.Error(t, inc.Validate())
	})

	t.Run("sector requires the exact stored form", func(t *testing.T) {
		inc := validIncident()
		inc.Sector = "Centro. Punta Alta" // missing trailing period
		assert.Error(t, inc.Validate())
	})

	t.Run("negative counts", func(t *testing.T) {
		inc := validIncident()
		inc.Heridos = -1
		assert.Error(t, inc.Validate())

		inc = validIncident()
		inc.Fallecidos = -2
		assert.Error(t, inc.Validate())
	})

	t.Run("missing required fields", func(t *testing.T) {
		inc := validIncident()
		inc.Direccion = ""
		assert.Error(t, inc.Validate())
	})

	t.Run("optional fields can be empty", func(t *testing.T) {
		inc := validIncident()
		inc.Vehiculo = ""
		inc.Patente = ""
		inc.Posicion = nil
		assert.NoError(t, inc.Validate())
	})
}

func TestIncidentUpdate_Validate(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	t.Run("empty update is valid", func(t *testing.T) {
		update := &IncidentUpdate{}
		assert.NoError(t, update.Validate())
	})

	t.Run("provided fields are re-validated", func(t *testing.T) {
		assert.Error(t, (&IncidentUpdate{Hora: str("99:99")}).Validate())
		assert.Error(t, (&IncidentUpdate{Incidente: str("meteorito")}).Validate())
		assert.Error(t, (&IncidentUpdate{Medio: str("patineta")}).Validate())
		assert.Error(t, (&IncidentUpdate{Lugar: str("puente")}).Validate())
		assert.Error(t, (&IncidentUpdate{Heridos: num(-1)}).Validate())
		assert.Error(t, (&IncidentUpdate{Direccion: str("  ")}).Validate())
	})

	t.Run("valid partial update", func(t *testing.T) {
		update := &IncidentUpdate{
			Hora:      str("08:15"),
			Incidente: str("vuelco"),
			Heridos:   num(2),
		}
		assert.NoError(t, update.Validate())
	})
}

func TestIncidentUpdate_SetDocument(t *testing.T) {
	str := func(s string) *string { return &s }
	now := time.Now()

	update := &IncidentUpdate{
		Hora:   str("08:15"),
		Sector: str("Rural."),
	}
	set := update.SetDocument(now)

	assert.Equal(t, "08:15", set["hora"])
	assert.Equal(t, "Rural.", set["sector"])
	assert.Equal(t, now, set["updatedAt"])

	// Absent fields never appear in the $set payload.
	assert.NotContains(t, set, "incidente")
	assert.NotContains(t, set, "direccion")
	assert.Len(t, set, 3)
}

func TestIncident_ToResponse(t *testing.T) {
	inc := *validIncident()

	t.Run("without image", func(t *testing.T) {
		resp := inc.ToResponse("http://localhost:8080")
		assert.Empty(t, resp.ImagenURL)
	})

	t.Run("with image", func(t *testing.T) {
		withImage := inc
		withImage.Imagen = "abc123.jpg"
		resp := withImage.ToResponse("http://localhost:8080")
		assert.Equal(t, "http://localhost:8080/uploads/img/abc123.jpg", resp.ImagenURL)
	})
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "propietario", NormalizeUsername("  Propietario "))
	assert.Equal(t, "admin", NormalizeUsername("ADMIN"))
}

func TestUser_IsLocked(t *testing.T) {
	now := time.Now()

	unlocked := &User{}
	assert.False(t, unlocked.IsLocked(now))

	future := now.Add(5 * time.Minute)
	locked := &User{LockUntil: &future}
	assert.True(t, locked.IsLocked(now))

	past := now.Add(-5 * time.Minute)
	expired := &User{LockUntil: &past}
	assert.False(t, expired.IsLocked(now))
}
