package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Closed enums of the incident schema. The wire names stay in Spanish because
// the municipal frontend and the historical CSV archive use them verbatim.
var (
	IncidenteEnum = []string{"choque", "detencion", "incendio", "incidente", "secuestro", "vuelco"}

	MedioEnum = []string{"automovil", "bicicleta", "camion", "cuatriciclo", "motocicleta", "omnibus", "remolque"}

	SectorEnum = []string{
		"Bahia Blanca.",
		"BNPB.",
		"Centro. Punta Alta.",
		"Ciudad Atlantida. Punta Alta.",
		"Nueva Bahia Blanca. Punta Alta.",
		"Pehuenco.",
		"RP 113.",
		"RN 229.",
		"RN 249.",
		"RN 3.",
		"Rural.",
		"Villa Arias.",
		"Villa del Mar.",
		"Villa Mora - Villa Laura. Punta Alta.",
		"Zona Norte. Punta Alta.",
	}

	LugarEnum = []string{"calle", "esquina", "ruta"}
)

// KeywordFields are the text fields free-text search matches against, both
// in listing and in report filters.
var KeywordFields = []string{"incidente", "medio", "vehiculo", "patente", "direccion", "sector", "lugar", "descripcion"}

var horaPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var validate = newIncidentValidator()

func newIncidentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return horaPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("incidente", enumValidation(IncidenteEnum))
	v.RegisterValidation("medio", enumValidation(MedioEnum))
	v.RegisterValidation("sector", enumValidation(SectorEnum))
	v.RegisterValidation("lugar", enumValidation(LugarEnum))
	return v
}

func enumValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return InEnum(fl.Field().String(), allowed)
	}
}

// InEnum reports whether value is one of the allowed enum members.
func InEnum(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Position is a latitude/longitude pair. It is stored as a nested document
// and must be present as a pair or absent entirely.
type Position struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Incident represents a single reported traffic event.
type Incident struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fecha       time.Time          `bson:"fecha" json:"fecha" validate:"required"`
	Hora        string             `bson:"hora" json:"hora" validate:"required,hhmm"`
	Incidente   string             `bson:"incidente" json:"incidente" validate:"required,incidente"`
	Medio       string             `bson:"medio" json:"medio" validate:"required,medio"`
	Vehiculo    string             `bson:"vehiculo,omitempty" json:"vehiculo,omitempty"`
	Patente     string             `bson:"patente,omitempty" json:"patente,omitempty"`
	Heridos     int                `bson:"heridos" json:"heridos" validate:"gte=0"`
	Fallecidos  int                `bson:"fallecidos" json:"fallecidos" validate:"gte=0"`
	Direccion   string             `bson:"direccion" json:"direccion" validate:"required"`
	Sector      string             `bson:"sector" json:"sector" validate:"required,sector"`
	Lugar       string             `bson:"lugar" json:"lugar" validate:"required,lugar"`
	Posicion    *Position          `bson:"posicion,omitempty" json:"posicion,omitempty"`
	Imagen      string             `bson:"imagen,omitempty" json:"imagen,omitempty"`
	Descripcion string             `bson:"descripcion" json:"descripcion" validate:"required"`
	Web         string             `bson:"web" json:"web" validate:"required"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the full document ahead of a create.
func (i *Incident) Validate() error {
	if err := validate.Struct(i); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("invalid field '%s'", strings.ToLower(errs[0].Field()))
		}
		return err
	}
	return nil
}

// IncidentUpdate carries the fields of a partial update. Nil pointers mean
// "leave unchanged"; provided fields are re-validated against the schema.
type IncidentUpdate struct {
	Fecha       *time.Time
	Hora        *string
	Incidente   *string
	Medio       *string
	Vehiculo    *string
	Patente     *string
	Heridos     *int
	Fallecidos  *int
	Direccion   *string
	Sector      *string
	Lugar       *string
	Posicion    *Position
	Imagen      *string
	Descripcion *string
	Web         *string
}

// Validate checks every provided field against the same rules a create uses.
func (u *IncidentUpdate) Validate() error {
	if u.Hora != nil && !horaPattern.MatchString(*u.Hora) {
		return fmt.Errorf("invalid field 'hora'")
	}
	if u.Incidente != nil && !InEnum(*u.Incidente, IncidenteEnum) {
		return fmt.Errorf("invalid field 'incidente'")
	}
	if u.Medio != nil && !InEnum(*u.Medio, MedioEnum) {
		return fmt.Errorf("invalid field 'medio'")
	}
	if u.Sector != nil && !InEnum(*u.Sector, SectorEnum) {
		return fmt.Errorf("invalid field 'sector'")
	}
	if u.Lugar != nil && !InEnum(*u.Lugar, LugarEnum) {
		return fmt.Errorf("invalid field 'lugar'")
	}
	if u.Heridos != nil && *u.Heridos < 0 {
		return fmt.Errorf("invalid field 'heridos'")
	}
	if u.Fallecidos != nil && *u.Fallecidos < 0 {
		return fmt.Errorf("invalid field 'fallecidos'")
	}
	if u.Direccion != nil && strings.TrimSpace(*u.Direccion) == "" {
		return fmt.Errorf("invalid field 'direccion'")
	}
	if u.Descripcion != nil && strings.TrimSpace(*u.Descripcion) == "" {
		return fmt.Errorf("invalid field 'descripcion'")
	}
	if u.Web != nil && strings.TrimSpace(*u.Web) == "" {
		return fmt.Errorf("invalid field 'web'")
	}
	return nil
}

// SetDocument builds the $set payload of the update.
func (u *IncidentUpdate) SetDocument(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if u.Fecha != nil {
		set["fecha"] = *u.Fecha
	}
	if u.Hora != nil {
		set["hora"] = *u.Hora
	}
	if u.Incidente != nil {
		set["incidente"] = *u.Incidente
	}
	if u.Medio != nil {
		set["medio"] = *u.Medio
	}
	if u.Vehiculo != nil {
		set["vehiculo"] = *u.Vehiculo
	}
	if u.Patente != nil {
		set["patente"] = *u.Patente
	}
	if u.Heridos != nil {
		set["heridos"] = *u.Heridos
	}
	if u.Fallecidos != nil {
		set["fallecidos"] = *u.Fallecidos
	}
	if u.Direccion != nil {
		set["direccion"] = *u.Direccion
	}
	if u.Sector != nil {
		set["sector"] = *u.Sector
	}
	if u.Lugar != nil {
		set["lugar"] = *u.Lugar
	}
	if u.Posicion != nil {
		set["posicion"] = *u.Posicion
	}
	if u.Imagen != nil {
		set["imagen"] = *u.Imagen
	}
	if u.Descripcion != nil {
		set["descripcion"] = *u.Descripcion
	}
	if u.Web != nil {
		set["web"] = *u.Web
	}
	return set
}

// IncidentResponse is the JSON shape handed to clients: the stored document
// plus the absolute image URL derived from the serving host.
type IncidentResponse struct {
	Incident
	ImagenURL string `json:"imagenUrl,omitempty"`
}

// ToResponse maps a stored incident to its API representation.
func (i Incident) ToResponse(baseURL string) IncidentResponse {
	resp := IncidentResponse{Incident: i}
	if i.Imagen != "" {
		resp.ImagenURL = fmt.Sprintf("%s/uploads/img/%s", baseURL, i.Imagen)
	}
	return resp
}
