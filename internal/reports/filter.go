package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Query carries the raw report filter parameters as received on the wire.
// The sentinel value "todos" on sector and fallecidos means "no filter" and
// is resolved here, once, at the parsing boundary.
type Query struct {
	Desde      string
	Hasta      string
	Keyword    string
	Tipo       string
	Medio      string
	Sector     string
	Periodo    string
	Fallecidos string
}

const sentinelTodos = "todos"

var (
	periodoEnum    = []string{"maniana", "tarde", "noche"}
	fallecidosEnum = []string{"con", "sin"}
)

// Time-of-day buckets, compared lexicographically on the zero-padded HH:MM
// string. The night bucket wraps midnight and needs an explicit OR of two
// half-ranges; a single range cannot express it.
const (
	mananaFrom = "07:00"
	mananaTo   = "14:00"
	tardeFrom  = "14:01"
	tardeTo    = "21:00"
	nocheFrom  = "21:01"
	nocheTo    = "06:59"
)

// validateEnum returns the trimmed value, or "" when absent, or a validation
// error when the value is not an allowed enum member. Invalid values fail
// here, before any query is executed.
func validateEnum(value string, allowed []string, fieldName string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	if !models.InEnum(v, allowed) {
		return "", apperrors.Validation(fmt.Sprintf(
			"Invalid '%s'. Allowed values: %s", fieldName, strings.Join(allowed, ", ")))
	}
	return v, nil
}

// BuildFilter translates the report query parameters into a Mongo filter.
// All fragments compose conjunctively; the periodo-noche OR and the keyword
// OR live in separate $and members so they never collide.
func BuildFilter(q Query) (bson.M, error) {
	filter := bson.M{}
	var and []bson.M

	if q.Desde != "" || q.Hasta != "" {
		fecha := bson.M{}
		if q.Desde != "" {
			desde, err := time.Parse("2006-01-02", q.Desde)
			if err != nil {
				return nil, apperrors.Validation("Invalid 'desde' date, expected YYYY-MM-DD")
			}
			fecha["$gte"] = desde
		}
		if q.Hasta != "" {
			hasta, err := time.Parse("2006-01-02", q.Hasta)
			if err != nil {
				return nil, apperrors.Validation("Invalid 'hasta' date, expected YYYY-MM-DD")
			}
			fecha["$lte"] = hasta
		}
		filter["fecha"] = fecha
	}

	tipo, err := validateEnum(q.Tipo, models.IncidenteEnum, "tipo")
	if err != nil {
		return nil, err
	}
	if tipo != "" {
		filter["incidente"] = tipo
	}

	medio, err := validateEnum(q.Medio, models.MedioEnum, "medio")
	if err != nil {
		return nil, err
	}
	if medio != "" {
		filter["medio"] = medio
	}

	// "todos" is a frontend sentinel, not an enum member; it bypasses
	// validation entirely.
	if q.Sector != "" && q.Sector != sentinelTodos {
		sector, err := validateEnum(q.Sector, models.SectorEnum, "sector")
		if err != nil {
			return nil, err
		}
		if sector != "" {
			filter["sector"] = sector
		}
	}

	if q.Fallecidos != "" && q.Fallecidos != sentinelTodos {
		fallecidos, err := validateEnum(q.Fallecidos, fallecidosEnum, "fallecidos")
		if err != nil {
			return nil, err
		}
		switch fallecidos {
		case "con":
			filter["fallecidos"] = bson.M{"$gt": 0}
		case "sin":
			filter["fallecidos"] = 0
		}
	}

	if q.Periodo != "" {
		periodo, err := validateEnum(q.Periodo, periodoEnum, "periodo")
		if err != nil {
			return nil, err
		}
		switch periodo {
		case "maniana":
			filter["hora"] = bson.M{"$gte": mananaFrom, "$lte": mananaTo}
		case "tarde":
			filter["hora"] = bson.M{"$gte": tardeFrom, "$lte": tardeTo}
		case "noche":
			and = append(and, bson.M{"$or": []bson.M{
				{"hora": bson.M{"$gte": nocheFrom}},
				{"hora": bson.M{"$lte": nocheTo}},
			}})
		}
	}

	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		or := make([]bson.M, 0, len(models.KeywordFields))
		for _, field := range models.KeywordFields {
			or = append(or, bson.M{field: bson.M{"$regex": kw, "$options": "i"}})
		}
		and = append(and, bson.M{"$or": or})
	}

	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter, nil
}

// Echo renders the non-empty filter parameters for display in report headers.
func (q Query) Echo() string {
	parts := []string{}
	add := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", name, value))
		}
	}
	add("desde", q.Desde)
	add("hasta", q.Hasta)
	add("tipo", q.Tipo)
	add("medio", q.Medio)
	add("sector", q.Sector)
	add("periodo", q.Periodo)
	add("fallecidos", q.Fallecidos)
	add("keyword", q.Keyword)
	return strings.Join(parts, " | ")
}
