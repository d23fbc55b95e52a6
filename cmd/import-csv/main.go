package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/config"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/skynetdev/incidentes-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// import-csv loads the historical incident archive into an empty collection.
// The archive is semicolon-separated, dates are DD/MM/YYYY and coordinates
// come as a single "lat, lng" column. The import refuses to run when the
// collection already has data.
func main() {
	file := flag.String("file", "accidentes_punta_alta.csv", "path to the CSV archive")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer database.Close(context.Background())

	incidents := database.Incidents()

	count, err := incidents.Collection.EstimatedDocumentCount(ctx)
	if err != nil {
		log.WithError(err).Fatal("could not inspect the collection")
	}
	if count > 0 {
		log.WithField("existing", count).Info("collection already has data, import cancelled")
		return
	}

	records, err := readArchive(*file)
	if err != nil {
		log.WithError(err).Fatal("could not read the CSV archive")
	}
	if len(records) == 0 {
		log.Info("the CSV archive is empty, nothing to import")
		return
	}

	docs := make([]interface{}, 0, len(records))
	now := time.Now()
	for i, record := range records {
		incident, err := recordToIncident(record, now)
		if err != nil {
			log.WithFields(logrus.Fields{
				"line":  i + 2, // 1-based, plus the header line
				"error": err.Error(),
			}).Fatal("invalid record")
		}
		docs = append(docs, incident)
	}

	if _, err := incidents.Collection.InsertMany(ctx, docs); err != nil {
		log.WithError(err).Fatal("bulk insert failed")
	}

	log.WithField("imported", len(docs)).Info("import completed")
}

// readArchive parses the semicolon-separated file into column-keyed records.
func readArchive(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[strings.TrimSpace(name)] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func recordToIncident(record map[string]string, now time.Time) (models.Incident, error) {
	fecha, err := parseFecha(record["fecha"])
	if err != nil {
		return models.Incident{}, err
	}

	posicion, err := parsePosicion(record["posicion"])
	if err != nil {
		return models.Incident{}, err
	}

	incident := models.Incident{
		ID:          primitive.NewObjectID(),
		Fecha:       fecha,
		Hora:        record["hora"],
		Incidente:   record["incidente"],
		Medio:       record["medio"],
		Vehiculo:    record["vehiculo"],
		Patente:     record["patente"],
		Heridos:     parseCount(record["heridos"]),
		Fallecidos:  parseCount(record["fallecidos"]),
		Direccion:   record["direccion"],
		Sector:      record["sector"],
		Lugar:       record["lugar"],
		Posicion:    posicion,
		Imagen:      record["imagen"],
		Descripcion: record["descripcion"],
		Web:         record["web"],
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := incident.Validate(); err != nil {
		return models.Incident{}, err
	}
	return incident, nil
}

// parseFecha converts the archive's DD/MM/YYYY dates.
func parseFecha(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing 'fecha'")
	}
	t, err := time.Parse("2/1/2006", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid 'fecha' %q: %w", raw, err)
	}
	return t, nil
}

// parseCount treats blanks and garbage as zero, matching the archive's
// loose formatting.
func parseCount(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parsePosicion splits the single "lat, lng" column.
func parsePosicion(raw string) (*models.Position, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid 'posicion' %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid 'posicion' %q: %w", raw, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid 'posicion' %q: %w", raw, err)
	}
	return &models.Position{Lat: lat, Lng: lng}, nil
}
