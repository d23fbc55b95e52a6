package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/db"
)

const reportTitle = "Reporte de Incidentes"

// Result is a rendered report ready to be sent as a download.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service turns a filter query into a rendered report. The whole result set
// and the rendered document are buffered in memory; latency and memory grow
// linearly with the matched row count.
type Service struct {
	incidents db.IncidentCollection
	log       *logrus.Logger
}

// NewService creates a new report service.
func NewService(incidents db.IncidentCollection, log *logrus.Logger) *Service {
	return &Service{incidents: incidents, log: log}
}

func (s *Service) rows(ctx context.Context, q Query) ([]Row, Meta, error) {
	filter, err := BuildFilter(q)
	if err != nil {
		return nil, Meta{}, err
	}

	incidents, err := s.incidents.Find(ctx, filter)
	if err != nil {
		return nil, Meta{}, apperrors.Internal("fetching report rows failed", err)
	}

	meta := Meta{
		Title:       reportTitle,
		GeneratedAt: time.Now(),
		Filters:     q.Echo(),
	}
	return MapRows(incidents), meta, nil
}

// PDF builds the tabular PDF report.
func (s *Service) PDF(ctx context.Context, q Query) (*Result, error) {
	rows, meta, err := s.rows(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := BuildPDF(rows, meta)
	if err != nil {
		return nil, apperrors.Internal("rendering PDF report failed", err)
	}

	s.log.WithField("rows", len(rows)).Info("PDF report generated")
	return &Result{
		Data:        data,
		Filename:    fmt.Sprintf("reporte-incidentes-%d.pdf", time.Now().UnixMilli()),
		ContentType: "application/pdf",
	}, nil
}

// XLSX builds the two-sheet spreadsheet report.
func (s *Service) XLSX(ctx context.Context, q Query) (*Result, error) {
	rows, meta, err := s.rows(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := BuildXLSX(rows, meta)
	if err != nil {
		return nil, apperrors.Internal("rendering XLSX report failed", err)
	}

	s.log.WithField("rows", len(rows)).Info("XLSX report generated")
	return &Result{
		Data:        data,
		Filename:    fmt.Sprintf("reporte-incidentes-%d.xlsx", time.Now().UnixMilli()),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}
