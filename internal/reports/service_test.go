package reports

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
)

// MockIncidentCollection is a mock implementation of db.IncidentCollection
type MockIncidentCollection struct {
	mock.Mock
}

func (m *MockIncidentCollection) List(ctx context.Context, page, limit int, keyword string) (*db.IncidentPage, error) {
	args := m.Called(ctx, page, limit, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.IncidentPage), args.Error(1)
}

func (m *MockIncidentCollection) Find(ctx context.Context, filter bson.M) ([]models.Incident, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Incident), args.Error(1)
}

func (m *MockIncidentCollection) FindByID(ctx context.Context, id string) (*models.Incident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Incident), args.Error(1)
}

func (m *MockIncidentCollection) Insert(ctx context.Context, incident models.Incident) (*models.Incident, error) {
	args := m.Called(ctx, incident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Incident), args.Error(1)
}

func (m *MockIncidentCollection) Update(ctx context.Context, id string, update models.IncidentUpdate) (*models.Incident, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Incident), args.Error(1)
}

func (m *MockIncidentCollection) Delete(ctx context.Context, id string) (*models.Incident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Incident), args.Error(1)
}

func newTestReportService(incidents db.IncidentCollection) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(incidents, log)
}

func sampleIncidents() []models.Incident {
	return []models.Incident{
		{
			Fecha:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Hora:      "14:30",
			Incidente: "choque",
			Medio:     "automovil",
			Sector:    "Centro. Punta Alta.",
			Direccion: "Av. Colon 1200",
			Heridos:   1,
		},
	}
}

func TestService_PDF(t *testing.T) {
	incidents := new(MockIncidentCollection)
	service := newTestReportService(incidents)

	incidents.On("Find", mock.Anything, bson.M{"incidente": "choque"}).
		Return(sampleIncidents(), nil)

	result, err := service.PDF(context.Background(), Query{Tipo: "choque"})
	assert.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Regexp(t, `^reporte-incidentes-\d+\.pdf$`, result.Filename)
	assert.Equal(t, "%PDF", string(result.Data[:4]))
	incidents.AssertExpectations(t)
}

func TestService_XLSX(t *testing.T) {
	incidents := new(MockIncidentCollection)
	service := newTestReportService(incidents)

	incidents.On("Find", mock.Anything, bson.M{}).Return(sampleIncidents(), nil)

	result, err := service.XLSX(context.Background(), Query{})
	assert.NoError(t, err)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		result.ContentType)
	assert.Regexp(t, `^reporte-incidentes-\d+\.xlsx$`, result.Filename)
	assert.Equal(t, "PK", string(result.Data[:2]))
	incidents.AssertExpectations(t)
}

func TestService_InvalidFilterFailsBeforeTheQuery(t *testing.T) {
	incidents := new(MockIncidentCollection)
	service := newTestReportService(incidents)

	_, err := service.PDF(context.Background(), Query{Tipo: "tsunami"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	incidents.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}
