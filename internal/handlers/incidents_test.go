package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skynetdev/incidentes-api/internal/auth"
	"github.com/skynetdev/incidentes-api/internal/broadcast"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/middleware"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/skynetdev/incidentes-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
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

func storedIncident() *models.Incident {
	return &models.Incident{
		ID:          primitive.NewObjectID(),
		Fecha:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Hora:        "14:30",
		Incidente:   "choque",
		Medio:       "automovil",
		Patente:     "AB123CD",
		Heridos:     1,
		Direccion:   "Av. Colon 1200",
		Sector:      "Centro. Punta Alta.",
		Lugar:       "esquina",
		Descripcion: "Colision entre dos vehiculos",
		Web:         "user",
	}
}

func incidentTestRouter(t *testing.T, incidents db.IncidentCollection) (*gin.Engine, *storage.ImageStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testLog()

	images, err := storage.NewImageStore(t.TempDir(), log)
	assert.NoError(t, err)

	authService := auth.NewService(nil, log, "test-secret", time.Minute)
	mw := middleware.New(authService, "test-api-key", log)
	handler := NewIncidentHandler(incidents, images, broadcast.NewNoop(), log, "", 3000)

	router := gin.New()
	router.Use(mw.RequestID(), mw.ErrorHandler())
	router.GET("/api/incidentes", handler.List)
	router.GET("/api/incidentes/mapa/jitter", handler.MapData("jitter"))
	router.GET("/api/incidentes/:id", mw.ValidateObjectID("id"), handler.GetByID)
	router.POST("/api/incidentes", handler.Create)
	router.PUT("/api/incidentes/:id", mw.ValidateObjectID("id"), handler.Update)
	router.DELETE("/api/incidentes/:id", mw.ValidateObjectID("id"), handler.Delete)
	return router, images
}

func TestIncidentHandler_List(t *testing.T) {
	t.Run("pagination meta and links", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		items := []models.Incident{*storedIncident(), *storedIncident()}
		incidents.On("List", mock.Anything, 2, 20, "choque").Return(&db.IncidentPage{
			Items: items,
			Total: 45,
			Pages: 3,
		}, nil)

		req := httptest.NewRequest("GET", "/api/incidentes?page=2&limit=20&keyword=choque", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Success bool                     `json:"success"`
			Data    []models.IncidentResponse `json:"data"`
			Meta    struct {
				Total     int64   `json:"total"`
				Page      int     `json:"page"`
				Pages     int     `json:"pages"`
				FirstPage *string `json:"firstPage"`
				PrevPage  *string `json:"prevPage"`
				NextPage  *string `json:"nextPage"`
				LastPage  *string `json:"lastPage"`
				HasPrev   bool    `json:"hasPrev"`
				HasNext   bool    `json:"hasNext"`
			} `json:"meta"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

		assert.True(t, response.Success)
		assert.Len(t, response.Data, 2)
		assert.Equal(t, int64(45), response.Meta.Total)
		assert.Equal(t, 2, response.Meta.Page)
		assert.Equal(t, 3, response.Meta.Pages)
		assert.True(t, response.Meta.HasPrev)
		assert.True(t, response.Meta.HasNext)

		assert.Contains(t, *response.Meta.FirstPage, "/api/incidentes?page=1&limit=20&keyword=choque")
		assert.Contains(t, *response.Meta.PrevPage, "page=1")
		assert.Contains(t, *response.Meta.NextPage, "page=3")
		assert.Contains(t, *response.Meta.LastPage, "page=3")
		incidents.AssertExpectations(t)
	})

	t.Run("defaults and floors", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		incidents.On("List", mock.Anything, 1, 20, "").Return(&db.IncidentPage{
			Items: []models.Incident{},
			Total: 0,
			Pages: 0,
		}, nil)

		req := httptest.NewRequest("GET", "/api/incidentes?page=-5&limit=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Meta struct {
				FirstPage *string `json:"firstPage"`
				NextPage  *string `json:"nextPage"`
				HasNext   bool    `json:"hasNext"`
			} `json:"meta"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Meta.FirstPage)
		assert.Nil(t, response.Meta.NextPage)
		assert.False(t, response.Meta.HasNext)
		incidents.AssertExpectations(t)
	})
}

func TestIncidentHandler_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		inc := storedIncident()
		inc.Imagen = "foto.jpg"
		incidents.On("FindByID", mock.Anything, inc.ID.Hex()).Return(inc, nil)

		req := httptest.NewRequest("GET", "/api/incidentes/"+inc.ID.Hex(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.IncidentResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "choque", response.Incidente)
		assert.Equal(t, "http://example.com/uploads/img/foto.jpg", response.ImagenURL)
	})

	t.Run("not found", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		id := primitive.NewObjectID().Hex()
		incidents.On("FindByID", mock.Anything, id).Return(nil, nil)

		req := httptest.NewRequest("GET", "/api/incidentes/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Incidente no encontrado")
	})

	t.Run("malformed id is stopped by the route middleware", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		req := httptest.NewRequest("GET", "/api/incidentes/garbage", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		incidents.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

func TestIncidentHandler_MapData(t *testing.T) {
	incidents := new(MockIncidentCollection)
	router, _ := incidentTestRouter(t, incidents)

	incidents.On("List", mock.Anything, 1, 3000, "").Return(&db.IncidentPage{
		Items: []models.Incident{*storedIncident(), *storedIncident()},
		Total: 2,
		Pages: 1,
	}, nil)

	req := httptest.NewRequest("GET", "/api/incidentes/mapa/jitter", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool                      `json:"success"`
		Type    string                    `json:"type"`
		Count   int                       `json:"count"`
		Data    []models.IncidentResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "jitter", response.Type)
	assert.Equal(t, 2, response.Count)
	assert.Len(t, response.Data, 2)
}

// multipartBody builds a multipart form with the given fields and an
// optional image part carrying an image/jpeg content type.
func multipartBody(t *testing.T, fields map[string]string, imageName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		assert.NoError(t, writer.WriteField(k, v))
	}

	if imageName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="imagen"; filename=%q`, imageName))
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		assert.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		assert.NoError(t, err)
	}

	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func createFields() map[string]string {
	return map[string]string{
		"fecha":        "2025-03-14",
		"hora":         "14:30",
		"incidente":    "choque",
		"medio":        "automovil",
		"heridos":      "1",
		"fallecidos":   "0",
		"direccion":    "Av. Colon 1200",
		"sector":       "Centro. Punta Alta.",
		"lugar":        "esquina",
		"posicion.lat": "-38.8803",
		"posicion.lng": "-62.0768",
		"descripcion":  "Colision entre dos vehiculos",
		"web":          "user",
	}
}

func TestIncidentHandler_Create(t *testing.T) {
	t.Run("successful create folds the flattened posicion", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		incidents.On("Insert", mock.Anything, mock.MatchedBy(func(inc models.Incident) bool {
			return inc.Posicion != nil &&
				inc.Posicion.Lat == -38.8803 &&
				inc.Posicion.Lng == -62.0768 &&
				inc.Incidente == "choque"
		})).Return(storedIncident(), nil)

		body, contentType := multipartBody(t, createFields(), "")
		req := httptest.NewRequest("POST", "/api/incidentes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		incidents.AssertExpectations(t)
	})

	t.Run("with image", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, images := incidentTestRouter(t, incidents)

		incidents.On("Insert", mock.Anything, mock.MatchedBy(func(inc models.Incident) bool {
			return inc.Imagen != "" && images.Exists(inc.Imagen)
		})).Return(storedIncident(), nil)

		body, contentType := multipartBody(t, createFields(), "foto.jpg")
		req := httptest.NewRequest("POST", "/api/incidentes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		incidents.AssertExpectations(t)
	})

	t.Run("invalid enum never reaches the database", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		fields := createFields()
		fields["incidente"] = "meteorito"
		body, contentType := multipartBody(t, fields, "")
		req := httptest.NewRequest("POST", "/api/incidentes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		incidents.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("failed insert removes the uploaded image", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, images := incidentTestRouter(t, incidents)

		incidents.On("Insert", mock.Anything, mock.AnythingOfType("models.Incident")).
			Return(nil, assert.AnError)

		body, contentType := multipartBody(t, createFields(), "foto.jpg")
		req := httptest.NewRequest("POST", "/api/incidentes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		leftovers, err := os.ReadDir(images.Dir())
		assert.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("incomplete posicion pair", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		fields := createFields()
		delete(fields, "posicion.lng")
		body, contentType := multipartBody(t, fields, "")
		req := httptest.NewRequest("POST", "/api/incidentes", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIncidentHandler_Update(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		existing := storedIncident()
		updated := *existing
		updated.Hora = "16:45"

		incidents.On("FindByID", mock.Anything, existing.ID.Hex()).Return(existing, nil)
		incidents.On("Update", mock.Anything, existing.ID.Hex(),
			mock.MatchedBy(func(u models.IncidentUpdate) bool {
				return u.Hora != nil && *u.Hora == "16:45" && u.Incidente == nil
			})).Return(&updated, nil)

		body, contentType := multipartBody(t, map[string]string{"hora": "16:45"}, "")
		req := httptest.NewRequest("PUT", "/api/incidentes/"+existing.ID.Hex(), body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Incidente actualizado correctamente")
		incidents.AssertExpectations(t)
	})

	t.Run("image replacement removes the previous file", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, images := incidentTestRouter(t, incidents)

		// Seed the previous image on disk.
		previous := "previa.jpg"
		assert.NoError(t, os.WriteFile(filepath.Join(images.Dir(), previous), []byte("old"), 0o644))

		existing := storedIncident()
		existing.Imagen = previous
		updated := *existing

		incidents.On("FindByID", mock.Anything, existing.ID.Hex()).Return(existing, nil)
		incidents.On("Update", mock.Anything, existing.ID.Hex(),
			mock.MatchedBy(func(u models.IncidentUpdate) bool {
				return u.Imagen != nil && *u.Imagen != ""
			})).Return(&updated, nil)

		body, contentType := multipartBody(t, map[string]string{"hora": "16:45"}, "nueva.jpg")
		req := httptest.NewRequest("PUT", "/api/incidentes/"+existing.ID.Hex(), body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, images.Exists(previous))
	})

	t.Run("not found removes the new image again", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, images := incidentTestRouter(t, incidents)

		id := primitive.NewObjectID().Hex()
		incidents.On("FindByID", mock.Anything, id).Return(nil, nil)

		body, contentType := multipartBody(t, map[string]string{"hora": "16:45"}, "nueva.jpg")
		req := httptest.NewRequest("PUT", "/api/incidentes/"+id, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		leftovers, err := os.ReadDir(images.Dir())
		assert.NoError(t, err)
		assert.Empty(t, leftovers)
		incidents.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestIncidentHandler_Delete(t *testing.T) {
	t.Run("successful delete cascades the image", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, images := incidentTestRouter(t, incidents)

		deleted := storedIncident()
		deleted.Imagen = "borrar.jpg"
		assert.NoError(t, os.WriteFile(filepath.Join(images.Dir(), deleted.Imagen), []byte("x"), 0o644))

		incidents.On("Delete", mock.Anything, deleted.ID.Hex()).Return(deleted, nil)

		req := httptest.NewRequest("DELETE", "/api/incidentes/"+deleted.ID.Hex(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Mensaje  string `json:"mensaje"`
			ID       string `json:"id"`
			Tipo     string `json:"tipo"`
			Medio    string `json:"medio"`
			Patente  string `json:"patente"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Incidente correctamente eliminado.", response.Mensaje)
		assert.Equal(t, deleted.ID.Hex(), response.ID)
		assert.Equal(t, "choque", response.Tipo)
		assert.False(t, images.Exists(deleted.Imagen))
	})

	t.Run("not found", func(t *testing.T) {
		incidents := new(MockIncidentCollection)
		router, _ := incidentTestRouter(t, incidents)

		id := primitive.NewObjectID().Hex()
		incidents.On("Delete", mock.Anything, id).Return(nil, nil)

		req := httptest.NewRequest("DELETE", "/api/incidentes/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
