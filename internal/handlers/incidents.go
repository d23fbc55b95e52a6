package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/apperrors"
	"github.com/skynetdev/incidentes-api/internal/broadcast"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/skynetdev/incidentes-api/internal/storage"
)

const (
	defaultPageSize = 20
	imageFormField  = "imagen"
)

// IncidentHandler exposes the incident read and write endpoints.
type IncidentHandler struct {
	incidents db.IncidentCollection
	images    *storage.ImageStore
	events    broadcast.Publisher
	log       *logrus.Logger

	// baseURLOverride replaces the request-derived scheme+host when set,
	// for deployments behind a proxy that rewrites the Host header.
	baseURLOverride string
	mapLimit        int
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(
	incidents db.IncidentCollection,
	images *storage.ImageStore,
	events broadcast.Publisher,
	log *logrus.Logger,
	baseURLOverride string,
	mapLimit int,
) *IncidentHandler {
	return &IncidentHandler{
		incidents:       incidents,
		images:          images,
		events:          events,
		log:             log,
		baseURLOverride: baseURLOverride,
		mapLimit:        mapLimit,
	}
}

// baseURL derives the absolute prefix image links are built from.
func (h *IncidentHandler) baseURL(c *gin.Context) string {
	if h.baseURLOverride != "" {
		return h.baseURLOverride
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

// List returns one page of incidents with navigation links in the meta block.
func (h *IncidentHandler) List(c *gin.Context) {
	page := atLeast(1, c.Query("page"), 1)
	limit := atLeast(1, c.Query("limit"), defaultPageSize)
	keyword := c.Query("keyword")

	h.log.WithFields(logrus.Fields{
		"page":    page,
		"limit":   limit,
		"keyword": keyword,
	}).Info("listing incidents")

	result, err := h.incidents.List(c.Request.Context(), page, limit, keyword)
	if err != nil {
		c.Error(apperrors.Internal("Error al obtener el listado de incidentes", err))
		c.Abort()
		return
	}

	baseURL := h.baseURL(c)
	collectionURL := baseURL + "/api/incidentes"
	pageLink := func(p int) string {
		return fmt.Sprintf("%s?page=%d&limit=%d&keyword=%s",
			collectionURL, p, limit, url.QueryEscape(keyword))
	}

	data := make([]models.IncidentResponse, 0, len(result.Items))
	for _, incident := range result.Items {
		data = append(data, incident.ToResponse(baseURL))
	}

	meta := gin.H{
		"total":     result.Total,
		"page":      page,
		"pages":     result.Pages,
		"firstPage": nil,
		"prevPage":  nil,
		"nextPage":  nil,
		"lastPage":  nil,
		"hasPrev":   page > 1,
		"hasNext":   page < result.Pages,
	}
	if result.Total > 0 {
		meta["firstPage"] = pageLink(1)
	}
	if page > 1 {
		meta["prevPage"] = pageLink(page - 1)
	}
	if page < result.Pages {
		meta["nextPage"] = pageLink(page + 1)
	}
	if result.Pages > 0 {
		meta["lastPage"] = pageLink(result.Pages)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

// GetByID returns a single incident. The id format was already checked by the
// route middleware, so a miss here means the document does not exist.
func (h *IncidentHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	incident, err := h.incidents.FindByID(c.Request.Context(), id)
	if err != nil {
		c.Error(apperrors.Internal("Error al obtener el incidente", err))
		c.Abort()
		return
	}
	if incident == nil {
		c.Error(apperrors.NotFound("Incidente no encontrado"))
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, incident.ToResponse(h.baseURL(c)))
}

// MapData returns the unpaginated feed the map view renders, capped at
// mapLimit records. The type field tells the frontend which visualization
// the data is meant for; the payload itself is identical for both.
func (h *IncidentHandler) MapData(mapType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.incidents.List(c.Request.Context(), 1, h.mapLimit, "")
		if err != nil {
			c.Error(apperrors.Internal(
				fmt.Sprintf("Error al obtener datos para mapa %s", mapType), err))
			c.Abort()
			return
		}

		baseURL := h.baseURL(c)
		data := make([]models.IncidentResponse, 0, len(result.Items))
		for _, incident := range result.Items {
			data = append(data, incident.ToResponse(baseURL))
		}

		if len(data) == h.mapLimit {
			h.log.WithFields(logrus.Fields{
				"type":     mapType,
				"limit":    h.mapLimit,
				"returned": len(data),
			}).Warn("map feed hit the record cap; map data may be truncated")
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"type":    mapType,
			"count":   len(data),
			"data":    data,
		})
	}
}

// Create stores a new incident from a multipart form, with an optional image.
// An uploaded file is removed again when the create fails for any reason.
func (h *IncidentHandler) Create(c *gin.Context) {
	incident, err := incidentFromForm(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	filename, err := h.saveUpload(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	incident.Imagen = filename

	if err := incident.Validate(); err != nil {
		h.images.Remove(filename)
		c.Error(apperrors.Validation(err.Error()))
		c.Abort()
		return
	}

	created, err := h.incidents.Insert(c.Request.Context(), *incident)
	if err != nil {
		h.images.Remove(filename)
		c.Error(apperrors.Internal("Error al crear el incidente", err))
		c.Abort()
		return
	}

	h.log.WithFields(logrus.Fields{
		"id":       created.ID.Hex(),
		"tipo":     created.Incidente,
		"hasImage": created.Imagen != "",
	}).Info("incident created")

	h.events.Publish(broadcast.Event{
		Action: "created",
		ID:     created.ID.Hex(),
		Tipo:   created.Incidente,
		Sector: created.Sector,
		At:     time.Now(),
	})

	c.JSON(http.StatusCreated, created.ToResponse(h.baseURL(c)))
}

// Update applies a partial update from a multipart form. A new image replaces
// the stored one; the previous file is removed only after the update lands.
func (h *IncidentHandler) Update(c *gin.Context) {
	id := c.Param("id")

	update, err := incidentUpdateFromForm(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	newImage, err := h.saveUpload(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if newImage != "" {
		update.Imagen = &newImage
	}

	existing, err := h.incidents.FindByID(c.Request.Context(), id)
	if err != nil {
		h.images.Remove(newImage)
		c.Error(apperrors.Internal("Error al actualizar el incidente", err))
		c.Abort()
		return
	}
	if existing == nil {
		h.images.Remove(newImage)
		c.Error(apperrors.NotFound("Incidente no encontrado"))
		c.Abort()
		return
	}

	if err := update.Validate(); err != nil {
		h.images.Remove(newImage)
		c.Error(apperrors.Validation("Datos invalidos para actualizar el incidente"))
		c.Abort()
		return
	}

	updated, err := h.incidents.Update(c.Request.Context(), id, *update)
	if err != nil {
		h.images.Remove(newImage)
		c.Error(apperrors.Internal("Error al actualizar el incidente", err))
		c.Abort()
		return
	}
	if updated == nil {
		h.images.Remove(newImage)
		c.Error(apperrors.NotFound("Incidente no encontrado"))
		c.Abort()
		return
	}

	if newImage != "" && existing.Imagen != "" {
		h.images.Remove(existing.Imagen)
	}

	h.log.WithFields(logrus.Fields{
		"id":            id,
		"imageReplaced": newImage != "",
	}).Info("incident updated")

	h.events.Publish(broadcast.Event{
		Action: "updated",
		ID:     updated.ID.Hex(),
		Tipo:   updated.Incidente,
		Sector: updated.Sector,
		At:     time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"mensaje":   "Incidente actualizado correctamente",
		"incidente": updated.ToResponse(h.baseURL(c)),
	})
}

// Delete removes an incident and its image file.
func (h *IncidentHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.incidents.Delete(c.Request.Context(), id)
	if err != nil {
		c.Error(apperrors.Internal("Error al eliminar el incidente", err))
		c.Abort()
		return
	}
	if deleted == nil {
		c.Error(apperrors.NotFound(
			"No se pudo eliminar este incidente porque no se encontro el id recibido"))
		c.Abort()
		return
	}

	h.images.Remove(deleted.Imagen)

	h.log.WithFields(logrus.Fields{
		"id":       deleted.ID.Hex(),
		"hadImage": deleted.Imagen != "",
	}).Info("incident deleted")

	h.events.Publish(broadcast.Event{
		Action: "deleted",
		ID:     deleted.ID.Hex(),
		Tipo:   deleted.Incidente,
		Sector: deleted.Sector,
		At:     time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"mensaje":  "Incidente correctamente eliminado.",
		"id":       deleted.ID.Hex(),
		"tipo":     deleted.Incidente,
		"medio":    deleted.Medio,
		"vehiculo": deleted.Vehiculo,
		"patente":  deleted.Patente,
	})
}

// saveUpload stores the optional image of a multipart request and returns the
// stored filename, or "" when the request carries no file.
func (h *IncidentHandler) saveUpload(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile(imageFormField)
	if err == http.ErrMissingFile || fileHeader == nil {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Validation("No se pudo leer el archivo de imagen")
	}
	return h.images.Save(fileHeader)
}

// atLeast parses a positive integer query value with a floor and a default.
func atLeast(floor int, raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < floor {
		return floor
	}
	return value
}

// incidentFromForm builds a full incident from the create form fields.
// The frontend sends posicion flattened as posicion.lat / posicion.lng.
func incidentFromForm(c *gin.Context) (*models.Incident, error) {
	fecha, err := parseFecha(c.PostForm("fecha"))
	if err != nil {
		return nil, err
	}

	heridos, err := parseCount(c.PostForm("heridos"), "heridos")
	if err != nil {
		return nil, err
	}
	fallecidos, err := parseCount(c.PostForm("fallecidos"), "fallecidos")
	if err != nil {
		return nil, err
	}

	posicion, err := parsePosicion(c)
	if err != nil {
		return nil, err
	}

	return &models.Incident{
		Fecha:       fecha,
		Hora:        strings.TrimSpace(c.PostForm("hora")),
		Incidente:   strings.TrimSpace(c.PostForm("incidente")),
		Medio:       strings.TrimSpace(c.PostForm("medio")),
		Vehiculo:    strings.TrimSpace(c.PostForm("vehiculo")),
		Patente:     strings.TrimSpace(c.PostForm("patente")),
		Heridos:     heridos,
		Fallecidos:  fallecidos,
		Direccion:   strings.TrimSpace(c.PostForm("direccion")),
		Sector:      strings.TrimSpace(c.PostForm("sector")),
		Lugar:       strings.TrimSpace(c.PostForm("lugar")),
		Posicion:    posicion,
		Descripcion: strings.TrimSpace(c.PostForm("descripcion")),
		Web:         strings.TrimSpace(c.PostForm("web")),
	}, nil
}

// incidentUpdateFromForm builds a partial update from the form fields that
// are actually present; absent keys stay untouched.
func incidentUpdateFromForm(c *gin.Context) (*models.IncidentUpdate, error) {
	update := &models.IncidentUpdate{}

	if raw, ok := c.GetPostForm("fecha"); ok {
		fecha, err := parseFecha(raw)
		if err != nil {
			return nil, err
		}
		update.Fecha = &fecha
	}
	if v, ok := formString(c, "hora"); ok {
		update.Hora = v
	}
	if v, ok := formString(c, "incidente"); ok {
		update.Incidente = v
	}
	if v, ok := formString(c, "medio"); ok {
		update.Medio = v
	}
	if v, ok := formString(c, "vehiculo"); ok {
		update.Vehiculo = v
	}
	if v, ok := formString(c, "patente"); ok {
		update.Patente = v
	}
	if raw, ok := c.GetPostForm("heridos"); ok {
		n, err := parseCount(raw, "heridos")
		if err != nil {
			return nil, err
		}
		update.Heridos = &n
	}
	if raw, ok := c.GetPostForm("fallecidos"); ok {
		n, err := parseCount(raw, "fallecidos")
		if err != nil {
			return nil, err
		}
		update.Fallecidos = &n
	}
	if v, ok := formString(c, "direccion"); ok {
		update.Direccion = v
	}
	if v, ok := formString(c, "sector"); ok {
		update.Sector = v
	}
	if v, ok := formString(c, "lugar"); ok {
		update.Lugar = v
	}
	if v, ok := formString(c, "descripcion"); ok {
		update.Descripcion = v
	}
	if v, ok := formString(c, "web"); ok {
		update.Web = v
	}

	posicion, err := parsePosicion(c)
	if err != nil {
		return nil, err
	}
	if posicion != nil {
		update.Posicion = posicion
	}

	return update, nil
}

func formString(c *gin.Context, key string) (*string, bool) {
	raw, ok := c.GetPostForm(key)
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(raw)
	return &trimmed, true
}

// parseFecha accepts the plain date the form sends and the full timestamp
// the importer produces.
func parseFecha(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.Validation("El campo 'fecha' es obligatorio")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Validation("Fecha inválida, se espera YYYY-MM-DD")
}

func parseCount(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(
			fmt.Sprintf("El campo '%s' debe ser un entero no negativo", field))
	}
	return n, nil
}

// parsePosicion folds the flattened posicion.lat / posicion.lng form keys
// into a coordinate pair. Both must be present or both absent.
func parsePosicion(c *gin.Context) (*models.Position, error) {
	rawLat, hasLat := c.GetPostForm("posicion.lat")
	rawLng, hasLng := c.GetPostForm("posicion.lng")
	if !hasLat && !hasLng {
		return nil, nil
	}
	if !hasLat || !hasLng {
		return nil, apperrors.Validation("La posición requiere lat y lng")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return nil, apperrors.Validation("La posición requiere lat y lng numéricos")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err != nil {
		return nil, apperrors.Validation("La posición requiere lat y lng numéricos")
	}
	return &models.Position{Lat: lat, Lng: lng}, nil
}
