package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/reports"
)

// ReportHandler serves the PDF and XLSX report downloads.
type ReportHandler struct {
	reports *reports.Service
	log     *logrus.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService *reports.Service, log *logrus.Logger) *ReportHandler {
	return &ReportHandler{reports: reportService, log: log}
}

func reportQuery(c *gin.Context) reports.Query {
	return reports.Query{
		Desde:      c.Query("desde"),
		Hasta:      c.Query("hasta"),
		Keyword:    c.Query("keyword"),
		Tipo:       c.Query("tipo"),
		Medio:      c.Query("medio"),
		Sector:     c.Query("sector"),
		Periodo:    c.Query("periodo"),
		Fallecidos: c.Query("fallecidos"),
	}
}

// PDF streams the tabular PDF report as an attachment.
func (h *ReportHandler) PDF(c *gin.Context) {
	h.serve(c, h.reports.PDF)
}

// XLSX streams the spreadsheet report as an attachment.
func (h *ReportHandler) XLSX(c *gin.Context) {
	h.serve(c, h.reports.XLSX)
}

func (h *ReportHandler) serve(
	c *gin.Context,
	build func(ctx context.Context, q reports.Query) (*reports.Result, error),
) {
	query := reportQuery(c)

	result, err := build(c.Request.Context(), query)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	h.log.WithFields(logrus.Fields{
		"filename": result.Filename,
		"bytes":    len(result.Data),
		"filters":  query.Echo(),
	}).Info("report download served")

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
