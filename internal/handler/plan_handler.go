package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type planExporter interface {
	Export(ctx context.Context, rawDate, format string) (*service.PlanDocument, error)
}

// PlanHandler serves the daily substitution plan.
type PlanHandler struct {
	plans planExporter
}

// NewPlanHandler builds a new handler.
func NewPlanHandler(plans planExporter) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// Export godoc
// @Summary Export the substitution plan of a day
// @Tags Plan
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "json|csv|pdf"
// @Success 200 {object} response.Envelope
// @Router /substitution-plan [get]
func (h *PlanHandler) Export(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	doc, err := h.plans.Export(c.Request.Context(), date, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if doc.Filename == "" {
		response.JSON(c, http.StatusOK, doc.Entries, nil, map[string]interface{}{"date": date})
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}
