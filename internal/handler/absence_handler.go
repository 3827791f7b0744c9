package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type absenceService interface {
	Report(ctx context.Context, req dto.ReportAbsenceRequest, actorID string) (*models.Absence, error)
	Get(ctx context.Context, id string) (*models.Absence, error)
	List(ctx context.Context, q dto.AbsenceQuery) ([]models.Absence, *models.Pagination, error)
	Confirm(ctx context.Context, id string) (*models.Absence, error)
	Delete(ctx context.Context, id string) error
	Affected(ctx context.Context, id string) (*models.AffectedItems, error)
}

// AbsenceHandler exposes absence reporting endpoints.
type AbsenceHandler struct {
	service absenceService
}

// NewAbsenceHandler builds a new handler.
func NewAbsenceHandler(service absenceService) *AbsenceHandler {
	return &AbsenceHandler{service: service}
}

// Report godoc
// @Summary Report a teacher absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body dto.ReportAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Report(c *gin.Context) {
	var req dto.ReportAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	absence, err := h.service.Report(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// List godoc
// @Summary List absences
// @Tags Absences
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param teacherId query string false "Absent teacher"
// @Param status query string false "Absence status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	var q dto.AbsenceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	absences, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absences, pagination)
}

// Get godoc
// @Summary Get an absence
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	absence, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Confirm godoc
// @Summary Confirm a reported absence
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /absences/{id}/confirm [post]
func (h *AbsenceHandler) Confirm(c *gin.Context) {
	absence, err := h.service.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Delete godoc
// @Summary Delete an absence and its substitutions
// @Tags Absences
// @Param id path string true "Absence ID"
// @Success 204
// @Router /absences/{id} [delete]
func (h *AbsenceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Affected godoc
// @Summary List the lessons and duties affected by an absence
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/affected [get]
func (h *AbsenceHandler) Affected(c *gin.Context) {
	items, err := h.service.Affected(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if items.TimetableMissing {
		meta = map[string]interface{}{"warning": "no published timetable"}
	}
	response.JSON(c, http.StatusOK, items, nil, meta)
}
