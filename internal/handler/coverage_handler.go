package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type lessonRanker interface {
	RankForAbsence(ctx context.Context, absenceID, lessonID, sortKey string) ([]models.SubstituteCandidate, error)
	RankSubstitutes(ctx context.Context, absentTeacherID, lessonID string, date time.Time, sortKey string) ([]models.SubstituteCandidate, error)
}

type dutyRanker interface {
	RankForAbsence(ctx context.Context, absenceID, dutyID string) ([]models.SupervisionCandidate, error)
	RankSupervisionSubstitutes(ctx context.Context, absentTeacherID, dutyID string) ([]models.SupervisionCandidate, error)
}

type assignmentService interface {
	AssignSubstitute(ctx context.Context, absenceID string, req dto.AssignSubstituteRequest, actorID string) (*models.Substitution, error)
	AssignSupervisionSubstitute(ctx context.Context, absenceID string, req dto.AssignSupervisionSubstituteRequest, actorID string) (*models.BreakSupervisionSubstitution, error)
	AutoAssignAll(ctx context.Context, absenceID, actorID string, minimumScore *int) (*models.AutoAssignResult, error)
	RemoveSubstitution(ctx context.Context, id string) error
	RemoveSupervisionSubstitution(ctx context.Context, id string) error
	ListSubstitutions(ctx context.Context, absenceID string) (*models.AbsenceCoverage, error)
}

// CoverageHandler exposes candidate ranking and substitution endpoints.
type CoverageHandler struct {
	lessons     lessonRanker
	duties      dutyRanker
	assignments assignmentService
}

// NewCoverageHandler builds a new handler.
func NewCoverageHandler(lessons lessonRanker, duties dutyRanker, assignments assignmentService) *CoverageHandler {
	return &CoverageHandler{lessons: lessons, duties: duties, assignments: assignments}
}

// LessonCandidates godoc
// @Summary Rank substitutes for a lesson affected by an absence
// @Tags Coverage
// @Produce json
// @Param id path string true "Absence ID"
// @Param lessonId path string true "Scheduled lesson ID"
// @Param sort query string false "score|workload|qualified|reserve|name"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/lessons/{lessonId}/candidates [get]
func (h *CoverageHandler) LessonCandidates(c *gin.Context) {
	candidates, err := h.lessons.RankForAbsence(c.Request.Context(), c.Param("id"), c.Param("lessonId"), c.Query("sort"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// RankLesson godoc
// @Summary Rank substitutes for a lesson without a stored absence
// @Tags Coverage
// @Produce json
// @Param lessonId path string true "Scheduled lesson ID"
// @Param absentTeacherId query string true "Absent teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param sort query string false "score|workload|qualified|reserve|name"
// @Success 200 {object} response.Envelope
// @Router /lessons/{lessonId}/candidates [get]
func (h *CoverageHandler) RankLesson(c *gin.Context) {
	absentTeacherID := c.Query("absentTeacherId")
	if absentTeacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "absentTeacherId is required"))
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	candidates, err := h.lessons.RankSubstitutes(c.Request.Context(), absentTeacherID, c.Param("lessonId"), date, c.Query("sort"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// DutyCandidates godoc
// @Summary Rank substitutes for a supervision duty affected by an absence
// @Tags Coverage
// @Produce json
// @Param id path string true "Absence ID"
// @Param dutyId path string true "Supervision duty ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/duties/{dutyId}/candidates [get]
func (h *CoverageHandler) DutyCandidates(c *gin.Context) {
	candidates, err := h.duties.RankForAbsence(c.Request.Context(), c.Param("id"), c.Param("dutyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// RankDuty godoc
// @Summary Rank substitutes for a supervision duty without a stored absence
// @Tags Coverage
// @Produce json
// @Param dutyId path string true "Supervision duty ID"
// @Param absentTeacherId query string true "Absent teacher ID"
// @Success 200 {object} response.Envelope
// @Router /duties/{dutyId}/candidates [get]
func (h *CoverageHandler) RankDuty(c *gin.Context) {
	absentTeacherID := c.Query("absentTeacherId")
	if absentTeacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "absentTeacherId is required"))
		return
	}
	candidates, err := h.duties.RankSupervisionSubstitutes(c.Request.Context(), absentTeacherID, c.Param("dutyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Assign godoc
// @Summary Cover an affected lesson
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.AssignSubstituteRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /absences/{id}/substitutions [post]
func (h *CoverageHandler) Assign(c *gin.Context) {
	var req dto.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}
	sub, err := h.assignments.AssignSubstitute(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// AssignSupervision godoc
// @Summary Cover an affected break supervision duty
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.AssignSupervisionSubstituteRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /absences/{id}/supervision-substitutions [post]
func (h *CoverageHandler) AssignSupervision(c *gin.Context) {
	var req dto.AssignSupervisionSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid supervision payload"))
		return
	}
	sub, err := h.assignments.AssignSupervisionSubstitute(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// AutoAssign godoc
// @Summary Greedily assign the best candidate to every uncovered lesson
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.AutoAssignRequest false "Threshold override"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /absences/{id}/auto-assign [post]
func (h *CoverageHandler) AutoAssign(c *gin.Context) {
	var req dto.AutoAssignRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto-assign payload"))
			return
		}
	}
	result, err := h.assignments.AutoAssignAll(c.Request.Context(), c.Param("id"), actorID(c), req.MinimumScore)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List the substitutions recorded for an absence
// @Tags Coverage
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/substitutions [get]
func (h *CoverageHandler) List(c *gin.Context) {
	coverage, err := h.assignments.ListSubstitutions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, coverage, nil)
}

// Remove godoc
// @Summary Remove a lesson substitution
// @Tags Coverage
// @Param id path string true "Substitution ID"
// @Success 204
// @Router /substitutions/{id} [delete]
func (h *CoverageHandler) Remove(c *gin.Context) {
	if err := h.assignments.RemoveSubstitution(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveSupervision godoc
// @Summary Remove a supervision substitution
// @Tags Coverage
// @Param id path string true "Supervision substitution ID"
// @Success 204
// @Router /supervision-substitutions/{id} [delete]
func (h *CoverageHandler) RemoveSupervision(c *gin.Context) {
	if err := h.assignments.RemoveSupervisionSubstitution(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
