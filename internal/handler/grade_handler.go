package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/middleware"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/internal/service"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type gradeSummaryService interface {
	Summary(ctx context.Context, classID, studentID string) (*models.GradeSummary, error)
	ClassGradebook(ctx context.Context, classID string) ([]models.StudentGradeSummary, error)
}

type gradebookService interface {
	Get(ctx context.Context, classID string) (*models.GradebookConfig, error)
	Save(ctx context.Context, classID string, req dto.SaveGradebookRequest) (*models.GradebookConfig, error)
	Export(ctx context.Context, classID, format string) (*service.GradebookExport, error)
}

type teachingChecker interface {
	CanTeach(ctx context.Context, classID, userID string) (bool, error)
}

// GradeHandler serves grade summaries and the teacher gradebook.
type GradeHandler struct {
	summaries gradeSummaryService
	gradebook gradebookService
	teaching  teachingChecker
}

// NewGradeHandler constructs a GradeHandler.
func NewGradeHandler(summaries gradeSummaryService, gradebook gradebookService, teaching teachingChecker) *GradeHandler {
	return &GradeHandler{summaries: summaries, gradebook: gradebook, teaching: teaching}
}

// Summary godoc
// @Summary Grade summary of one student
// @Description Defaults to the caller. Reading another student's summary requires teaching the class.
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{id}/grades/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	caller, ok := middleware.CurrentCaller(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingIdentity)
		return
	}
	classID := c.Param("id")
	studentID := c.Query("studentId")
	if studentID == "" {
		studentID = caller.UserID
	}
	if studentID != caller.UserID && caller.Role != models.RoleAdmin {
		allowed, err := h.teaching.CanTeach(c.Request.Context(), classID, caller.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the class teachers can view other students"))
			return
		}
	}

	summary, err := h.summaries.Summary(c.Request.Context(), classID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ClassGrades godoc
// @Summary Grade summaries of every student in a class
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/grades [get]
func (h *GradeHandler) ClassGrades(c *gin.Context) {
	students, err := h.summaries.ClassGradebook(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// GetGradebook godoc
// @Summary Gradebook layout of a class
// @Description data is null when no layout was saved.
// @Tags Gradebook
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/gradebook [get]
func (h *GradeHandler) GetGradebook(c *gin.Context) {
	cfg, err := h.gradebook.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, response.Envelope{Data: gradebookData(cfg)})
}

// gradebookData keeps a nil config as an explicit JSON null.
func gradebookData(cfg *models.GradebookConfig) interface{} {
	if cfg == nil {
		return nullData{}
	}
	return cfg
}

type nullData struct{}

func (nullData) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// SaveGradebook godoc
// @Summary Save the gradebook layout of a class
// @Description Tables and grades are stored exactly as sent. Percentages default to 50/50.
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.SaveGradebookRequest true "Gradebook"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /classes/{id}/gradebook [post]
func (h *GradeHandler) SaveGradebook(c *gin.Context) {
	var req dto.SaveGradebookRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.gradebook.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// ExportGradebook godoc
// @Summary Export class grades
// @Tags Gradebook
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{id}/gradebook/export [get]
func (h *GradeHandler) ExportGradebook(c *gin.Context) {
	file, err := h.gradebook.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+file.FileName+"\"")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
