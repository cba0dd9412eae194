package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/middleware"
	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type academicYearService interface {
	Active(ctx context.Context) (*models.AcademicYear, error)
	List(ctx context.Context) ([]models.AcademicYear, error)
	Create(ctx context.Context, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error)
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	OpenFile(ctx context.Context, storedName, token string) (*os.File, error)
}

// AcademicYearHandler exposes the active academic year and its admin management.
type AcademicYearHandler struct {
	service academicYearService
}

// NewAcademicYearHandler constructs an AcademicYearHandler.
func NewAcademicYearHandler(svc academicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: svc}
}

// Active godoc
// @Summary Active academic year
// @Description Falls back to the year derived from today's date when none is marked active.
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years/active [get]
func (h *AcademicYearHandler) Active(c *gin.Context) {
	year, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// List godoc
// @Summary List academic years
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	years, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Create godoc
// @Summary Upload an academic year
// @Tags AcademicYears
// @Accept multipart/form-data
// @Produce json
// @Param yearName formData string true "Year name, e.g. 2026-2027"
// @Param file formData file true "pdf, doc, docx, xls or xlsx document"
// @Param notes formData string false "Notes"
// @Param setAsActive formData string false "Mark as the active year"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload"))
		return
	}
	req := dto.CreateAcademicYearRequest{
		YearName:    firstValue(form.Value["yearName"]),
		Notes:       firstValue(form.Value["notes"]),
		SetAsActive: truthy(firstValue(form.Value["setAsActive"])),
	}
	if caller, ok := middleware.CurrentCaller(c); ok {
		req.UploaderID = caller.UserID
	}
	if files := form.File["file"]; len(files) > 0 {
		fh := files[0]
		req.File = &dto.Upload{
			OriginalName: fh.Filename,
			Size:         fh.Size,
			MimeType:     fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}

	year, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Activate godoc
// @Summary Set the active academic year
// @Tags AcademicYears
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/academic-years/{id}/activate [put]
func (h *AcademicYearHandler) Activate(c *gin.Context) {
	if err := h.service.Activate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Active academic year updated.", nil)
}

// Delete godoc
// @Summary Delete an academic year
// @Tags AcademicYears
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Academic year deleted successfully.", nil)
}

// File godoc
// @Summary Download an academic year document
// @Tags AcademicYears
// @Produce octet-stream
// @Param storedName path string true "Stored file name"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/academic-years/{storedName} [get]
func (h *AcademicYearHandler) File(c *gin.Context) {
	storedName := c.Param("storedName")
	file, err := h.service.OpenFile(c.Request.Context(), storedName, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Disposition", "inline; filename=\""+storedName+"\"")
	http.ServeContent(c.Writer, c.Request, storedName, info.ModTime(), file)
}
