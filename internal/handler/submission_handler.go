package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, req dto.SubmitRequest) (*models.Submission, error)
	Grade(ctx context.Context, req dto.GradeSubmissionRequest) (*models.Submission, error)
	Mine(ctx context.Context, classworkID, userID string) (*models.MySubmission, error)
	ListByClasswork(ctx context.Context, classworkID string) ([]models.SubmissionWithStudent, error)
	Delete(ctx context.Context, classworkID, submissionID string) error
	OpenFile(ctx context.Context, storedName, token string) (*os.File, error)
}

// SubmissionHandler exposes submission, grading and attachment download endpoints.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

type submitJSONRequest struct {
	Answers jsondoc.Document `json:"answers"`
}

// Submit godoc
// @Summary Submit work for a classwork item
// @Description multipart/form-data with attachments[] files and an optional answers field (JSON or text), or a JSON body {answers}.
// @Description Resubmitting keeps the grade; files and answers are replaced only when provided.
// @Tags Submissions
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param id path string true "Classwork ID"
// @Param attachments[] formData file false "Attachments"
// @Param answers formData string false "Answers"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classwork/{id}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	req := dto.SubmitRequest{ClassworkID: c.Param("id"), UserID: userID}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload"))
			return
		}
		req.Uploads = uploadsFrom(form)
		if values := form.Value["answers"]; len(values) > 0 {
			req.Answers = jsondoc.StringOrJSON(values[0])
		}
	} else if c.Request.ContentLength != 0 {
		var body submitJSONRequest
		if !bindJSON(c, &body) {
			return
		}
		req.Answers = body.Answers
	}

	sub, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

func uploadsFrom(form *multipart.Form) []dto.Upload {
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["attachments[]"]...)
	headers = append(headers, form.File["attachments"]...)

	uploads := make([]dto.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, dto.Upload{
			OriginalName: fh.Filename,
			Size:         fh.Size,
			MimeType:     fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// Mine godoc
// @Summary The caller's submission for an item
// @Tags Submissions
// @Produce json
// @Param id path string true "Classwork ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classwork/{id}/submission/me [get]
func (h *SubmissionHandler) Mine(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	mine, err := h.service.Mine(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mine, nil)
}

// List godoc
// @Summary Submissions of a classwork item
// @Tags Submissions
// @Produce json
// @Param id path string true "Classwork ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classwork/{id}/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	subs, err := h.service.ListByClasswork(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

// Grade godoc
// @Summary Grade a submission
// @Description Falls back to the userId in the body when the submission id is unknown.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Classwork ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body dto.GradeSubmissionRequest true "Score"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classwork/{id}/submissions/{submissionId}/grade [post]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	var req dto.GradeSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ClassworkID = c.Param("id")
	req.SubmissionID = c.Param("submissionId")

	sub, err := h.service.Grade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Delete godoc
// @Summary Delete a submission
// @Tags Submissions
// @Param id path string true "Classwork ID"
// @Param submissionId path string true "Submission ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /classwork/{id}/submissions/{submissionId} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("submissionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// File godoc
// @Summary Download a submission attachment
// @Tags Submissions
// @Produce octet-stream
// @Param storedName path string true "Stored file name"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/submissions/{storedName} [get]
func (h *SubmissionHandler) File(c *gin.Context) {
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
