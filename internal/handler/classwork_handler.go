package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type classworkService interface {
	List(ctx context.Context, classID string) ([]models.ClassworkItem, error)
	Get(ctx context.Context, id string) (*models.ClassworkItem, error)
	Create(ctx context.Context, classID string, req dto.CreateClassworkRequest, actorID string) (*models.ClassworkItem, error)
	Update(ctx context.Context, id string, req dto.UpdateClassworkRequest) (*models.ClassworkItem, error)
	Delete(ctx context.Context, id string) error
}

// ClassworkHandler exposes classwork item endpoints.
type ClassworkHandler struct {
	service classworkService
}

// NewClassworkHandler constructs a ClassworkHandler.
func NewClassworkHandler(svc classworkService) *ClassworkHandler {
	return &ClassworkHandler{service: svc}
}

// List godoc
// @Summary List classwork of a class
// @Description Newest first. Empty while the classwork table is not deployed.
// @Tags Classwork
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/classwork [get]
func (h *ClassworkHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Post classwork to a class
// @Tags Classwork
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.CreateClassworkRequest true "Classwork payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{id}/classwork [post]
func (h *ClassworkHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.CreateClassworkRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Create(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Get godoc
// @Summary Get classwork item
// @Tags Classwork
// @Produce json
// @Param id path string true "Classwork ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classwork/{id} [get]
func (h *ClassworkHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update classwork item
// @Description Only title, description and dueAt can change.
// @Tags Classwork
// @Accept json
// @Produce json
// @Param id path string true "Classwork ID"
// @Param payload body dto.UpdateClassworkRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classwork/{id} [patch]
func (h *ClassworkHandler) Update(c *gin.Context) {
	var req dto.UpdateClassworkRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete classwork item
// @Tags Classwork
// @Param id path string true "Classwork ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /classwork/{id} [delete]
func (h *ClassworkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
