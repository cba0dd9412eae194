package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type classService interface {
	MyClasses(ctx context.Context, userID string) ([]models.Class, error)
	Get(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, req dto.CreateClassRequest, ownerID string) (*models.Class, error)
	Joined(ctx context.Context, userID string) ([]models.JoinedClassView, error)
	Join(ctx context.Context, userID string, req dto.JoinClassRequest) (*dto.JoinClassResult, error)
	Leave(ctx context.Context, userID, classID string) error
	Roster(ctx context.Context, classID string) (*models.Roster, error)
	AddInstructor(ctx context.Context, classID string, req dto.AddInstructorRequest) (*models.ClassInstructor, error)
}

// ClassHandler exposes class and membership endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary Classes the caller owns or teaches
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	classes, err := h.service.MyClasses(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Description The caller becomes the owner. A class code is generated when none is given or it is taken.
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Roster godoc
// @Summary Class roster
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	roster, err := h.service.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// AddInstructor godoc
// @Summary Add an instructor to a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.AddInstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /classes/{id}/instructors [post]
func (h *ClassHandler) AddInstructor(c *gin.Context) {
	var req dto.AddInstructorRequest
	if !bindJSON(c, &req) {
		return
	}
	instructor, err := h.service.AddInstructor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Joined godoc
// @Summary Classes the caller joined
// @Tags Memberships
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /joined-classes [get]
func (h *ClassHandler) Joined(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	joined, err := h.service.Joined(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, joined, nil)
}

// Join godoc
// @Summary Join a class by code
// @Description Returns 201 for a new pending membership and 200 when already joined.
// @Tags Memberships
// @Accept json
// @Produce json
// @Param payload body dto.JoinClassRequest true "Class code"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /join-class [post]
func (h *ClassHandler) Join(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.JoinClassRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Join(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Message(c, status, result.Message, result)
}

// Leave godoc
// @Summary Leave a joined class
// @Tags Memberships
// @Param classId path string true "Class ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /joined-classes/{classId} [delete]
func (h *ClassHandler) Leave(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.service.Leave(c.Request.Context(), userID, c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
