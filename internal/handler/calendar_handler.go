package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type calendarService interface {
	Events(ctx context.Context, userID string) ([]models.CalendarEvent, error)
	ICS(ctx context.Context, userID string) (string, error)
}

// CalendarHandler serves upcoming classwork deadlines.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Events godoc
// @Summary Upcoming deadlines of the caller's classes
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	events, err := h.service.Events(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// ICS godoc
// @Summary Upcoming deadlines as an iCalendar feed
// @Tags Calendar
// @Produce text/calendar
// @Success 200 {string} string
// @Router /calendar.ics [get]
func (h *CalendarHandler) ICS(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	doc, err := h.service.ICS(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\"classwork.ics\"")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(doc))
}
