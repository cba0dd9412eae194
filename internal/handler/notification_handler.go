package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	Subscribe(ctx context.Context, userID string) (<-chan models.Notification, func() error, error)
	SaveDeviceToken(ctx context.Context, userID string, req dto.DeviceTokenRequest) error
}

type streamMetrics interface {
	StreamOpened()
	StreamClosed()
}

// StreamOptions bounds the SSE keep-alive loop.
type StreamOptions struct {
	PingInterval time.Duration
	MaxPings     int
}

// NotificationHandler exposes the notification inbox and live stream.
type NotificationHandler struct {
	service notificationService
	metrics streamMetrics
	opts    StreamOptions
	now     func() time.Time
}

// NewNotificationHandler constructs a NotificationHandler. Zero options fall back to a
// 5s ping for at most 120 pings.
func NewNotificationHandler(svc notificationService, metrics streamMetrics, opts StreamOptions) *NotificationHandler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 5 * time.Second
	}
	if opts.MaxPings <= 0 {
		opts.MaxPings = 120
	}
	return &NotificationHandler{service: svc, metrics: metrics, opts: opts, now: time.Now}
}

// List godoc
// @Summary Caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	items, err := h.service.List(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SaveDeviceToken godoc
// @Summary Register a push device token
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.DeviceTokenRequest true "Token"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /notifications/fcm-token [post]
func (h *NotificationHandler) SaveDeviceToken(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req dto.DeviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.SaveDeviceToken(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Token saved", gin.H{"ok": true})
}

// Stream godoc
// @Summary Live notification stream
// @Description Server-sent events. "notification" events carry new notifications; "ping" events keep the connection alive.
// @Tags Notifications
// @Produce text/event-stream
// @Success 200 {string} string
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	events, closeFn, err := h.service.Subscribe(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	pings := 0

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case n, open := <-events:
			if !open {
				events = nil
				return true
			}
			c.SSEvent("notification", n)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"type": "ping", "ts": h.now().UTC().Format(time.RFC3339), "userId": userID})
			pings++
			return pings < h.opts.MaxPings
		}
	})
}
