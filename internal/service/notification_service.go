package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/jobs"
)

const defaultNotificationLimit = 50

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	UpsertDeviceToken(ctx context.Context, token *models.DeviceToken) error
}

type notificationBroker interface {
	Publish(ctx context.Context, n models.Notification) error
	Subscribe(ctx context.Context, userID string) (<-chan models.Notification, func() error, error)
}

// notifier is the dispatch side used by other services.
type notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// NotificationOptions tunes the dispatcher.
type NotificationOptions struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// NotificationService persists notifications and pushes them to live subscribers. Dispatch
// runs on a background queue so request handlers never wait on Redis.
type NotificationService struct {
	repo      notificationRepository
	broker    notificationBroker
	caps      database.Capabilities
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	enabled   bool
	queue     *jobs.Queue[models.Notification]
}

// NewNotificationService constructs the service. Call Start before Notify to dispatch
// asynchronously; an unstarted service delivers inline.
func NewNotificationService(repo notificationRepository, broker notificationBroker, caps database.Capabilities, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts NotificationOptions) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &NotificationService{
		repo:      repo,
		broker:    broker,
		caps:      caps,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		enabled:   opts.Enabled,
	}
	s.queue = jobs.NewQueue[models.Notification]("notifications", s.deliver, jobs.QueueConfig{
		Workers:    opts.Workers,
		MaxRetries: opts.Retries,
		RetryDelay: opts.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop stops the dispatch workers. Queued notifications are dropped.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify schedules delivery of n. Failures are logged; notifications never fail the
// request that produced them.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if !s.enabled {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	err := s.queue.Enqueue(jobs.Job[models.Notification]{ID: n.ID, Payload: n})
	if err == nil {
		return nil
	}
	if err := s.deliver(ctx, jobs.Job[models.Notification]{ID: n.ID, Payload: n}); err != nil {
		s.logger.Warn("notification delivery failed", zap.String("user_id", n.UserID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job[models.Notification]) error {
	n := job.Payload
	var err error
	if s.caps.Notifications {
		err = s.repo.Create(ctx, &n)
	}
	if err == nil && s.broker != nil {
		err = s.broker.Publish(ctx, n)
	}
	s.metrics.RecordNotification(string(n.Type), err)
	return err
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	if !s.caps.Notifications {
		return []models.Notification{}, nil
	}
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, defaultNotificationLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead marks one notification of userID as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if !s.caps.Notifications || !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	found, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// Subscribe opens a live feed for userID. A nil channel means no live feed is available.
func (s *NotificationService) Subscribe(ctx context.Context, userID string) (<-chan models.Notification, func() error, error) {
	noop := func() error { return nil }
	if s.broker == nil {
		return nil, noop, nil
	}
	ch, closeFn, err := s.broker.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Warn("notification subscribe failed, falling back to keep-alive", zap.String("user_id", userID), zap.Error(err))
		return nil, noop, nil
	}
	if closeFn == nil {
		closeFn = noop
	}
	return ch, closeFn, nil
}

// SaveDeviceToken registers a push token for userID.
func (s *NotificationService) SaveDeviceToken(ctx context.Context, userID string, req dto.DeviceTokenRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "token is required")
	}
	if !s.caps.Notifications {
		return nil
	}
	token := &models.DeviceToken{UserID: userID, Token: req.Token, DeviceInfo: req.DeviceInfo}
	if err := s.repo.UpsertDeviceToken(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save device token")
	}
	return nil
}
