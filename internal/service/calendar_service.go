package service

import (
	"context"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

const defaultCalendarLimit = 25

type calendarRepository interface {
	UpcomingForStudent(ctx context.Context, userID string, from time.Time, limit int) ([]models.CalendarEvent, error)
}

// CalendarService lists upcoming classwork deadlines of a student's classes.
type CalendarService struct {
	repo   calendarRepository
	caps   database.Capabilities
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService constructs the service. A non-positive limit falls back to 25.
func NewCalendarService(repo calendarRepository, caps database.Capabilities, limit int, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultCalendarLimit
	}
	return &CalendarService{repo: repo, caps: caps, limit: limit, logger: logger, now: time.Now}
}

// Events returns due-dated items from now on, soonest first.
func (s *CalendarService) Events(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	if !s.caps.Classwork {
		return []models.CalendarEvent{}, nil
	}
	events, err := s.repo.UpcomingForStudent(ctx, userID, s.now().UTC(), s.limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return events, nil
}

// ICS renders the same events as an iCalendar document.
func (s *CalendarService) ICS(ctx context.Context, userID string) (string, error) {
	events, err := s.Events(ctx, userID)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//GradSmart//Classwork Calendar//EN")

	stamp := s.now().UTC()
	for _, ev := range events {
		vevent := cal.AddEvent(ev.ID + "@gradsmart")
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.DueAt.UTC())
		vevent.SetEndAt(ev.DueAt.UTC())
		vevent.SetSummary(ev.Title)
		vevent.SetDescription(ev.ClassName)
		vevent.AddProperty(ics.ComponentPropertyCategories, ev.Type)
	}
	return cal.Serialize(), nil
}
