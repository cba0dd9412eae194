package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

type mockCalendarRepo struct {
	events    []models.CalendarEvent
	err       error
	gotFrom   time.Time
	gotLimit  int
	gotUserID string
}

func (m *mockCalendarRepo) UpcomingForStudent(ctx context.Context, userID string, from time.Time, limit int) ([]models.CalendarEvent, error) {
	m.gotUserID, m.gotFrom, m.gotLimit = userID, from, limit
	return m.events, m.err
}

func TestCalendarServiceEventsUsesNowAndDefaultLimit(t *testing.T) {
	repo := &mockCalendarRepo{}
	svc := NewCalendarService(repo, database.AllCapabilities(), 0, nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	events, err := svc.Events(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Equal(t, "s1", repo.gotUserID)
	assert.Equal(t, now, repo.gotFrom)
	assert.Equal(t, 25, repo.gotLimit)
}

func TestCalendarServiceEventsDisabledOrFailing(t *testing.T) {
	svc := NewCalendarService(&mockCalendarRepo{}, database.Capabilities{}, 10, nil)
	events, err := svc.Events(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, events)

	svc = NewCalendarService(&mockCalendarRepo{err: errors.New("boom")}, database.AllCapabilities(), 10, nil)
	_, err = svc.Events(context.Background(), "s1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestCalendarServiceICS(t *testing.T) {
	due := time.Date(2026, 3, 5, 15, 30, 0, 0, time.UTC)
	repo := &mockCalendarRepo{events: []models.CalendarEvent{
		{ID: "cw1", ClassID: "c1", ClassName: "Physics", Title: "Lab Report", Type: "assignment", DueAt: due},
	}}
	svc := NewCalendarService(repo, database.AllCapabilities(), 25, nil)

	doc, err := svc.ICS(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR"))
	assert.Contains(t, doc, "UID:cw1@gradsmart")
	assert.Contains(t, doc, "SUMMARY:Lab Report")
	assert.Contains(t, doc, "DTSTART:20260305T153000Z")
	assert.Contains(t, doc, "END:VEVENT")
}
