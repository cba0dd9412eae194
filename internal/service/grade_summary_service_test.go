package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

var summaryNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(v float64) *float64 { return &v }

func gradedSubmission(itemID string, score float64, total *float64, submittedAt *time.Time) models.Submission {
	return models.Submission{ID: "sub-" + itemID, ClassworkID: itemID, UserID: studentS1, SubmittedAt: submittedAt,
		Grade: &models.SubmissionGrade{Score: score, TotalPoints: total, GradedBy: models.GradedByTeacher}}
}

func TestAggregateGradedDefaultsMaxTo100(t *testing.T) {
	items := []models.ClassworkItem{{ID: itemCW1, Title: "Essay", Type: "quiz"}}
	subs := map[string]models.Submission{itemCW1: gradedSubmission(itemCW1, 85, nil, timePtr(summaryNow.Add(-time.Hour)))}

	summary := Aggregate(items, subs, summaryNow)
	require.Len(t, summary.Items, 1)
	item := summary.Items[0]
	assert.Equal(t, models.StatusGraded, item.Status)
	assert.Equal(t, 85.0, *item.Score)
	assert.Equal(t, 100.0, *item.Max)
	assert.Equal(t, 85.0, *item.Percent)
	assert.False(t, item.Late)
}

func TestAggregateGuardsZeroMax(t *testing.T) {
	items := []models.ClassworkItem{{ID: itemCW1, Type: "quiz"}}
	subs := map[string]models.Submission{itemCW1: gradedSubmission(itemCW1, 5, floatPtr(0), nil)}

	summary := Aggregate(items, subs, summaryNow)
	assert.Nil(t, summary.Items[0].Percent)
	assert.Nil(t, summary.Categories["quiz"].Percent)
	assert.Nil(t, summary.Overall.PercentRaw)
}

func TestAggregatePerformanceTaskRollUp(t *testing.T) {
	items := []models.ClassworkItem{
		{ID: itemCW2, Title: "Lab", Type: "Activity"},
		{ID: itemCW1, Title: "Report", Type: "ASSIGNMENT"},
	}
	subs := map[string]models.Submission{
		itemCW1: gradedSubmission(itemCW1, 8, floatPtr(10), nil),
		itemCW2: gradedSubmission(itemCW2, 18, floatPtr(20), nil),
	}

	summary := Aggregate(items, subs, summaryNow)
	category, ok := summary.Categories[models.PerformanceTaskGroup]
	require.True(t, ok)
	assert.Equal(t, 26.0, category.Earned)
	assert.Equal(t, 30.0, category.Possible)
	assert.Equal(t, 86.67, *category.Percent)
	assert.Equal(t, itemCW2, summary.Items[0].ClassworkID)
	assert.Equal(t, 86.67, *summary.Overall.PercentRaw)
	assert.False(t, summary.Overall.WeightingApplied)
}

func TestAggregateStatusesWithoutSubmission(t *testing.T) {
	items := []models.ClassworkItem{
		{ID: "past", Type: "quiz", DueAt: timePtr(summaryNow.Add(-time.Minute))},
		{ID: "future", Type: "quiz", DueAt: timePtr(summaryNow.Add(time.Minute))},
		{ID: "undated", Type: "Material"},
		{ID: "exact", Type: "quiz", DueAt: timePtr(summaryNow)},
	}

	summary := Aggregate(items, nil, summaryNow)
	assert.Equal(t, models.StatusMissing, summary.Items[0].Status)
	assert.True(t, summary.Items[0].Late)
	assert.Equal(t, models.StatusAssigned, summary.Items[1].Status)
	assert.False(t, summary.Items[1].Late)
	assert.Equal(t, models.StatusAssigned, summary.Items[2].Status)
	assert.Equal(t, models.StatusAssigned, summary.Items[3].Status)
	assert.Nil(t, summary.Items[0].Score)
}

func TestAggregateSubmittedLateAndUngradedExcluded(t *testing.T) {
	due := summaryNow.Add(-2 * time.Hour)
	items := []models.ClassworkItem{
		{ID: itemCW1, Type: "quiz", DueAt: &due},
		{ID: itemCW2, Type: "quiz"},
	}
	subs := map[string]models.Submission{
		itemCW1: {ID: "s", ClassworkID: itemCW1, SubmittedAt: timePtr(summaryNow.Add(-time.Hour))},
		itemCW2: gradedSubmission(itemCW2, 40, floatPtr(50), nil),
	}

	summary := Aggregate(items, subs, summaryNow)
	assert.Equal(t, models.StatusSubmitted, summary.Items[0].Status)
	assert.True(t, summary.Items[0].Late)
	assert.Nil(t, summary.Items[0].Percent)
	assert.Equal(t, 40.0, summary.Overall.Earned)
	assert.Equal(t, 50.0, summary.Overall.Possible)
	assert.Equal(t, 80.0, *summary.Overall.PercentRaw)
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil, nil, summaryNow)
	assert.NotNil(t, summary.Items)
	assert.Empty(t, summary.Categories)
	assert.Zero(t, summary.Overall.Earned)
	assert.Nil(t, summary.Overall.PercentRaw)
}

type mockGradeClasswork struct {
	items []models.ClassworkItem
}

func (m *mockGradeClasswork) ListByClass(ctx context.Context, classID string) ([]models.ClassworkItem, error) {
	return m.items, nil
}

type mockGradeSubmissions struct {
	byUser map[string]map[string]models.Submission
}

func (m *mockGradeSubmissions) ListByClassAndUser(ctx context.Context, classID, userID string) (map[string]models.Submission, error) {
	return m.byUser[userID], nil
}

func (m *mockGradeSubmissions) ListByClass(ctx context.Context, classID string) (map[string]map[string]models.Submission, error) {
	return m.byUser, nil
}

func TestGradeSummaryServiceSummary(t *testing.T) {
	classes := newClassDirectory()
	classwork := &mockGradeClasswork{items: []models.ClassworkItem{{ID: itemCW1, Type: "quiz"}}}
	subs := &mockGradeSubmissions{byUser: map[string]map[string]models.Submission{
		studentS1: {itemCW1: gradedSubmission(itemCW1, 9, floatPtr(10), nil)},
	}}
	svc := NewGradeSummaryService(classes, classwork, subs, database.AllCapabilities(), nil)
	svc.now = func() time.Time { return summaryNow }

	summary, err := svc.Summary(context.Background(), classC1, studentS1)
	require.NoError(t, err)
	assert.Equal(t, 90.0, *summary.Items[0].Percent)

	summary, err = svc.Summary(context.Background(), "missing", studentS1)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestGradeSummaryServiceDegradesWithoutClasswork(t *testing.T) {
	caps := database.AllCapabilities()
	caps.Classwork = false
	svc := NewGradeSummaryService(newClassDirectory(), &mockGradeClasswork{items: []models.ClassworkItem{{ID: itemCW1}}}, &mockGradeSubmissions{}, caps, nil)

	summary, err := svc.Summary(context.Background(), classC1, studentS1)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Empty(t, summary.Categories)
}

func TestGradeSummaryServiceClassGradebook(t *testing.T) {
	classes := newClassDirectory()
	name := "Student One"
	classes.students[classC1][0].Name = &name
	classwork := &mockGradeClasswork{items: []models.ClassworkItem{{ID: itemCW1, Type: "quiz"}}}
	subs := &mockGradeSubmissions{byUser: map[string]map[string]models.Submission{
		studentS1: {itemCW1: gradedSubmission(itemCW1, 7, floatPtr(10), nil)},
	}}
	svc := NewGradeSummaryService(classes, classwork, subs, database.AllCapabilities(), nil)

	rows, err := svc.ClassGradebook(context.Background(), classC1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Student One", rows[0].Name)
	assert.Equal(t, 70.0, *rows[0].Summary.Overall.PercentRaw)
	assert.Equal(t, models.StatusAssigned, rows[1].Summary.Items[0].Status)

	_, err = svc.ClassGradebook(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

// strictClassDirectory fails like postgres does when a non-UUID reaches a UUID column.
type strictClassDirectory struct {
	*mockClassDirectory
}

func (d strictClassDirectory) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid: \"" + id + "\""}
	}
	return d.mockClassDirectory.FindByID(ctx, id)
}

func TestGradeSummaryServiceMalformedIDs(t *testing.T) {
	classes := strictClassDirectory{newClassDirectory()}
	classwork := &mockGradeClasswork{items: []models.ClassworkItem{{ID: itemCW1, Type: "quiz"}}}
	svc := NewGradeSummaryService(classes, classwork, &mockGradeSubmissions{}, database.AllCapabilities(), nil)

	summary, err := svc.Summary(context.Background(), "42", studentS1)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Nil(t, summary.Overall.PercentRaw)

	summary, err = svc.Summary(context.Background(), classC1, "42")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, models.StatusAssigned, summary.Items[0].Status)

	_, err = svc.ClassGradebook(context.Background(), "42")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
