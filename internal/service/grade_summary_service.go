package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

type gradeClassworkReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassworkItem, error)
}

type gradeSubmissionReader interface {
	ListByClassAndUser(ctx context.Context, classID, userID string) (map[string]models.Submission, error)
	ListByClass(ctx context.Context, classID string) (map[string]map[string]models.Submission, error)
}

// GradeSummaryService derives grade summaries from classwork and submissions on every read.
type GradeSummaryService struct {
	classes     classDirectory
	classwork   gradeClassworkReader
	submissions gradeSubmissionReader
	caps        database.Capabilities
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeSummaryService constructs a GradeSummaryService.
func NewGradeSummaryService(classes classDirectory, classwork gradeClassworkReader, submissions gradeSubmissionReader, caps database.Capabilities, logger *zap.Logger) *GradeSummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeSummaryService{classes: classes, classwork: classwork, submissions: submissions, caps: caps, logger: logger, now: time.Now}
}

// Summary returns the grade summary of studentID in classID. A missing class or an
// unavailable classwork table yields the empty summary.
func (s *GradeSummaryService) Summary(ctx context.Context, classID, studentID string) (*models.GradeSummary, error) {
	if !s.caps.Classwork || !validID(classID) {
		return models.EmptyGradeSummary(), nil
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EmptyGradeSummary(), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	items, err := s.classwork.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classwork")
	}

	subs := map[string]models.Submission{}
	if s.caps.Submissions && validID(studentID) {
		subs, err = s.submissions.ListByClassAndUser(ctx, classID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
		}
	}

	return Aggregate(items, subs, s.now()), nil
}

// ClassGradebook returns a summary for every student on the class roster, in roster order.
func (s *GradeSummaryService) ClassGradebook(ctx context.Context, classID string) ([]models.StudentGradeSummary, error) {
	if !validID(classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.classes.Students(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	var items []models.ClassworkItem
	byStudent := map[string]map[string]models.Submission{}
	if s.caps.Classwork {
		if items, err = s.classwork.ListByClass(ctx, classID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classwork")
		}
		if s.caps.Submissions {
			if byStudent, err = s.submissions.ListByClass(ctx, classID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
			}
		}
	}

	now := s.now()
	result := make([]models.StudentGradeSummary, 0, len(students))
	for _, student := range students {
		name := ""
		if student.Name != nil {
			name = *student.Name
		}
		result = append(result, models.StudentGradeSummary{
			StudentID: student.UserID,
			Name:      name,
			Email:     student.Email,
			Summary:   Aggregate(items, byStudent[student.UserID], now),
		})
	}
	return result, nil
}

// Aggregate computes per-item statuses and the category and overall roll-ups. Items keep
// the order they are given in; subs is keyed by classwork id.
func Aggregate(items []models.ClassworkItem, subs map[string]models.Submission, now time.Time) *models.GradeSummary {
	summary := models.EmptyGradeSummary()
	var earned, possible float64

	for _, item := range items {
		entry := models.GradeSummaryItem{
			ClassworkID: item.ID,
			Title:       item.Title,
			Group:       models.GroupLabel(item.Type),
			DueAt:       item.DueAt,
		}

		sub, submitted := subs[item.ID]
		switch {
		case submitted && sub.Grade != nil:
			score, total := sub.Grade.Score, sub.Grade.Max()
			entry.Status = models.StatusGraded
			entry.Score = &score
			entry.Max = &total
			entry.Percent = percentOf(score, total)
		case submitted:
			entry.Status = models.StatusSubmitted
		case item.DueAt != nil && item.DueAt.Before(now):
			entry.Status = models.StatusMissing
			entry.Late = true
		default:
			entry.Status = models.StatusAssigned
		}

		if submitted {
			entry.SubmittedAt = sub.SubmittedAt
			if sub.SubmittedAt != nil && item.DueAt != nil && sub.SubmittedAt.After(*item.DueAt) {
				entry.Late = true
			}
		}

		category := summary.Categories[entry.Group]
		if entry.Score != nil {
			category.Earned += *entry.Score
			category.Possible += *entry.Max
			earned += *entry.Score
			possible += *entry.Max
		}
		summary.Categories[entry.Group] = category
		summary.Items = append(summary.Items, entry)
	}

	for group, category := range summary.Categories {
		category.Percent = percentOf(category.Earned, category.Possible)
		summary.Categories[group] = category
	}

	summary.Overall = models.OverallAggregate{
		Earned:     earned,
		Possible:   possible,
		PercentRaw: percentOf(earned, possible),
	}
	return summary
}

// percentOf returns part/whole as a percentage rounded to two decimals, or nil when
// whole is not positive.
func percentOf(part, whole float64) *float64 {
	if whole <= 0 {
		return nil
	}
	pct := math.RoundToEven(part/whole*100*100) / 100
	return &pct
}
