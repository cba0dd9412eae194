package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradsmart-api/internal/models"
)

const (
	submissionColumns  = `id, classwork_id, user_id, submitted_at, files_json, answers_json, grade_json, created_at, updated_at`
	submissionSColumns = `s.id, s.classwork_id, s.user_id, s.submitted_at, s.files_json, s.answers_json, s.grade_json, s.created_at, s.updated_at`
)

// SubmissionRepository persists classwork submissions. The table holds at most one row per
// (classwork_id, user_id); every write goes through ON CONFLICT on that key.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert records a submission attempt. On resubmission the existing grade is kept, files
// and answers are replaced only when the new attempt carries them, and submitted_at never
// moves backwards.
func (r *SubmissionRepository) Upsert(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.SubmittedAt == nil {
		sub.SubmittedAt = &now
	}

	query := `INSERT INTO classwork_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7)
		ON CONFLICT (classwork_id, user_id) DO UPDATE SET
			submitted_at = GREATEST(classwork_submissions.submitted_at, EXCLUDED.submitted_at),
			files_json = COALESCE(EXCLUDED.files_json, classwork_submissions.files_json),
			answers_json = COALESCE(EXCLUDED.answers_json, classwork_submissions.answers_json),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + submissionColumns

	var stored models.Submission
	if err := r.db.GetContext(ctx, &stored, query, sub.ID, sub.ClassworkID, sub.UserID, sub.SubmittedAt, sub.Files, sub.Answers, now); err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}
	return &stored, nil
}

// FindByID returns a submission of a classwork item by id.
func (r *SubmissionRepository) FindByID(ctx context.Context, classworkID, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM classwork_submissions WHERE id = $1 AND classwork_id = $2`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id, classworkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &sub, nil
}

// FindByClassworkAndUser returns the single submission of userID for classworkID.
func (r *SubmissionRepository) FindByClassworkAndUser(ctx context.Context, classworkID, userID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM classwork_submissions WHERE classwork_id = $1 AND user_id = $2`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, classworkID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user submission: %w", err)
	}
	return &sub, nil
}

// ListByClasswork returns every submission of an item with its author, latest first.
func (r *SubmissionRepository) ListByClasswork(ctx context.Context, classworkID string) ([]models.SubmissionWithStudent, error) {
	query := `SELECT ` + submissionSColumns + `,
			COALESCE(u.name, TRIM(CONCAT(u.first_name, ' ', u.last_name))) AS student_name, u.email AS student_email
		FROM classwork_submissions s
		JOIN users u ON u.id = s.user_id
		WHERE s.classwork_id = $1
		ORDER BY s.submitted_at DESC NULLS LAST, s.id`
	var subs []models.SubmissionWithStudent
	if err := r.db.SelectContext(ctx, &subs, query, classworkID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// ListByClassAndUser returns the submissions userID made in classID keyed by classwork id.
func (r *SubmissionRepository) ListByClassAndUser(ctx context.Context, classID, userID string) (map[string]models.Submission, error) {
	query := `SELECT ` + submissionSColumns + `
		FROM classwork_submissions s
		JOIN classwork_items ci ON ci.id = s.classwork_id
		WHERE ci.class_id = $1 AND s.user_id = $2`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, classID, userID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	byItem := make(map[string]models.Submission, len(subs))
	for _, sub := range subs {
		byItem[sub.ClassworkID] = sub
	}
	return byItem, nil
}

// ListByClass returns every submission in classID keyed by user id then classwork id.
func (r *SubmissionRepository) ListByClass(ctx context.Context, classID string) (map[string]map[string]models.Submission, error) {
	query := `SELECT ` + submissionSColumns + `
		FROM classwork_submissions s
		JOIN classwork_items ci ON ci.id = s.classwork_id
		WHERE ci.class_id = $1`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, classID); err != nil {
		return nil, fmt.Errorf("list class submissions: %w", err)
	}
	byUser := make(map[string]map[string]models.Submission)
	for _, sub := range subs {
		if byUser[sub.UserID] == nil {
			byUser[sub.UserID] = make(map[string]models.Submission)
		}
		byUser[sub.UserID][sub.ClassworkID] = sub
	}
	return byUser, nil
}

// SetGradeByID overwrites the grade of an existing submission.
func (r *SubmissionRepository) SetGradeByID(ctx context.Context, classworkID, id string, grade models.SubmissionGrade) (*models.Submission, error) {
	query := `UPDATE classwork_submissions SET grade_json = $3, updated_at = $4
		WHERE id = $1 AND classwork_id = $2
		RETURNING ` + submissionColumns
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id, classworkID, grade, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	return &sub, nil
}

// SetGradeForUser overwrites the grade of userID on classworkID, creating a row with no
// submitted_at when the student never submitted.
func (r *SubmissionRepository) SetGradeForUser(ctx context.Context, classworkID, userID string, grade models.SubmissionGrade) (*models.Submission, error) {
	now := time.Now().UTC()
	query := `INSERT INTO classwork_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, NULL, NULL, NULL, $4, $5, $5)
		ON CONFLICT (classwork_id, user_id) DO UPDATE SET
			grade_json = EXCLUDED.grade_json,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + submissionColumns
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, uuid.NewString(), classworkID, userID, grade, now); err != nil {
		return nil, fmt.Errorf("grade student submission: %w", err)
	}
	return &sub, nil
}

// Delete hard-deletes a submission and reports whether it existed.
func (r *SubmissionRepository) Delete(ctx context.Context, classworkID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classwork_submissions WHERE id = $1 AND classwork_id = $2`, id, classworkID)
	if err != nil {
		return false, fmt.Errorf("delete submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete submission rows: %w", err)
	}
	return affected > 0, nil
}
