package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
)

const classworkColumns = `id, class_id, title, type, description, due_at, rubric_json, extra_json, created_by, created_at, updated_at`

// ClassworkRepository persists classwork items.
type ClassworkRepository struct {
	db *sqlx.DB
}

// NewClassworkRepository constructs a ClassworkRepository.
func NewClassworkRepository(db *sqlx.DB) *ClassworkRepository {
	return &ClassworkRepository{db: db}
}

// ListByClass returns the items of a class newest first. Items sharing a created_at are
// ordered by insertion sequence, latest first.
func (r *ClassworkRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassworkItem, error) {
	query := `SELECT ` + classworkColumns + ` FROM classwork_items WHERE class_id = $1 ORDER BY created_at DESC, seq DESC`
	var items []models.ClassworkItem
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list classwork: %w", err)
	}
	return items, nil
}

// FindByID returns a classwork item by id.
func (r *ClassworkRepository) FindByID(ctx context.Context, id string) (*models.ClassworkItem, error) {
	query := `SELECT ` + classworkColumns + ` FROM classwork_items WHERE id = $1`
	var item models.ClassworkItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find classwork: %w", err)
	}
	return &item, nil
}

// Create inserts a classwork item.
func (r *ClassworkRepository) Create(ctx context.Context, item *models.ClassworkItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `INSERT INTO classwork_items (` + classworkColumns + `)
		VALUES (:id, :class_id, :title, :type, :description, :due_at, :rubric_json, :extra_json, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create classwork: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of req and returns the stored item.
func (r *ClassworkRepository) Update(ctx context.Context, id string, req dto.UpdateClassworkRequest) (*models.ClassworkItem, error) {
	sets := []string{}
	args := []interface{}{id}
	if req.Title != nil {
		args = append(args, *req.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if req.Description != nil {
		args = append(args, *req.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if req.DueAt != nil {
		args = append(args, req.DueAt.UTC())
		sets = append(sets, fmt.Sprintf("due_at = $%d", len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE classwork_items SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), classworkColumns)
	var item models.ClassworkItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update classwork: %w", err)
	}
	return &item, nil
}

// Delete removes a classwork item and reports whether it existed.
func (r *ClassworkRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classwork_items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete classwork: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete classwork rows: %w", err)
	}
	return affected > 0, nil
}

// UpcomingForStudent returns due-dated items of the classes userID joined, soonest first.
func (r *ClassworkRepository) UpcomingForStudent(ctx context.Context, userID string, from time.Time, limit int) ([]models.CalendarEvent, error) {
	const query = `SELECT ci.id, ci.class_id, c.class_name, ci.title, ci.type, ci.due_at
		FROM classwork_items ci
		JOIN classes c ON c.id = ci.class_id
		JOIN joined_classes jc ON jc.class_id = ci.class_id AND jc.user_id = $1
		WHERE ci.due_at IS NOT NULL AND ci.due_at >= $2
		ORDER BY ci.due_at ASC, ci.id ASC
		LIMIT $3`
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, userID, from, limit); err != nil {
		return nil, fmt.Errorf("list upcoming classwork: %w", err)
	}
	return events, nil
}
