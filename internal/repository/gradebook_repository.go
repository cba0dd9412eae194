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

const gradebookColumns = `id, class_id, midterm_percentage, finals_percentage, midterm_tables, finals_tables, grades, created_at, updated_at`

// GradebookRepository stores one gradebook config per class.
type GradebookRepository struct {
	db *sqlx.DB
}

// NewGradebookRepository constructs a GradebookRepository.
func NewGradebookRepository(db *sqlx.DB) *GradebookRepository {
	return &GradebookRepository{db: db}
}

// FindByClass returns the config of classID.
func (r *GradebookRepository) FindByClass(ctx context.Context, classID string) (*models.GradebookConfig, error) {
	query := `SELECT ` + gradebookColumns + ` FROM gradebook_config WHERE class_id = $1`
	var cfg models.GradebookConfig
	if err := r.db.GetContext(ctx, &cfg, query, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find gradebook config: %w", err)
	}
	return &cfg, nil
}

// Upsert creates the config of a class or replaces every field of the existing one.
func (r *GradebookRepository) Upsert(ctx context.Context, cfg *models.GradebookConfig) (*models.GradebookConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	query := `INSERT INTO gradebook_config (` + gradebookColumns + `)
		VALUES (:id, :class_id, :midterm_percentage, :finals_percentage, :midterm_tables, :finals_tables, :grades, :created_at, :updated_at)
		ON CONFLICT (class_id) DO UPDATE SET
			midterm_percentage = EXCLUDED.midterm_percentage,
			finals_percentage = EXCLUDED.finals_percentage,
			midterm_tables = EXCLUDED.midterm_tables,
			finals_tables = EXCLUDED.finals_tables,
			grades = EXCLUDED.grades,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + gradebookColumns

	rows, err := r.db.NamedQueryContext(ctx, query, cfg)
	if err != nil {
		return nil, fmt.Errorf("upsert gradebook config: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("upsert gradebook config: %w", err)
		}
		return nil, fmt.Errorf("upsert gradebook config: no row returned")
	}
	var stored models.GradebookConfig
	if err := rows.StructScan(&stored); err != nil {
		return nil, fmt.Errorf("scan gradebook config: %w", err)
	}
	return &stored, nil
}
