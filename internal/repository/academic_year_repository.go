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

const academicYearColumns = `id, year_name, version, file_name, stored_name, notes, uploaded_by, uploaded_by_name, status, created_at`

// AcademicYearRepository persists uploaded academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns every academic year, newest upload first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := `SELECT ` + academicYearColumns + ` FROM academic_years ORDER BY created_at DESC, year_name DESC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindActive returns the active academic year or sql.ErrNoRows.
func (r *AcademicYearRepository) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE status = 'active' LIMIT 1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active academic year: %w", err)
	}
	return &year, nil
}

// CountByName returns how many versions were uploaded for a year name.
func (r *AcademicYearRepository) CountByName(ctx context.Context, yearName string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM academic_years WHERE year_name = $1`, yearName); err != nil {
		return 0, fmt.Errorf("count academic years: %w", err)
	}
	return count, nil
}

// Create inserts a year. An active year deactivates the others in the same transaction.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) (err error) {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	if year.Status == "" {
		year.Status = models.AcademicYearInactive
	}
	if year.CreatedAt == nil {
		now := time.Now().UTC()
		year.CreatedAt = &now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create academic year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if year.Status == models.AcademicYearActive {
		if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET status = 'inactive' WHERE status = 'active'`); err != nil {
			return fmt.Errorf("deactivate academic years: %w", err)
		}
	}
	query := `INSERT INTO academic_years (` + academicYearColumns + `) VALUES (:id, :year_name, :version, :file_name, :stored_name, :notes, :uploaded_by, :uploaded_by_name, :status, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create academic year tx: %w", err)
	}
	return nil
}

// Activate marks id active and every other year inactive. It reports false when id does not exist.
func (r *AcademicYearRepository) Activate(ctx context.Context, id string) (activated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin activate academic year tx: %w", err)
	}
	defer func() {
		if err != nil || !activated {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET status = 'inactive' WHERE status = 'active' AND id <> $1`, id); err != nil {
		return false, fmt.Errorf("deactivate academic years: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE academic_years SET status = 'active' WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("activate academic year: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activate academic year rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit activate academic year tx: %w", err)
	}
	return true, nil
}

// Delete removes a year and returns the deleted row, or sql.ErrNoRows.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := `DELETE FROM academic_years WHERE id = $1 RETURNING ` + academicYearColumns
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete academic year: %w", err)
	}
	return &year, nil
}

// StoredNameInUse reports whether any year still references a stored file.
func (r *AcademicYearRepository) StoredNameInUse(ctx context.Context, storedName string) (bool, error) {
	var inUse bool
	if err := r.db.GetContext(ctx, &inUse, `SELECT EXISTS (SELECT 1 FROM academic_years WHERE stored_name = $1)`, storedName); err != nil {
		return false, fmt.Errorf("check academic year file: %w", err)
	}
	return inUse, nil
}
