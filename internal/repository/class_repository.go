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

const classColumns = `c.id, c.owner_id, c.program, c.class_name, c.section, c.subject_code, c.course_name, c.description, c.status, c.class_code, c.created_at, c.updated_at`

// ClassRepository manages classes, their instructors and student memberships.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes c WHERE c.id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindByCode returns a class by its join code.
func (r *ClassRepository) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes c WHERE UPPER(c.class_code) = UPPER($1)`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by code: %w", err)
	}
	return &class, nil
}

// CodeExists reports whether a class already uses code.
func (r *ClassRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM classes WHERE UPPER(class_code) = UPPER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check class code: %w", err)
	}
	return exists, nil
}

// ListOwned returns classes owned by userID, newest first.
func (r *ClassRepository) ListOwned(ctx context.Context, userID string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes c WHERE c.owner_id = $1 ORDER BY c.created_at DESC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, userID); err != nil {
		return nil, fmt.Errorf("list owned classes: %w", err)
	}
	return classes, nil
}

// ListTaught returns classes userID owns or instructs, each once, newest first.
func (r *ClassRepository) ListTaught(ctx context.Context, userID string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes c
		WHERE c.owner_id = $1 OR EXISTS (SELECT 1 FROM class_instructors ci WHERE ci.class_id = c.id AND ci.user_id = $1)
		ORDER BY c.created_at DESC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, userID); err != nil {
		return nil, fmt.Errorf("list taught classes: %w", err)
	}
	return classes, nil
}

// Create inserts a class. When recordOwner is set the owner is also stored as an
// instructor in the same transaction; an existing instructor row is left alone.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class, recordOwner bool) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.Status == "" {
		class.Status = "active"
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertClass = `INSERT INTO classes (id, owner_id, program, class_name, section, subject_code, course_name, description, status, class_code, created_at, updated_at)
		VALUES (:id, :owner_id, :program, :class_name, :section, :subject_code, :course_name, :description, :status, :class_code, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertClass, class); err != nil {
		return fmt.Errorf("insert class: %w", err)
	}

	if recordOwner {
		const insertOwner = `INSERT INTO class_instructors (id, class_id, user_id, role_in_class, created_at)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (class_id, user_id) DO NOTHING`
		if _, err = tx.ExecContext(ctx, insertOwner, uuid.NewString(), class.ID, class.OwnerID, models.InstructorOwner, now); err != nil {
			return fmt.Errorf("insert class owner: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// UpsertInstructor adds userID to the class or updates their role.
func (r *ClassRepository) UpsertInstructor(ctx context.Context, instructor *models.ClassInstructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_instructors (id, class_id, user_id, role_in_class, created_at)
		VALUES (:id, :class_id, :user_id, :role_in_class, :created_at)
		ON CONFLICT (class_id, user_id) DO UPDATE SET role_in_class = EXCLUDED.role_in_class`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("upsert class instructor: %w", err)
	}
	return nil
}

// IsInstructor reports whether userID owns or instructs the class.
func (r *ClassRepository) IsInstructor(ctx context.Context, classID, userID string, withInstructors bool) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE id = $1 AND owner_id = $2)`
	if withInstructors {
		query = `SELECT EXISTS(SELECT 1 FROM classes WHERE id = $1 AND owner_id = $2)
			OR EXISTS(SELECT 1 FROM class_instructors WHERE class_id = $1 AND user_id = $2)`
	}
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, classID, userID); err != nil {
		return false, fmt.Errorf("check class instructor: %w", err)
	}
	return ok, nil
}

// ListJoined returns the classes userID has joined, newest first.
func (r *ClassRepository) ListJoined(ctx context.Context, userID string) ([]models.JoinedClassView, error) {
	const query = `SELECT jc.id, jc.user_id, jc.class_id, jc.program, jc.status, jc.joined_at,
			c.class_name, c.section, c.subject_code, c.class_code, c.owner_id
		FROM joined_classes jc
		JOIN classes c ON c.id = jc.class_id
		WHERE jc.user_id = $1
		ORDER BY jc.joined_at DESC`
	var joined []models.JoinedClassView
	if err := r.db.SelectContext(ctx, &joined, query, userID); err != nil {
		return nil, fmt.Errorf("list joined classes: %w", err)
	}
	return joined, nil
}

// FindMembership returns the membership of userID in classID.
func (r *ClassRepository) FindMembership(ctx context.Context, userID, classID string) (*models.JoinedClass, error) {
	const query = `SELECT id, user_id, class_id, program, status, joined_at FROM joined_classes WHERE user_id = $1 AND class_id = $2`
	var jc models.JoinedClass
	if err := r.db.GetContext(ctx, &jc, query, userID, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return &jc, nil
}

// Join inserts a membership. It returns false when the membership already existed.
func (r *ClassRepository) Join(ctx context.Context, jc *models.JoinedClass) (bool, error) {
	if jc.ID == "" {
		jc.ID = uuid.NewString()
	}
	if jc.JoinedAt.IsZero() {
		jc.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO joined_classes (id, user_id, class_id, program, status, joined_at)
		VALUES (:id, :user_id, :class_id, :program, :status, :joined_at)
		ON CONFLICT (user_id, class_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, jc)
	if err != nil {
		return false, fmt.Errorf("join class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("join class rows: %w", err)
	}
	return affected > 0, nil
}

// Leave removes a membership and reports whether one existed.
func (r *ClassRepository) Leave(ctx context.Context, userID, classID string) (bool, error) {
	const query = `DELETE FROM joined_classes WHERE user_id = $1 AND class_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, classID)
	if err != nil {
		return false, fmt.Errorf("leave class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("leave class rows: %w", err)
	}
	return affected > 0, nil
}

// Owner returns the roster entry of the class owner.
func (r *ClassRepository) Owner(ctx context.Context, classID string) (*models.RosterMember, error) {
	const query = `SELECT u.id AS user_id, COALESCE(u.name, TRIM(CONCAT(u.first_name, ' ', u.last_name))) AS name, u.email, 'owner' AS role, NULL AS status
		FROM classes c JOIN users u ON u.id = c.owner_id WHERE c.id = $1`
	var member models.RosterMember
	if err := r.db.GetContext(ctx, &member, query, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class owner: %w", err)
	}
	return &member, nil
}

// Instructors returns non-owner instructors of the class.
func (r *ClassRepository) Instructors(ctx context.Context, classID string) ([]models.RosterMember, error) {
	const query = `SELECT u.id AS user_id, COALESCE(u.name, TRIM(CONCAT(u.first_name, ' ', u.last_name))) AS name, u.email, ci.role_in_class AS role, NULL AS status
		FROM class_instructors ci JOIN users u ON u.id = ci.user_id
		WHERE ci.class_id = $1 AND ci.role_in_class <> 'owner'
		ORDER BY ci.created_at`
	var members []models.RosterMember
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class instructors: %w", err)
	}
	return members, nil
}

// Students returns the students who joined the class, ordered by name.
func (r *ClassRepository) Students(ctx context.Context, classID string) ([]models.RosterMember, error) {
	const query = `SELECT u.id AS user_id, COALESCE(u.name, TRIM(CONCAT(u.first_name, ' ', u.last_name))) AS name, u.email, 'student' AS role, jc.status AS status
		FROM joined_classes jc JOIN users u ON u.id = jc.user_id
		WHERE jc.class_id = $1
		ORDER BY name, u.email`
	var members []models.RosterMember
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return members, nil
}
