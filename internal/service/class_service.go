package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

const (
	untitledClassName  = "Untitled Class"
	classCodeAttempts  = 5
	classCodeByteCount = 4
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByCode(ctx context.Context, code string) (*models.Class, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListOwned(ctx context.Context, userID string) ([]models.Class, error)
	ListTaught(ctx context.Context, userID string) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class, recordOwner bool) error
	UpsertInstructor(ctx context.Context, instructor *models.ClassInstructor) error
	IsInstructor(ctx context.Context, classID, userID string, withInstructors bool) (bool, error)
	ListJoined(ctx context.Context, userID string) ([]models.JoinedClassView, error)
	Join(ctx context.Context, jc *models.JoinedClass) (bool, error)
	Leave(ctx context.Context, userID, classID string) (bool, error)
	Owner(ctx context.Context, classID string) (*models.RosterMember, error)
	Instructors(ctx context.Context, classID string) ([]models.RosterMember, error)
	Students(ctx context.Context, classID string) ([]models.RosterMember, error)
}

// ClassService manages classes, instructors and student memberships.
type ClassService struct {
	repo      classRepository
	caps      database.Capabilities
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	codeGen   func() (string, error)
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, caps database.Capabilities, notify notifier, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, caps: caps, notifier: notify, validator: validate, logger: logger, codeGen: randomClassCode}
}

// MyClasses lists the classes userID owns or instructs.
func (s *ClassService) MyClasses(ctx context.Context, userID string) ([]models.Class, error) {
	var (
		classes []models.Class
		err     error
	)
	if s.caps.Instructors {
		classes, err = s.repo.ListTaught(ctx, userID)
	} else {
		classes, err = s.repo.ListOwned(ctx, userID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create stores a class owned by ownerID.
func (s *ClassService) Create(ctx context.Context, req dto.CreateClassRequest, ownerID string) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	code, err := s.resolveClassCode(ctx, req.ClassCode)
	if err != nil {
		return nil, err
	}

	class := &models.Class{
		OwnerID:     ownerID,
		Program:     trimmed(req.Program),
		ClassName:   displayName(req),
		Section:     trimmed(req.Section),
		SubjectCode: trimmed(req.SubjectCode),
		CourseName:  trimmed(req.CourseName),
		Description: req.Description,
		Status:      "active",
		ClassCode:   code,
	}
	if err := s.repo.Create(ctx, class, s.caps.Instructors); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("owner_id", ownerID))
	return class, nil
}

// resolveClassCode keeps an explicit code when it is free and otherwise generates one.
func (s *ClassService) resolveClassCode(ctx context.Context, requested *string) (string, error) {
	if requested != nil {
		code := strings.ToUpper(strings.TrimSpace(*requested))
		if code != "" {
			exists, err := s.repo.CodeExists(ctx, code)
			if err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class code")
			}
			if !exists {
				return code, nil
			}
		}
	}

	for i := 0; i < classCodeAttempts; i++ {
		candidate, err := s.codeGen()
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate class code")
		}
		exists, err := s.repo.CodeExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class code")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "failed to generate class code, try again")
}

// Joined lists the classes userID joined as a student.
func (s *ClassService) Joined(ctx context.Context, userID string) ([]models.JoinedClassView, error) {
	joined, err := s.repo.ListJoined(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list joined classes")
	}
	if joined == nil {
		joined = []models.JoinedClassView{}
	}
	return joined, nil
}

// Join adds userID to the class with the given code as a pending student.
func (s *ClassService) Join(ctx context.Context, userID string, req dto.JoinClassRequest) (*dto.JoinClassResult, error) {
	req.ClassCode = strings.TrimSpace(req.ClassCode)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "classCode is required")
	}

	class, err := s.repo.FindByCode(ctx, req.ClassCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Class code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
	}
	if class.OwnerID == userID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "You are the owner of this class")
	}

	membership := &models.JoinedClass{
		UserID:  userID,
		ClassID: class.ID,
		Program: class.Program,
		Status:  models.JoinPending,
	}
	created, err := s.repo.Join(ctx, membership)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join class")
	}
	if !created {
		return &dto.JoinClassResult{Message: "Already joined", ClassID: class.ID}, nil
	}

	if s.notifier != nil {
		classID := class.ID
		_ = s.notifier.Notify(ctx, models.Notification{
			UserID:  class.OwnerID,
			ClassID: &classID,
			Type:    models.NotificationJoinRequest,
			Message: fmt.Sprintf("A student asked to join %s", class.ClassName),
		})
	}

	return &dto.JoinClassResult{
		Message: "Joined class successfully",
		ClassID: class.ID,
		Class:   class,
		Joined:  membership,
		Created: true,
	}, nil
}

// Leave removes userID from the class.
func (s *ClassService) Leave(ctx context.Context, userID, classID string) error {
	if !validID(classID) {
		return appErrors.Clone(appErrors.ErrNotFound, "Not found or already left")
	}
	left, err := s.repo.Leave(ctx, userID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave class")
	}
	if !left {
		return appErrors.Clone(appErrors.ErrNotFound, "Not found or already left")
	}
	return nil
}

// Roster returns the owner, instructors and students of a class.
func (s *ClassService) Roster(ctx context.Context, classID string) (*models.Roster, error) {
	if !validID(classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	owner, err := s.repo.Owner(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class owner")
	}

	roster := &models.Roster{ClassID: classID, Owner: owner, Instructors: []models.RosterMember{}, Students: []models.RosterMember{}}
	if s.caps.Instructors {
		instructors, err := s.repo.Instructors(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
		}
		if instructors != nil {
			roster.Instructors = instructors
		}
	}
	students, err := s.repo.Students(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students != nil {
		roster.Students = students
	}
	return roster, nil
}

// AddInstructor attaches userID to the class as an instructor or TA.
func (s *ClassService) AddInstructor(ctx context.Context, classID string, req dto.AddInstructorRequest) (*models.ClassInstructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	if !s.caps.Instructors {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "class instructors are not enabled")
	}
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}

	role := models.InstructorInstructor
	if req.Role != "" {
		role = models.InstructorRole(req.Role)
	}
	instructor := &models.ClassInstructor{ClassID: classID, UserID: req.UserID, RoleInClass: role}
	if err := s.repo.UpsertInstructor(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add instructor")
	}
	return instructor, nil
}

// CanTeach reports whether userID owns or instructs the class.
func (s *ClassService) CanTeach(ctx context.Context, classID, userID string) (bool, error) {
	if !validID(classID) || !validID(userID) {
		return false, nil
	}
	ok, err := s.repo.IsInstructor(ctx, classID, userID, s.caps.Instructors)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
	}
	return ok, nil
}

func displayName(req dto.CreateClassRequest) string {
	for _, candidate := range []*string{req.ClassName, req.CourseName, req.Program} {
		if v := trimmed(candidate); v != nil {
			return *v
		}
	}
	return untitledClassName
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func randomClassCode() (string, error) {
	buf := make([]byte, classCodeByteCount)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
