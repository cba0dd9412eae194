package service

import (
	"context"
	"database/sql"
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

const defaultClassworkType = "assignment"

type classworkRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassworkItem, error)
	FindByID(ctx context.Context, id string) (*models.ClassworkItem, error)
	Create(ctx context.Context, item *models.ClassworkItem) error
	Update(ctx context.Context, id string, req dto.UpdateClassworkRequest) (*models.ClassworkItem, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// classDirectory is the part of the class repository other services read from.
type classDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Students(ctx context.Context, classID string) ([]models.RosterMember, error)
}

// ClassworkService manages classwork items posted to classes.
type ClassworkService struct {
	repo      classworkRepository
	classes   classDirectory
	caps      database.Capabilities
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassworkService constructs a ClassworkService.
func NewClassworkService(repo classworkRepository, classes classDirectory, caps database.Capabilities, notify notifier, validate *validator.Validate, logger *zap.Logger) *ClassworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassworkService{repo: repo, classes: classes, caps: caps, notifier: notify, validator: validate, logger: logger}
}

// List returns the classwork of a class newest first.
func (s *ClassworkService) List(ctx context.Context, classID string) ([]models.ClassworkItem, error) {
	if !s.caps.Classwork || !validID(classID) {
		return []models.ClassworkItem{}, nil
	}
	items, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classwork")
	}
	if items == nil {
		items = []models.ClassworkItem{}
	}
	return items, nil
}

// Get returns a classwork item.
func (s *ClassworkService) Get(ctx context.Context, id string) (*models.ClassworkItem, error) {
	if !s.caps.Classwork || !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classwork")
	}
	return item, nil
}

// Create posts a new item to classID and notifies the class's students.
func (s *ClassworkService) Create(ctx context.Context, classID string, req dto.CreateClassworkRequest, actorID string) (*models.ClassworkItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classwork payload")
	}
	if !s.caps.Classwork {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "classwork is not enabled")
	}

	if !validID(classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	itemType := strings.TrimSpace(req.Type)
	if itemType == "" {
		itemType = defaultClassworkType
	}
	item := &models.ClassworkItem{
		ClassID:     classID,
		Title:       req.Title,
		Type:        itemType,
		Description: req.Description,
		Rubric:      req.Rubric,
		Extra:       req.Extra,
	}
	if req.DueAt != nil {
		due := req.DueAt.UTC()
		item.DueAt = &due
	}
	if actorID != "" {
		creator := actorID
		item.CreatedBy = &creator
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classwork")
	}

	s.notifyStudents(ctx, class, item)
	return item, nil
}

func (s *ClassworkService) notifyStudents(ctx context.Context, class *models.Class, item *models.ClassworkItem) {
	if s.notifier == nil {
		return
	}
	students, err := s.classes.Students(ctx, class.ID)
	if err != nil {
		s.logger.Warn("failed to load students for classwork notification", zap.String("class_id", class.ID), zap.Error(err))
		return
	}
	title := item.Title
	for _, student := range students {
		classID, classworkID := class.ID, item.ID
		_ = s.notifier.Notify(ctx, models.Notification{
			UserID:      student.UserID,
			ClassID:     &classID,
			ClassworkID: &classworkID,
			Type:        models.NotificationClassworkPosted,
			Title:       &title,
			Message:     fmt.Sprintf("New %s in %s: %s", item.Type, class.ClassName, item.Title),
		})
	}
}

// Update changes the title, description or due date of an item.
func (s *ClassworkService) Update(ctx context.Context, id string, req dto.UpdateClassworkRequest) (*models.ClassworkItem, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classwork payload")
	}
	if req.Empty() {
		return s.Get(ctx, id)
	}
	if !s.caps.Classwork || !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}

	item, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classwork")
	}
	return item, nil
}

// Delete removes an item.
func (s *ClassworkService) Delete(ctx context.Context, id string) error {
	if !s.caps.Classwork || !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classwork")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}
	return nil
}
