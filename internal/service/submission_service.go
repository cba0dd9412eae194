package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/storage"
)

type submissionRepository interface {
	Upsert(ctx context.Context, sub *models.Submission) (*models.Submission, error)
	FindByClassworkAndUser(ctx context.Context, classworkID, userID string) (*models.Submission, error)
	ListByClasswork(ctx context.Context, classworkID string) ([]models.SubmissionWithStudent, error)
	SetGradeByID(ctx context.Context, classworkID, id string, grade models.SubmissionGrade) (*models.Submission, error)
	SetGradeForUser(ctx context.Context, classworkID, userID string, grade models.SubmissionGrade) (*models.Submission, error)
	Delete(ctx context.Context, classworkID, id string) (bool, error)
}

type classworkFinder interface {
	FindByID(ctx context.Context, id string) (*models.ClassworkItem, error)
}

type attachmentStore interface {
	SaveContent(originalName string, r io.Reader) (string, error)
	Open(storedName string) (*os.File, error)
}

type downloadSigner interface {
	Sign(storedName string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// SubmissionOptions bounds uploads and sets the public attachment path.
type SubmissionOptions struct {
	MaxFiles     int
	MaxFileSize  int64
	FilesBaseURL string
}

// SubmissionService records student submissions and teacher grades.
type SubmissionService struct {
	repo      submissionRepository
	classwork classworkFinder
	store     attachmentStore
	signer    downloadSigner
	caps      database.Capabilities
	notifier  notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	opts      SubmissionOptions
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionRepository, classwork classworkFinder, store attachmentStore, signer downloadSigner, caps database.Capabilities, notify notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts SubmissionOptions) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if opts.FilesBaseURL == "" {
		opts.FilesBaseURL = "/api/files/submissions"
	}
	opts.FilesBaseURL = strings.TrimRight(opts.FilesBaseURL, "/")
	return &SubmissionService{
		repo:      repo,
		classwork: classwork,
		store:     store,
		signer:    signer,
		caps:      caps,
		notifier:  notify,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Submit stores the caller's attempt for a classwork item. Resubmitting keeps the grade;
// files and answers are replaced only when the new attempt carries them.
func (s *SubmissionService) Submit(ctx context.Context, req dto.SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission")
	}
	if !s.caps.Submissions {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "submissions are not enabled")
	}
	if _, err := s.findClasswork(ctx, req.ClassworkID); err != nil {
		return nil, err
	}
	if s.opts.MaxFiles > 0 && len(req.Uploads) > s.opts.MaxFiles {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "too many attachments")
	}
	for _, upload := range req.Uploads {
		if s.opts.MaxFileSize > 0 && upload.Size > s.opts.MaxFileSize {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "attachment "+upload.OriginalName+" is too large")
		}
	}

	var files models.SubmissionFiles
	for _, upload := range req.Uploads {
		files = append(files, s.storeUpload(upload))
	}

	stored, err := s.repo.Upsert(ctx, &models.Submission{
		ClassworkID: req.ClassworkID,
		UserID:      req.UserID,
		Files:       files,
		Answers:     req.Answers,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}

	s.metrics.RecordSubmission(len(files) > 0)
	s.logger.Info("submission stored",
		zap.String("classwork_id", req.ClassworkID),
		zap.String("user_id", req.UserID),
		zap.Int("attachments", len(files)),
	)
	s.signFiles(stored.Files)
	return stored, nil
}

// storeUpload persists one attachment. Storage failures fall back to display-only metadata.
func (s *SubmissionService) storeUpload(upload dto.Upload) models.SubmissionFile {
	file := models.SubmissionFile{OriginalName: upload.OriginalName, Size: upload.Size, MimeType: upload.MimeType}
	if s.store == nil || upload.Open == nil {
		return models.SubmissionFile{OriginalName: upload.OriginalName}
	}

	reader, err := upload.Open()
	if err != nil {
		s.logger.Warn("failed to open attachment", zap.String("name", upload.OriginalName), zap.Error(err))
		return models.SubmissionFile{OriginalName: upload.OriginalName}
	}
	defer reader.Close() //nolint:errcheck

	storedName, err := s.store.SaveContent(upload.OriginalName, reader)
	if err != nil {
		s.logger.Warn("failed to store attachment", zap.String("name", upload.OriginalName), zap.Error(err))
		return models.SubmissionFile{OriginalName: upload.OriginalName}
	}
	file.StoredName = storedName
	file.URL = s.opts.FilesBaseURL + "/" + url.PathEscape(storedName)
	return file
}

// Grade records a teacher's score. The submission is addressed by id, falling back to the
// student when the id is unknown; grading a student who never submitted creates the row.
func (s *SubmissionService) Grade(ctx context.Context, req dto.GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "score is required")
	}
	if req.SubmissionID == "" && req.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submissionId or userId is required")
	}
	if !s.caps.Submissions {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "submissions are not enabled")
	}
	item, err := s.findClasswork(ctx, req.ClassworkID)
	if err != nil {
		return nil, err
	}

	total := models.DefaultTotalPoints
	gradedAt := s.now().UTC()
	grade := models.SubmissionGrade{Score: *req.Score, TotalPoints: &total, GradedBy: models.GradedByTeacher, GradedAt: &gradedAt}

	var sub *models.Submission
	if validID(req.SubmissionID) {
		sub, err = s.repo.SetGradeByID(ctx, req.ClassworkID, req.SubmissionID, grade)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
		}
	}
	if sub == nil {
		if !validID(req.UserID) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		sub, err = s.repo.SetGradeForUser(ctx, req.ClassworkID, req.UserID, grade)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
		}
	}

	s.metrics.RecordGrade()
	if s.notifier != nil {
		classID, classworkID := item.ClassID, item.ID
		title := item.Title
		_ = s.notifier.Notify(ctx, models.Notification{
			UserID:      sub.UserID,
			ClassID:     &classID,
			ClassworkID: &classworkID,
			Type:        models.NotificationGraded,
			Title:       &title,
			Message:     "Your work \"" + item.Title + "\" has been graded",
		})
	}
	s.signFiles(sub.Files)
	return sub, nil
}

// Mine returns the caller's own submission state for an item.
func (s *SubmissionService) Mine(ctx context.Context, classworkID, userID string) (*models.MySubmission, error) {
	if !s.caps.Submissions || !validID(classworkID) || !validID(userID) {
		return &models.MySubmission{Submitted: false}, nil
	}
	sub, err := s.repo.FindByClassworkAndUser(ctx, classworkID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.MySubmission{Submitted: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	s.signFiles(sub.Files)
	mine := &models.MySubmission{
		Submitted:      sub.SubmittedAt != nil,
		SubmissionID:   sub.ID,
		SubmissionTime: sub.SubmittedAt,
		Files:          sub.Files,
		Grade:          sub.Grade,
	}
	if !sub.Answers.IsNull() {
		answers := sub.Answers
		mine.Answers = &answers
	}
	return mine, nil
}

// ListByClasswork returns all submissions of an item for the teacher view.
func (s *SubmissionService) ListByClasswork(ctx context.Context, classworkID string) ([]models.SubmissionWithStudent, error) {
	if !s.caps.Submissions {
		return []models.SubmissionWithStudent{}, nil
	}
	if _, err := s.findClasswork(ctx, classworkID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListByClasswork(ctx, classworkID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	if subs == nil {
		subs = []models.SubmissionWithStudent{}
	}
	for i := range subs {
		s.signFiles(subs[i].Files)
	}
	return subs, nil
}

// Delete hard-deletes a submission.
func (s *SubmissionService) Delete(ctx context.Context, classworkID, submissionID string) error {
	if !s.caps.Submissions || !validID(classworkID) || !validID(submissionID) {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	deleted, err := s.repo.Delete(ctx, classworkID, submissionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return nil
}

// OpenFile returns the stored attachment covered by token.
func (s *SubmissionService) OpenFile(ctx context.Context, storedName, token string) (*os.File, error) {
	if s.signer == nil || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	signedName, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	if signedName != storedName {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}

	file, err := s.store.Open(storedName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, nil
}

func (s *SubmissionService) findClasswork(ctx context.Context, id string) (*models.ClassworkItem, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}
	item, err := s.classwork.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classwork")
	}
	return item, nil
}

// signFiles attaches a short-lived download link to every stored file.
func (s *SubmissionService) signFiles(files models.SubmissionFiles) {
	if s.signer == nil {
		return
	}
	for i := range files {
		if files[i].StoredName == "" {
			continue
		}
		token, _, err := s.signer.Sign(files[i].StoredName)
		if err != nil {
			s.logger.Warn("failed to sign attachment", zap.String("stored_name", files[i].StoredName), zap.Error(err))
			continue
		}
		files[i].DownloadURL = s.opts.FilesBaseURL + "/" + url.PathEscape(files[i].StoredName) + "?token=" + url.QueryEscape(token)
	}
}
