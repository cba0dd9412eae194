package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
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

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindActive(ctx context.Context) (*models.AcademicYear, error)
	CountByName(ctx context.Context, yearName string) (int, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Activate(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (*models.AcademicYear, error)
	StoredNameInUse(ctx context.Context, storedName string) (bool, error)
}

type academicYearStore interface {
	attachmentStore
	Delete(storedName string) error
}

// academicYearStartMonth is the first month of a new academic year.
const academicYearStartMonth = time.June

var academicYearExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true}

// AcademicYearOptions bounds uploads and sets the public file path.
type AcademicYearOptions struct {
	MaxFileSize  int64
	FilesBaseURL string
}

// AcademicYearService manages uploaded academic year documents and the active year.
type AcademicYearService struct {
	repo      academicYearRepository
	users     userRepository
	store     academicYearStore
	signer    downloadSigner
	caps      database.Capabilities
	validator *validator.Validate
	logger    *zap.Logger
	opts      AcademicYearOptions
	now       func() time.Time
}

// NewAcademicYearService constructs an AcademicYearService.
func NewAcademicYearService(repo academicYearRepository, users userRepository, store academicYearStore, signer downloadSigner, caps database.Capabilities, validate *validator.Validate, logger *zap.Logger, opts AcademicYearOptions) *AcademicYearService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if opts.FilesBaseURL == "" {
		opts.FilesBaseURL = "/api/files/academic-years"
	}
	opts.FilesBaseURL = strings.TrimRight(opts.FilesBaseURL, "/")
	return &AcademicYearService{
		repo:      repo,
		users:     users,
		store:     store,
		signer:    signer,
		caps:      caps,
		validator: validate,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Active returns the stored active year. Without one, the year is derived from the
// current date: from June onwards a new year starts.
func (s *AcademicYearService) Active(ctx context.Context) (*models.AcademicYear, error) {
	if s.caps.AcademicYears {
		year, err := s.repo.FindActive(ctx)
		if err == nil {
			s.signFile(year)
			return year, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active academic year")
		}
	}
	return derivedAcademicYear(s.now()), nil
}

func derivedAcademicYear(now time.Time) *models.AcademicYear {
	start := now.Year()
	if now.Month() < academicYearStartMonth {
		start--
	}
	end := start + 1
	return &models.AcademicYear{
		ID:       strconv.Itoa(start) + strconv.Itoa(end),
		YearName: fmt.Sprintf("%d-%d", start, end),
		Status:   models.AcademicYearActive,
	}
}

// List returns every uploaded academic year.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, error) {
	if !s.caps.AcademicYears {
		return []models.AcademicYear{}, nil
	}
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	if years == nil {
		years = []models.AcademicYear{}
	}
	for i := range years {
		s.signFile(&years[i])
	}
	return years, nil
}

// Create stores the uploaded document as the next version of its year name.
func (s *AcademicYearService) Create(ctx context.Context, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error) {
	req.YearName = strings.TrimSpace(req.YearName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if req.File == nil || req.File.Open == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if !academicYearExtensions[strings.ToLower(filepath.Ext(req.File.OriginalName))] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file must be a pdf, doc, docx, xls or xlsx document")
	}
	if s.opts.MaxFileSize > 0 && req.File.Size > s.opts.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file is too large")
	}
	if !s.caps.AcademicYears || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "academic years are not enabled")
	}

	count, err := s.repo.CountByName(ctx, req.YearName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count academic year versions")
	}

	storedName, err := s.saveFile(req.File)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store academic year file")
	}

	status := models.AcademicYearInactive
	if req.SetAsActive {
		status = models.AcademicYearActive
	}
	year := &models.AcademicYear{
		YearName:       req.YearName,
		Version:        "v" + strconv.Itoa(count+1),
		FileName:       req.File.OriginalName,
		StoredName:     storedName,
		Notes:          optionalString(strings.TrimSpace(req.Notes)),
		UploadedByName: s.uploaderName(ctx, req.UploaderID),
		Status:         status,
	}
	if validID(req.UploaderID) {
		uploader := req.UploaderID
		year.UploadedBy = &uploader
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}

	s.logger.Info("academic year uploaded",
		zap.String("academic_year_id", year.ID),
		zap.String("year_name", year.YearName),
		zap.String("version", year.Version),
		zap.Bool("active", req.SetAsActive),
	)
	s.signFile(year)
	return year, nil
}

func (s *AcademicYearService) saveFile(upload *dto.Upload) (string, error) {
	reader, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer reader.Close() //nolint:errcheck
	return s.store.SaveContent(upload.OriginalName, reader)
}

func (s *AcademicYearService) uploaderName(ctx context.Context, userID string) string {
	if s.users == nil || !validID(userID) {
		return "Admin"
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve uploader", zap.String("user_id", userID), zap.Error(err))
		}
		return "Admin"
	}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return "Admin"
}

// Activate makes id the only active academic year.
func (s *AcademicYearService) Activate(ctx context.Context, id string) error {
	if !s.caps.AcademicYears || !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	ok, err := s.repo.Activate(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	s.logger.Info("academic year activated", zap.String("academic_year_id", id))
	return nil
}

// Delete removes a year. Its file is removed once no other version references it.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	if !s.caps.AcademicYears || !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	year, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic year")
	}
	s.removeFile(ctx, year.StoredName)
	s.logger.Info("academic year deleted", zap.String("academic_year_id", id))
	return nil
}

func (s *AcademicYearService) removeFile(ctx context.Context, storedName string) {
	if s.store == nil || storedName == "" {
		return
	}
	inUse, err := s.repo.StoredNameInUse(ctx, storedName)
	if err != nil {
		s.logger.Warn("failed to check academic year file usage", zap.String("stored_name", storedName), zap.Error(err))
		return
	}
	if inUse {
		return
	}
	if err := s.store.Delete(storedName); err != nil {
		s.logger.Warn("failed to delete academic year file", zap.String("stored_name", storedName), zap.Error(err))
	}
}

// OpenFile returns the academic year document covered by token.
func (s *AcademicYearService) OpenFile(ctx context.Context, storedName, token string) (*os.File, error) {
	if s.signer == nil || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	signedName, err := s.signer.Verify(token)
	if err != nil || signedName != storedName {
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

func (s *AcademicYearService) signFile(year *models.AcademicYear) {
	if s.signer == nil || year.StoredName == "" {
		return
	}
	token, _, err := s.signer.Sign(year.StoredName)
	if err != nil {
		s.logger.Warn("failed to sign academic year file", zap.String("stored_name", year.StoredName), zap.Error(err))
		return
	}
	year.FilePath = s.opts.FilesBaseURL + "/" + url.PathEscape(year.StoredName) + "?token=" + url.QueryEscape(token)
}
