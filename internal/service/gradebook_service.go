package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/export"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

type gradebookRepository interface {
	FindByClass(ctx context.Context, classID string) (*models.GradebookConfig, error)
	Upsert(ctx context.Context, cfg *models.GradebookConfig) (*models.GradebookConfig, error)
}

type classGradebookReader interface {
	ClassGradebook(ctx context.Context, classID string) ([]models.StudentGradeSummary, error)
}

// GradebookExport is a rendered gradebook file.
type GradebookExport struct {
	FileName    string
	ContentType string
	Data        []byte
}

// GradebookService stores teacher gradebook layouts and exports class grades.
type GradebookService struct {
	repo     gradebookRepository
	grades   classGradebookReader
	cache    *CacheService
	cacheTTL time.Duration
	caps     database.Capabilities
	logger   *zap.Logger
}

// NewGradebookService constructs a GradebookService. cache may be nil.
func NewGradebookService(repo gradebookRepository, grades classGradebookReader, cache *CacheService, cacheTTL time.Duration, caps database.Capabilities, logger *zap.Logger) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{repo: repo, grades: grades, cache: cache, cacheTTL: cacheTTL, caps: caps, logger: logger}
}

func gradebookCacheKey(classID string) string {
	return "gradebook:" + classID
}

// Get returns the stored config of a class, or nil when none was saved.
func (s *GradebookService) Get(ctx context.Context, classID string) (*models.GradebookConfig, error) {
	if !s.caps.Gradebook {
		return nil, nil
	}

	if !validID(classID) {
		return nil, nil
	}

	key := gradebookCacheKey(classID)
	var cached gradebookCacheEntry
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		if cfg, err := cached.config(); err == nil {
			return cfg, nil
		}
		s.logger.Warn("discarding unreadable gradebook cache entry", zap.String("class_id", classID))
	}

	cfg, err := s.repo.FindByClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}
	_ = s.cache.Set(ctx, key, newGradebookCacheEntry(cfg), s.cacheTTL)
	return cfg, nil
}

// gradebookCacheEntry is the cached form of a GradebookConfig. Document fields hold the
// stored bytes unchanged.
type gradebookCacheEntry struct {
	ID                string    `json:"id"`
	ClassID           string    `json:"classId"`
	MidtermPercentage int       `json:"midtermPercentage"`
	FinalsPercentage  int       `json:"finalsPercentage"`
	MidtermTables     []byte    `json:"midtermTables,omitempty"`
	FinalsTables      []byte    `json:"finalsTables,omitempty"`
	Grades            []byte    `json:"grades,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func newGradebookCacheEntry(cfg *models.GradebookConfig) gradebookCacheEntry {
	return gradebookCacheEntry{
		ID:                cfg.ID,
		ClassID:           cfg.ClassID,
		MidtermPercentage: cfg.MidtermPercentage,
		FinalsPercentage:  cfg.FinalsPercentage,
		MidtermTables:     rawDocument(cfg.MidtermTables),
		FinalsTables:      rawDocument(cfg.FinalsTables),
		Grades:            rawDocument(cfg.Grades),
		CreatedAt:         cfg.CreatedAt,
		UpdatedAt:         cfg.UpdatedAt,
	}
}

func (e gradebookCacheEntry) config() (*models.GradebookConfig, error) {
	cfg := &models.GradebookConfig{
		ID:                e.ID,
		ClassID:           e.ClassID,
		MidtermPercentage: e.MidtermPercentage,
		FinalsPercentage:  e.FinalsPercentage,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	var err error
	if cfg.MidtermTables, err = jsondoc.Parse(e.MidtermTables); err != nil {
		return nil, err
	}
	if cfg.FinalsTables, err = jsondoc.Parse(e.FinalsTables); err != nil {
		return nil, err
	}
	if cfg.Grades, err = jsondoc.Parse(e.Grades); err != nil {
		return nil, err
	}
	return cfg, nil
}

func rawDocument(d jsondoc.Document) []byte {
	if d.IsNull() {
		return nil
	}
	return d.Bytes()
}

// Save replaces the config of a class. Missing percentages default to 50/50.
func (s *GradebookService) Save(ctx context.Context, classID string, req dto.SaveGradebookRequest) (*models.GradebookConfig, error) {
	if !s.caps.Gradebook {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "gradebook is not enabled")
	}
	if !validID(classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	cfg := &models.GradebookConfig{
		ClassID:           classID,
		MidtermPercentage: models.DefaultMidtermPercentage,
		FinalsPercentage:  models.DefaultFinalsPercentage,
		MidtermTables:     req.MidtermTables,
		FinalsTables:      req.FinalsTables,
		Grades:            req.Grades,
	}
	if req.MidtermPercentage != nil {
		cfg.MidtermPercentage = *req.MidtermPercentage
	}
	if req.FinalsPercentage != nil {
		cfg.FinalsPercentage = *req.FinalsPercentage
	}

	stored, err := s.repo.Upsert(ctx, cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save gradebook")
	}
	if err := s.cache.Delete(ctx, gradebookCacheKey(classID)); err != nil {
		s.logger.Warn("gradebook cache not invalidated", zap.String("class_id", classID), zap.Error(err))
	}
	s.logger.Info("gradebook saved", zap.String("class_id", classID))
	return stored, nil
}

// ResetCache drops every cached gradebook config. The server calls it on startup.
func (s *GradebookService) ResetCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx, gradebookCacheKey("*"))
}

// Export renders the class gradebook in the requested format (csv, pdf or xlsx).
func (s *GradebookService) Export(ctx context.Context, classID, format string) (*GradebookExport, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}

	students, err := s.grades.ClassGradebook(ctx, classID)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(GradebookTable(students))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}
	return &GradebookExport{
		FileName:    fmt.Sprintf("gradebook-%s.%s", classID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

// GradebookTable flattens per-student summaries into an export table. Category columns
// are sorted alphabetically; rows keep roster order.
func GradebookTable(students []models.StudentGradeSummary) export.Table {
	groupSet := map[string]struct{}{}
	for _, student := range students {
		if student.Summary == nil {
			continue
		}
		for group := range student.Summary.Categories {
			groupSet[group] = struct{}{}
		}
	}
	groups := make([]string, 0, len(groupSet))
	for group := range groupSet {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	columns := []string{"Student", "Email"}
	for _, group := range groups {
		columns = append(columns, group+" %")
	}
	columns = append(columns, "Earned", "Possible", "Overall %")

	rows := make([][]string, 0, len(students))
	for _, student := range students {
		name := student.Name
		if name == "" {
			name = student.Email
		}
		row := []string{name, student.Email}
		summary := student.Summary
		if summary == nil {
			summary = models.EmptyGradeSummary()
		}
		for _, group := range groups {
			row = append(row, formatPercent(summary.Categories[group].Percent))
		}
		row = append(row,
			strconv.FormatFloat(summary.Overall.Earned, 'f', -1, 64),
			strconv.FormatFloat(summary.Overall.Possible, 'f', -1, 64),
			formatPercent(summary.Overall.PercentRaw),
		)
		rows = append(rows, row)
	}
	return export.Table{Title: "Gradebook", Columns: columns, Rows: rows}
}

func formatPercent(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
