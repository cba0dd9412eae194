package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

type mockClassworkRepo struct {
	items     map[string]*models.ClassworkItem
	ordered   []models.ClassworkItem
	lastPatch dto.UpdateClassworkRequest
	listErr   error
}

func newMockClassworkRepo() *mockClassworkRepo {
	return &mockClassworkRepo{items: map[string]*models.ClassworkItem{}}
}

func (m *mockClassworkRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassworkItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.ordered, nil
}

func (m *mockClassworkRepo) FindByID(ctx context.Context, id string) (*models.ClassworkItem, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassworkRepo) Create(ctx context.Context, item *models.ClassworkItem) error {
	item.ID = "cw-new"
	m.items[item.ID] = item
	return nil
}

func (m *mockClassworkRepo) Update(ctx context.Context, id string, req dto.UpdateClassworkRequest) (*models.ClassworkItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m.lastPatch = req
	if req.Title != nil {
		item.Title = *req.Title
	}
	return item, nil
}

func (m *mockClassworkRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type mockClassDirectory struct {
	classes  map[string]*models.Class
	students map[string][]models.RosterMember
}

func (m *mockClassDirectory) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassDirectory) Students(ctx context.Context, classID string) ([]models.RosterMember, error) {
	return m.students[classID], nil
}

func newClassDirectory() *mockClassDirectory {
	return &mockClassDirectory{
		classes: map[string]*models.Class{classC1: {ID: classC1, OwnerID: teacher1, ClassName: "Physics"}},
		students: map[string][]models.RosterMember{classC1: {
			{UserID: studentS1, Email: "s1@example.com"},
			{UserID: studentS2, Email: "s2@example.com"},
		}},
	}
}

func TestClassworkServiceCreateNotifiesStudents(t *testing.T) {
	repo := newMockClassworkRepo()
	notify := &recordingNotifier{}
	svc := NewClassworkService(repo, newClassDirectory(), database.AllCapabilities(), notify, nil, nil)

	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	item, err := svc.Create(context.Background(), classC1, dto.CreateClassworkRequest{
		Title:  "  Lab Report ",
		DueAt:  &due,
		Rubric: jsondoc.MustParse(`{"criteria":[{"name":"Clarity","points":5}]}`),
	}, teacher1)
	require.NoError(t, err)
	assert.Equal(t, "Lab Report", item.Title)
	assert.Equal(t, "assignment", item.Type)
	assert.Equal(t, time.UTC, item.DueAt.Location())
	assert.Equal(t, `{"criteria":[{"name":"Clarity","points":5}]}`, string(item.Rubric.Bytes()))

	require.Len(t, notify.sent, 2)
	assert.Equal(t, models.NotificationClassworkPosted, notify.sent[0].Type)
	assert.Equal(t, "cw-new", *notify.sent[1].ClassworkID)
}

func TestClassworkServiceCreateUnknownClass(t *testing.T) {
	svc := NewClassworkService(newMockClassworkRepo(), newClassDirectory(), database.AllCapabilities(), nil, nil, nil)

	_, err := svc.Create(context.Background(), "missing", dto.CreateClassworkRequest{Title: "Quiz"}, teacher1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), classC1, dto.CreateClassworkRequest{}, teacher1)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassworkServiceListDegradesWithoutTable(t *testing.T) {
	repo := newMockClassworkRepo()
	caps := database.AllCapabilities()
	caps.Classwork = false
	svc := NewClassworkService(repo, newClassDirectory(), caps, nil, nil, nil)

	items, err := svc.List(context.Background(), classC1)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClassworkServiceUpdatePartial(t *testing.T) {
	repo := newMockClassworkRepo()
	repo.items[itemCW1] = &models.ClassworkItem{ID: itemCW1, Title: "Old"}
	svc := NewClassworkService(repo, newClassDirectory(), database.AllCapabilities(), nil, nil, nil)

	item, err := svc.Update(context.Background(), itemCW1, dto.UpdateClassworkRequest{Title: strPtr(" New ")})
	require.NoError(t, err)
	assert.Equal(t, "New", item.Title)
	assert.Nil(t, repo.lastPatch.DueAt)

	item, err = svc.Update(context.Background(), itemCW1, dto.UpdateClassworkRequest{})
	require.NoError(t, err)
	assert.Equal(t, "New", item.Title)

	_, err = svc.Update(context.Background(), "missing", dto.UpdateClassworkRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClassworkServiceDelete(t *testing.T) {
	repo := newMockClassworkRepo()
	repo.items[itemCW1] = &models.ClassworkItem{ID: itemCW1}
	svc := NewClassworkService(repo, newClassDirectory(), database.AllCapabilities(), nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), itemCW1))
	assert.ErrorIs(t, svc.Delete(context.Background(), itemCW1), appErrors.ErrNotFound)
}

func TestClassworkServiceMalformedIDs(t *testing.T) {
	svc := NewClassworkService(newMockClassworkRepo(), strictClassDirectory{newClassDirectory()}, database.AllCapabilities(), nil, nil, nil)
	ctx := context.Background()

	items, err := svc.List(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(ctx, "42")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(ctx, "42", dto.CreateClassworkRequest{Title: "Quiz"}, teacher1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Update(ctx, "42", dto.UpdateClassworkRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "42"), appErrors.ErrNotFound)
}
