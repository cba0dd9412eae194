package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
	"github.com/noah-isme/gradsmart-api/pkg/storage"
)

// mockSubmissionRepo mimics the upsert semantics of the submissions table.
type mockSubmissionRepo struct {
	rows      map[string]*models.Submission
	clock     time.Time
	upsertErr error
	byIDCalls int
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{rows: map[string]*models.Submission{}, clock: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (m *mockSubmissionRepo) key(classworkID, userID string) string { return classworkID + "/" + userID }

func (m *mockSubmissionRepo) tick() *time.Time {
	m.clock = m.clock.Add(time.Minute)
	t := m.clock
	return &t
}

func (m *mockSubmissionRepo) Upsert(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	k := m.key(sub.ClassworkID, sub.UserID)
	existing, ok := m.rows[k]
	if !ok {
		row := *sub
		row.ID = uuid.NewString()
		row.SubmittedAt = m.tick()
		m.rows[k] = &row
		copied := row
		return &copied, nil
	}
	existing.SubmittedAt = m.tick()
	if sub.Files != nil {
		existing.Files = sub.Files
	}
	if !sub.Answers.IsNull() {
		existing.Answers = sub.Answers
	}
	copied := *existing
	return &copied, nil
}

func (m *mockSubmissionRepo) FindByClassworkAndUser(ctx context.Context, classworkID, userID string) (*models.Submission, error) {
	if row, ok := m.rows[m.key(classworkID, userID)]; ok {
		copied := *row
		copied.Files = append(models.SubmissionFiles(nil), row.Files...)
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByClasswork(ctx context.Context, classworkID string) ([]models.SubmissionWithStudent, error) {
	var out []models.SubmissionWithStudent
	for _, row := range m.rows {
		if row.ClassworkID == classworkID {
			out = append(out, models.SubmissionWithStudent{Submission: *row})
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) SetGradeByID(ctx context.Context, classworkID, id string, grade models.SubmissionGrade) (*models.Submission, error) {
	m.byIDCalls++
	for _, row := range m.rows {
		if row.ID == id && row.ClassworkID == classworkID {
			g := grade
			row.Grade = &g
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) SetGradeForUser(ctx context.Context, classworkID, userID string, grade models.SubmissionGrade) (*models.Submission, error) {
	k := m.key(classworkID, userID)
	row, ok := m.rows[k]
	if !ok {
		row = &models.Submission{ID: uuid.NewString(), ClassworkID: classworkID, UserID: userID}
		m.rows[k] = row
	}
	g := grade
	row.Grade = &g
	copied := *row
	return &copied, nil
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, classworkID, id string) (bool, error) {
	for k, row := range m.rows {
		if row.ID == id && row.ClassworkID == classworkID {
			delete(m.rows, k)
			return true, nil
		}
	}
	return false, nil
}

type mockClassworkFinder struct{}

func (mockClassworkFinder) FindByID(ctx context.Context, id string) (*models.ClassworkItem, error) {
	if id == itemCW1 {
		return &models.ClassworkItem{ID: itemCW1, ClassID: classC1, Title: "Essay"}, nil
	}
	return nil, sql.ErrNoRows
}

func upload(name, content string) dto.Upload {
	return dto.Upload{
		OriginalName: name,
		Size:         int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func newSubmissionFixture(t *testing.T) (*SubmissionService, *mockSubmissionRepo, *recordingNotifier) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMockSubmissionRepo()
	notify := &recordingNotifier{}
	svc := NewSubmissionService(repo, mockClassworkFinder{}, store, storage.NewSignedURLSigner("secret", time.Hour),
		database.AllCapabilities(), notify, nil, nil, nil, SubmissionOptions{MaxFiles: 3, MaxFileSize: 1024, FilesBaseURL: "/api/files/submissions"})
	return svc, repo, notify
}

func TestSubmissionServiceSubmitStoresContentAddressedFiles(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)

	sub, err := svc.Submit(context.Background(), dto.SubmitRequest{
		ClassworkID: itemCW1,
		UserID:      studentS1,
		Uploads:     []dto.Upload{upload("Essay.PDF", "hello"), upload("copy.pdf", "hello")},
		Answers:     jsondoc.MustParse(`{"q1":"B"}`),
	})
	require.NoError(t, err)
	require.Len(t, sub.Files, 2)
	assert.Equal(t, "Essay.PDF", sub.Files[0].OriginalName)
	assert.True(t, strings.HasSuffix(sub.Files[0].StoredName, ".pdf"))
	assert.Equal(t, sub.Files[0].StoredName, sub.Files[1].StoredName)
	assert.Equal(t, "/api/files/submissions/"+sub.Files[0].StoredName, sub.Files[0].URL)
	assert.Contains(t, sub.Files[0].DownloadURL, "?token=")
}

func TestSubmissionServiceResubmitKeepsGradeAndSingleRow(t *testing.T) {
	svc, repo, _ := newSubmissionFixture(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1, Uploads: []dto.Upload{upload("a.txt", "v1")}, Answers: jsondoc.MustParse(`"draft"`)})
	require.NoError(t, err)

	score := 85.0
	_, err = svc.Grade(ctx, dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: first.ID, Score: &score})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.SubmittedAt.Before(*first.SubmittedAt))
	require.NotNil(t, second.Grade)
	assert.Equal(t, 85.0, second.Grade.Score)
	assert.Len(t, second.Files, 1)
	assert.Equal(t, `"draft"`, string(second.Answers.Bytes()))
}

func TestSubmissionServiceSubmitFallsBackToDisplayMetadata(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	broken := dto.Upload{OriginalName: "broken.docx", Size: 10, Open: func() (io.ReadCloser, error) {
		return nil, errors.New("disk unavailable")
	}}

	sub, err := svc.Submit(context.Background(), dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1, Uploads: []dto.Upload{broken}})
	require.NoError(t, err)
	require.Len(t, sub.Files, 1)
	assert.Equal(t, models.SubmissionFile{OriginalName: "broken.docx"}, sub.Files[0])
}

func TestSubmissionServiceSubmitErrors(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: "missing", UserID: studentS1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1, Uploads: []dto.Upload{upload("big.bin", strings.Repeat("x", 2048))}})
	assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)
}

func TestSubmissionServiceGradeByUserCreatesRowAndNotifies(t *testing.T) {
	svc, repo, notify := newSubmissionFixture(t)
	score := 92.5

	sub, err := svc.Grade(context.Background(), dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: "unknown", UserID: studentS2, Score: &score})
	require.NoError(t, err)
	assert.Nil(t, sub.SubmittedAt)
	assert.Equal(t, 92.5, sub.Grade.Score)
	assert.Equal(t, 100.0, sub.Grade.Max())
	assert.Equal(t, models.GradedByTeacher, sub.Grade.GradedBy)
	assert.Len(t, repo.rows, 1)

	require.Len(t, notify.sent, 1)
	assert.Equal(t, studentS2, notify.sent[0].UserID)
	assert.Equal(t, models.NotificationGraded, notify.sent[0].Type)

	mine, err := svc.Mine(context.Background(), itemCW1, studentS2)
	require.NoError(t, err)
	assert.False(t, mine.Submitted)
	assert.Equal(t, 92.5, mine.Grade.Score)
}

func TestSubmissionServiceGradePlaceholderIDFallsBackToStudent(t *testing.T) {
	for _, placeholder := range []string{"-", "0", "42"} {
		t.Run(placeholder, func(t *testing.T) {
			svc, repo, _ := newSubmissionFixture(t)
			score := 70.0

			sub, err := svc.Grade(context.Background(), dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: placeholder, UserID: studentS1, Score: &score})
			require.NoError(t, err)
			assert.Equal(t, studentS1, sub.UserID)
			assert.Equal(t, 70.0, sub.Grade.Score)
			assert.Zero(t, repo.byIDCalls)
		})
	}

	svc, repo, _ := newSubmissionFixture(t)
	score := 55.0
	_, err := svc.Grade(context.Background(), dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: "0", UserID: "42", Score: &score})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, repo.rows)
}

func TestSubmissionServiceRejectsMalformedIDs(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: "42", UserID: studentS1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.ListByClasswork(ctx, "42")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, itemCW1, "42"), appErrors.ErrNotFound)

	mine, err := svc.Mine(ctx, "42", studentS1)
	require.NoError(t, err)
	assert.False(t, mine.Submitted)
}

func TestSubmissionServiceGradeUnknownSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	score := 10.0

	_, err := svc.Grade(context.Background(), dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: "unknown", Score: &score})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Grade(context.Background(), dto.GradeSubmissionRequest{ClassworkID: itemCW1, SubmissionID: "unknown"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSubmissionServiceMine(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	mine, err := svc.Mine(ctx, itemCW1, studentS1)
	require.NoError(t, err)
	assert.False(t, mine.Submitted)
	assert.Nil(t, mine.Answers)

	_, err = svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1, Answers: jsondoc.MustParse(`{"q":1}`)})
	require.NoError(t, err)

	mine, err = svc.Mine(ctx, itemCW1, studentS1)
	require.NoError(t, err)
	assert.True(t, mine.Submitted)
	require.NotNil(t, mine.Answers)
	assert.Equal(t, `{"q":1}`, string(mine.Answers.Bytes()))
}

func TestSubmissionServiceOpenFile(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1, Uploads: []dto.Upload{upload("notes.txt", "content")}})
	require.NoError(t, err)
	storedName := sub.Files[0].StoredName
	token := sub.Files[0].DownloadURL[strings.Index(sub.Files[0].DownloadURL, "token=")+len("token="):]

	file, err := svc.OpenFile(ctx, storedName, token)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "content", string(data))

	_, err = svc.OpenFile(ctx, "other.txt", token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.OpenFile(ctx, storedName, "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSubmissionServiceDelete(t *testing.T) {
	svc, repo, _ := newSubmissionFixture(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, dto.SubmitRequest{ClassworkID: itemCW1, UserID: studentS1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, itemCW1, sub.ID))
	assert.Empty(t, repo.rows)
	assert.ErrorIs(t, svc.Delete(ctx, itemCW1, sub.ID), appErrors.ErrNotFound)
}
