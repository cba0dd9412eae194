package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/dto"
	"github.com/noah-isme/gradsmart-api/internal/middleware"
	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/internal/service"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

func newTestContext(method, target string, body *bytes.Buffer, caller *middleware.Caller) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if caller != nil {
		c.Set(middleware.ContextUserKey, caller)
	}
	return c, w
}

type classServiceMock struct {
	classService
	joinResult *dto.JoinClassResult
	joinErr    error
	lastCode   string
}

func (m *classServiceMock) Join(ctx context.Context, userID string, req dto.JoinClassRequest) (*dto.JoinClassResult, error) {
	m.lastCode = req.ClassCode
	return m.joinResult, m.joinErr
}

func TestClassHandlerJoinStatusCodes(t *testing.T) {
	mock := &classServiceMock{joinResult: &dto.JoinClassResult{Message: "Joined class successfully", ClassID: "c1", Created: true}}
	h := NewClassHandler(mock)

	c, w := newTestContext(http.MethodPost, "/join-class", bytes.NewBufferString(`{"classCode":"ab12cd34"}`), &middleware.Caller{UserID: "s1"})
	h.Join(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ab12cd34", mock.lastCode)
	assert.Contains(t, w.Body.String(), `"message":"Joined class successfully"`)

	mock.joinResult = &dto.JoinClassResult{Message: "Already joined", ClassID: "c1"}
	c, w = newTestContext(http.MethodPost, "/join-class", bytes.NewBufferString(`{"classCode":"AB12CD34"}`), &middleware.Caller{UserID: "s1"})
	h.Join(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Already joined")
}

func TestClassHandlerJoinErrors(t *testing.T) {
	h := NewClassHandler(&classServiceMock{joinErr: appErrors.Clone(appErrors.ErrConflict, "You are the owner of this class")})

	c, w := newTestContext(http.MethodPost, "/join-class", bytes.NewBufferString(`{"classCode":"X"}`), nil)
	h.Join(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	c, w = newTestContext(http.MethodPost, "/join-class", bytes.NewBufferString(`{"classCode":`), &middleware.Caller{UserID: "s1"})
	h.Join(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	c, w = newTestContext(http.MethodPost, "/join-class", bytes.NewBufferString(`{"classCode":"X"}`), &middleware.Caller{UserID: "t1"})
	h.Join(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "You are the owner of this class")
}

type submissionServiceMock struct {
	submissionService
	lastSubmit dto.SubmitRequest
	contents   []string
	lastGrade  dto.GradeSubmissionRequest
}

func (m *submissionServiceMock) Submit(ctx context.Context, req dto.SubmitRequest) (*models.Submission, error) {
	m.lastSubmit = req
	for _, upload := range req.Uploads {
		r, err := upload.Open()
		if err != nil {
			return nil, err
		}
		buf := &bytes.Buffer{}
		_, _ = buf.ReadFrom(r)
		_ = r.Close()
		m.contents = append(m.contents, buf.String())
	}
	return &models.Submission{ID: "sub-1", ClassworkID: req.ClassworkID, UserID: req.UserID, Answers: req.Answers}, nil
}

func (m *submissionServiceMock) Grade(ctx context.Context, req dto.GradeSubmissionRequest) (*models.Submission, error) {
	m.lastGrade = req
	return &models.Submission{ID: req.SubmissionID}, nil
}

func (m *submissionServiceMock) OpenFile(ctx context.Context, storedName, token string) (*os.File, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
}

func TestSubmissionHandlerSubmitMultipart(t *testing.T) {
	mock := &submissionServiceMock{}
	h := NewSubmissionHandler(mock)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("attachments[]", "essay.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("my essay"))
	require.NoError(t, writer.WriteField("answers", "plain text answer"))
	require.NoError(t, writer.Close())

	c, w := newTestContext(http.MethodPost, "/classwork/cw1/submit", body, &middleware.Caller{UserID: "s1"})
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Params = gin.Params{{Key: "id", Value: "cw1"}}
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cw1", mock.lastSubmit.ClassworkID)
	assert.Equal(t, "s1", mock.lastSubmit.UserID)
	require.Len(t, mock.lastSubmit.Uploads, 1)
	assert.Equal(t, "essay.txt", mock.lastSubmit.Uploads[0].OriginalName)
	assert.Equal(t, []string{"my essay"}, mock.contents)
	assert.Equal(t, `"plain text answer"`, string(mock.lastSubmit.Answers.Bytes()))
}

func TestSubmissionHandlerSubmitJSON(t *testing.T) {
	mock := &submissionServiceMock{}
	h := NewSubmissionHandler(mock)

	c, w := newTestContext(http.MethodPost, "/classwork/cw1/submit", bytes.NewBufferString(`{"answers":{"q1":["a","b"]}}`), &middleware.Caller{UserID: "s1"})
	c.Params = gin.Params{{Key: "id", Value: "cw1"}}
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, mock.lastSubmit.Uploads)
	assert.Equal(t, `{"q1":["a","b"]}`, string(mock.lastSubmit.Answers.Bytes()))
}

func TestSubmissionHandlerGradeUsesPathParams(t *testing.T) {
	mock := &submissionServiceMock{}
	h := NewSubmissionHandler(mock)

	c, w := newTestContext(http.MethodPost, "/classwork/cw1/submissions/sub-9/grade", bytes.NewBufferString(`{"score":88,"userId":"s2"}`), &middleware.Caller{UserID: "t1"})
	c.Params = gin.Params{{Key: "id", Value: "cw1"}, {Key: "submissionId", Value: "sub-9"}}
	h.Grade(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cw1", mock.lastGrade.ClassworkID)
	assert.Equal(t, "sub-9", mock.lastGrade.SubmissionID)
	assert.Equal(t, "s2", mock.lastGrade.UserID)
	require.NotNil(t, mock.lastGrade.Score)
	assert.Equal(t, 88.0, *mock.lastGrade.Score)
}

func TestSubmissionHandlerFileForbidden(t *testing.T) {
	h := NewSubmissionHandler(&submissionServiceMock{})

	c, w := newTestContext(http.MethodGet, "/files/submissions/abc.pdf?token=bad", nil, nil)
	c.Params = gin.Params{{Key: "storedName", Value: "abc.pdf"}}
	h.File(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type gradeSummaryMock struct {
	gradeSummaryService
	lastStudent string
}

func (m *gradeSummaryMock) Summary(ctx context.Context, classID, studentID string) (*models.GradeSummary, error) {
	m.lastStudent = studentID
	return models.EmptyGradeSummary(), nil
}

type gradebookMock struct {
	gradebookService
	cfg *models.GradebookConfig
}

func (m *gradebookMock) Get(ctx context.Context, classID string) (*models.GradebookConfig, error) {
	return m.cfg, nil
}

func (m *gradebookMock) Export(ctx context.Context, classID, format string) (*service.GradebookExport, error) {
	return &service.GradebookExport{FileName: "gradebook-" + classID + ".csv", ContentType: "text/csv", Data: []byte("Student\n")}, nil
}

type teachingMock map[string]bool

func (m teachingMock) CanTeach(ctx context.Context, classID, userID string) (bool, error) {
	return m[classID+"/"+userID], nil
}

func TestGradeHandlerSummaryAccess(t *testing.T) {
	summaries := &gradeSummaryMock{}
	h := NewGradeHandler(summaries, &gradebookMock{}, teachingMock{"c1/t1": true})

	c, w := newTestContext(http.MethodGet, "/classes/c1/grades/summary", nil, &middleware.Caller{UserID: "s1"})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", summaries.lastStudent)

	c, w = newTestContext(http.MethodGet, "/classes/c1/grades/summary?studentId=s2", nil, &middleware.Caller{UserID: "s1"})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Summary(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newTestContext(http.MethodGet, "/classes/c1/grades/summary?studentId=s2", nil, &middleware.Caller{UserID: "t1"})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s2", summaries.lastStudent)
	assert.JSONEq(t, `{"data":{"items":[],"categories":{},"overall":{"earned":0,"possible":0,"percentRaw":null,"weightingApplied":false}}}`, w.Body.String())
}

func TestGradeHandlerGradebookNullAndExport(t *testing.T) {
	gradebook := &gradebookMock{}
	h := NewGradeHandler(&gradeSummaryMock{}, gradebook, teachingMock{})

	c, w := newTestContext(http.MethodGet, "/classes/c1/gradebook", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.GetGradebook(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())

	gradebook.cfg = &models.GradebookConfig{ClassID: "c1", MidtermTables: jsondoc.MustParse(`[{"k":1}]`)}
	c, w = newTestContext(http.MethodGet, "/classes/c1/gradebook", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.GetGradebook(c)
	assert.Contains(t, w.Body.String(), `"midtermTables":[{"k":1}]`)

	c, w = newTestContext(http.MethodGet, "/classes/c1/gradebook/export?format=csv", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.ExportGradebook(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="gradebook-c1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student\n", w.Body.String())
}

type notificationServiceMock struct {
	notificationService
	events chan models.Notification
}

func (m *notificationServiceMock) Subscribe(ctx context.Context, userID string) (<-chan models.Notification, func() error, error) {
	if m.events == nil {
		return nil, func() error { return nil }, nil
	}
	return m.events, func() error { return nil }, nil
}

// streamRecorder satisfies http.CloseNotifier, which gin's Context.Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func newStreamContext(userID string) (*gin.Context, *streamRecorder) {
	gin.SetMode(gin.TestMode)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/notifications/stream", nil)
	c.Set(middleware.ContextUserKey, &middleware.Caller{UserID: userID})
	return c, w
}

type streamCounter struct{ opened, closed int }

func (s *streamCounter) StreamOpened() { s.opened++ }
func (s *streamCounter) StreamClosed() { s.closed++ }

func TestNotificationHandlerStreamPingsUntilLimit(t *testing.T) {
	counter := &streamCounter{}
	h := NewNotificationHandler(&notificationServiceMock{}, counter, StreamOptions{PingInterval: time.Millisecond, MaxPings: 3})

	c, w := newStreamContext("u1")
	h.Stream(c)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, ": connected\n\n"))
	assert.Equal(t, 3, strings.Count(body, "event:ping"))
	assert.Contains(t, body, `"userId":"u1"`)
	assert.Equal(t, 1, counter.opened)
	assert.Equal(t, 1, counter.closed)
}

func TestNotificationHandlerStreamDeliversNotifications(t *testing.T) {
	events := make(chan models.Notification, 1)
	events <- models.Notification{ID: "n1", UserID: "u1", Type: models.NotificationGraded, Message: "graded"}
	close(events)
	h := NewNotificationHandler(&notificationServiceMock{events: events}, &streamCounter{}, StreamOptions{PingInterval: 5 * time.Millisecond, MaxPings: 1})

	c, w := newStreamContext("u1")
	h.Stream(c)

	body := w.Body.String()
	assert.Contains(t, body, "event:notification")
	assert.Contains(t, body, `"id":"n1"`)
	assert.Equal(t, 1, strings.Count(body, "event:ping"))
}

type authServiceMock struct {
	authService
	lastReq models.RegisterRequest
	err     error
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.RegisterResponse{Status: "success", UserID: "u-1", Role: models.RoleStudent}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)

	c, w := newTestContext(http.MethodPost, "/register", bytes.NewBufferString(`{"name":"Ana Reyes","email":"ana@example.com","password":"secret1"}`), nil)
	h.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ana@example.com", mock.lastReq.Email)
	assert.Contains(t, w.Body.String(), `"userId":"u-1"`)

	mock.err = appErrors.Clone(appErrors.ErrConflict, "Email already registered")
	c, w = newTestContext(http.MethodPost, "/register", bytes.NewBufferString(`{"email":"ana@example.com","password":"secret1"}`), nil)
	h.Register(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newTestContext(http.MethodPost, "/register", bytes.NewBufferString(`{`), nil)
	h.Register(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type academicYearServiceMock struct {
	academicYearService
	lastCreate dto.CreateAcademicYearRequest
	content    string
}

func (m *academicYearServiceMock) Create(ctx context.Context, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error) {
	m.lastCreate = req
	if req.File != nil {
		r, err := req.File.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close() //nolint:errcheck
		body, _ := io.ReadAll(r)
		m.content = string(body)
	}
	return &models.AcademicYear{ID: "ay1", YearName: req.YearName, Version: "v1", Status: models.AcademicYearActive}, nil
}

func (m *academicYearServiceMock) Activate(ctx context.Context, id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
}

func TestAcademicYearHandlerCreateMultipart(t *testing.T) {
	mock := &academicYearServiceMock{}
	h := NewAcademicYearHandler(mock)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "calendar.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, writer.WriteField("yearName", "2026-2027"))
	require.NoError(t, writer.WriteField("notes", "first draft"))
	require.NoError(t, writer.WriteField("setAsActive", "true"))
	require.NoError(t, writer.Close())

	c, w := newTestContext(http.MethodPost, "/admin/academic-years", body, &middleware.Caller{UserID: "admin-1", Role: models.RoleAdmin})
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2026-2027", mock.lastCreate.YearName)
	assert.Equal(t, "first draft", mock.lastCreate.Notes)
	assert.True(t, mock.lastCreate.SetAsActive)
	assert.Equal(t, "admin-1", mock.lastCreate.UploaderID)
	require.NotNil(t, mock.lastCreate.File)
	assert.Equal(t, "calendar.pdf", mock.lastCreate.File.OriginalName)
	assert.Equal(t, "%PDF-1.7", mock.content)
}

func TestAcademicYearHandlerActivateNotFound(t *testing.T) {
	h := NewAcademicYearHandler(&academicYearServiceMock{})

	c, w := newTestContext(http.MethodPut, "/admin/academic-years/x/activate", nil, &middleware.Caller{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.Activate(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
