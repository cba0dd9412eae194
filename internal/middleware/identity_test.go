package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

const (
	legacyUserA = "9c0e7a41-2b3d-4c5e-8f60-718293a4b5c6"
	legacyUserB = "9c0e7a41-2b3d-4c5e-8f60-718293a4b5c7"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token == "good" {
		return &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type stubChecker struct {
	allowed map[string]bool
	err     error
}

func (s stubChecker) CanTeach(ctx context.Context, classID, userID string) (bool, error) {
	return s.allowed[classID+"/"+userID], s.err
}

func newIdentityRouter(allowLegacy bool, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(stubValidator{}, IdentityOptions{AllowLegacy: allowLegacy}))
	handlers := append([]gin.HandlerFunc{RequireIdentity()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		caller, _ := CurrentCaller(c)
		c.JSON(http.StatusOK, gin.H{"user": caller.UserID, "legacy": caller.Legacy})
	})
	r.GET("/classes/:id/whoami", handlers...)
	return r
}

func TestIdentityBearerToken(t *testing.T) {
	r := newIdentityRouter(false)
	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","legacy":false}`, w.Body.String())
	assert.Empty(t, w.Header().Get("Deprecation"))
}

func TestIdentityRejectsInvalidToken(t *testing.T) {
	r := newIdentityRouter(true)
	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami", nil)
	req.Header.Set("Authorization", "Bearer bad")
	req.Header.Set("X-User-Id", "u2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityLegacyHeaderAndQuery(t *testing.T) {
	r := newIdentityRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami", nil)
	req.Header.Set("x-user-id", legacyUserA)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"`+legacyUserA+`","legacy":true}`, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("Deprecation"))

	req = httptest.NewRequest(http.MethodGet, "/classes/c1/whoami?userId="+legacyUserB, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"`+legacyUserB+`","legacy":true}`, w.Body.String())
}

func TestIdentityLegacyIgnoresNonUUID(t *testing.T) {
	r := newIdentityRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami?userId=42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, w.Header().Get("Deprecation"))
}

func TestIdentityLegacyDisabledMeansMissingIdentity(t *testing.T) {
	r := newIdentityRouter(false)
	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami", nil)
	req.Header.Set("x-user-id", legacyUserA)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "missing user id")
}

func TestRequireClassTeacher(t *testing.T) {
	checker := stubChecker{allowed: map[string]bool{"c1/u1": true}}
	r := newIdentityRouter(true, RequireClassTeacher(checker, ClassParam("id")))

	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/classes/c2/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireClassTeacherPropagatesResolverError(t *testing.T) {
	resolve := func(c *gin.Context) (string, error) {
		return "", appErrors.Clone(appErrors.ErrNotFound, "classwork not found")
	}
	r := newIdentityRouter(true, RequireClassTeacher(stubChecker{err: errors.New("unused")}, resolve))

	req := httptest.NewRequest(http.MethodGet, "/classes/c1/whoami?userId="+legacyUserA, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(stubValidator{}, IdentityOptions{AllowLegacy: true}))
	r.GET("/admin", RequireRoles(models.RoleAdmin, models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin-only", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		path   string
		header map[string]string
		want   int
	}{
		{"/admin", map[string]string{"Authorization": "Bearer good"}, http.StatusNoContent},
		{"/admin-only", map[string]string{"Authorization": "Bearer good"}, http.StatusForbidden},
		{"/admin", map[string]string{"x-user-id": legacyUserA}, http.StatusForbidden},
		{"/admin", nil, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		for k, v := range tc.header {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}
