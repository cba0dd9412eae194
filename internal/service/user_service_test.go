package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/models"
	appErrors "github.com/noah-isme/gradsmart-api/pkg/errors"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func TestUserServiceProfileFallsBackToFirstLast(t *testing.T) {
	first, last := "Grace", "Hopper"
	repo := &mockUserRepo{users: map[string]*models.User{
		student1: {ID: student1, FirstName: &first, LastName: &last, Email: "grace@example.com"},
	}}
	svc := NewUserService(repo, nil)

	profile, err := svc.Profile(context.Background(), student1)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", profile.Name)
	assert.Equal(t, models.RoleStudent, profile.Role)
}

func TestUserServiceProfileNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil)

	_, err := svc.Profile(context.Background(), studentS2)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Profile(context.Background(), "42")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
