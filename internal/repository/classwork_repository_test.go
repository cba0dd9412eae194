package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/dto"
)

var classworkRowColumns = []string{"id", "class_id", "title", "type", "description", "due_at", "rubric_json", "extra_json", "created_by", "created_at", "updated_at"}

func TestClassworkRepositoryListByClassOrdersNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassworkRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM classwork_items WHERE class_id = \$1 ORDER BY created_at DESC, seq DESC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(classworkRowColumns).
			AddRow("cw2", "c1", "Quiz 2", "quiz", nil, now, `{"criteria":[]}`, nil, nil, now, now).
			AddRow("cw1", "c1", "Essay", "Assignment", nil, nil, nil, `{"questions":[1,2]}`, nil, now, now))

	items, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "cw2", items[0].ID)
	assert.Equal(t, `{"criteria":[]}`, string(items[0].Rubric.Bytes()))
	assert.True(t, items[1].Rubric.IsNull())
	assert.Nil(t, items[1].DueAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassworkRepositoryUpdateOnlyTouchesGivenFields(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassworkRepository(db)

	title := "Essay (revised)"
	now := time.Now().UTC()
	mock.ExpectQuery(`UPDATE classwork_items SET title = \$2, updated_at = \$3 WHERE id = \$1 RETURNING`).
		WithArgs("cw1", title, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(classworkRowColumns).AddRow("cw1", "c1", title, "assignment", nil, nil, nil, nil, nil, now, now))

	item, err := repo.Update(context.Background(), "cw1", dto.UpdateClassworkRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, item.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
