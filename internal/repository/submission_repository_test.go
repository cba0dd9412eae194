package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradsmart-api/internal/models"
	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

var submissionRowColumns = []string{"id", "classwork_id", "user_id", "submitted_at", "files_json", "answers_json", "grade_json", "created_at", "updated_at"}

func TestSubmissionRepositoryUpsertUsesConflictKey(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow("s1", "cw1", "u1", now, `[{"originalName":"essay.pdf","storedName":"abc.pdf","url":"/files/submissions/abc.pdf"}]`, `{"q1":"a"}`, `{"score":90,"totalPoints":100,"gradedBy":"teacher"}`, now, now)
	mock.ExpectQuery(`INSERT INTO classwork_submissions .* ON CONFLICT \(classwork_id, user_id\) DO UPDATE SET\s+submitted_at = GREATEST`).
		WithArgs(sqlmock.AnyArg(), "cw1", "u1", sqlmock.AnyArg(), sqlmock.AnyArg(), `{"q1":"a"}`, sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Submission{
		ClassworkID: "cw1",
		UserID:      "u1",
		Files:       models.SubmissionFiles{{OriginalName: "essay.pdf", StoredName: "abc.pdf"}},
		Answers:     jsondoc.MustParse(`{"q1":"a"}`),
	})
	require.NoError(t, err)
	require.NotNil(t, stored.Grade)
	assert.Equal(t, 90.0, stored.Grade.Score)
	assert.Equal(t, "essay.pdf", stored.Files[0].OriginalName)
	assert.Equal(t, `{"q1":"a"}`, string(stored.Answers.Bytes()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpsertWithoutFilesSendsNull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO classwork_submissions`).
		WithArgs(sqlmock.AnyArg(), "cw1", "u1", sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow("s1", "cw1", "u1", now, nil, nil, nil, now, now))

	stored, err := repo.Upsert(context.Background(), &models.Submission{ClassworkID: "cw1", UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, stored.Grade)
	assert.Nil(t, stored.Files)
	assert.True(t, stored.Answers.IsNull())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetGradeByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(`UPDATE classwork_submissions SET grade_json = \$3`).
		WithArgs("missing", "cw1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	_, err := repo.SetGradeByID(context.Background(), "cw1", "missing", models.SubmissionGrade{Score: 80})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetGradeForUserCreatesRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO classwork_submissions .* VALUES \(\$1, \$2, \$3, NULL, NULL, NULL, \$4, \$5, \$5\)\s+ON CONFLICT \(classwork_id, user_id\) DO UPDATE SET\s+grade_json = EXCLUDED.grade_json`).
		WithArgs(sqlmock.AnyArg(), "cw1", "u2", `{"score":75,"gradedBy":"teacher"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow("s9", "cw1", "u2", nil, nil, nil, `{"score":75,"gradedBy":"teacher"}`, now, now))

	sub, err := repo.SetGradeForUser(context.Background(), "cw1", "u2", models.SubmissionGrade{Score: 75, GradedBy: "teacher"})
	require.NoError(t, err)
	assert.Nil(t, sub.SubmittedAt)
	assert.Equal(t, 75.0, sub.Grade.Score)
	assert.Equal(t, 100.0, sub.Grade.Max())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListByClassAndUserKeysByItem(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM classwork_submissions s\s+JOIN classwork_items ci ON ci.id = s.classwork_id\s+WHERE ci.class_id = \$1 AND s.user_id = \$2`).
		WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("s1", "cw1", "u1", now, nil, nil, nil, now, now).
			AddRow("s2", "cw2", "u1", now, nil, nil, `{"score":8,"totalPoints":10}`, now, now))

	byItem, err := repo.ListByClassAndUser(context.Background(), "c1", "u1")
	require.NoError(t, err)
	require.Len(t, byItem, 2)
	assert.Nil(t, byItem["cw1"].Grade)
	assert.Equal(t, 10.0, byItem["cw2"].Grade.Max())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(`DELETE FROM classwork_submissions WHERE id = \$1 AND classwork_id = \$2`).
		WithArgs("s1", "cw1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "cw1", "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
