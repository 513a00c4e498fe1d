package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

var subjectRowColumns = []string{"id", "course_code", "dept_code", "semester_number", "subject_code", "subject_name", "created_at", "updated_at"}

func TestSubjectRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(subjectRowColumns).AddRow("sub-1", "CO", "CO", 5, "22516", "Operating Systems", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE 1=1 AND dept_code = $1 AND semester_number = $2 AND (LOWER(subject_name) LIKE $3 OR LOWER(subject_code) LIKE $3) ORDER BY semester_number, subject_code")).
		WithArgs("CO", 5, "%operating%").
		WillReturnRows(rows)

	subjects, err := repo.List(context.Background(), models.SubjectFilter{DeptCode: "CO", SemesterNumber: 5, Search: "Operating"})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Operating Systems", subjects[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByBatch(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN assignments a ON a.subject_id = s.id\nWHERE a.batch_id = $1")).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows(subjectRowColumns).AddRow("sub-1", "CO", "CO", 5, "22516", "OS", now, now))

	subjects, err := repo.ListByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("INSERT INTO subjects").
		WithArgs(sqlmock.AnyArg(), "CO", "CO", 5, "22516", "OS", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	subject := &models.Subject{CourseCode: "CO", DeptCode: "CO", SemesterNumber: 5, SubjectCode: "22516", SubjectName: "OS"}
	require.NoError(t, repo.Create(context.Background(), subject))
	assert.NotEmpty(t, subject.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
