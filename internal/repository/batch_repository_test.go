package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

func TestBatchRepositoryListWithCounts(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "dept_code", "class_name", "academic_year", "semester", "created_at", "updated_at", "student_count"}).
		AddRow("batch-1", "CO", "3", "2024-25", 5, now, now, 62)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND b.dept_code = $1 AND b.semester = $2\nGROUP BY b.id")).
		WithArgs("CO", 5).
		WillReturnRows(rows)

	batches, err := repo.List(context.Background(), models.BatchFilter{DeptCode: "CO", Semester: 5})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 62, batches[0].StudentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryListStudents(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "roll_no", "enrollment_no", "name", "sub_batch", "created_at", "updated_at"}).
		AddRow("stu-1", "R1", "E1", "Asha", 1, now, now).
		AddRow("stu-2", "R2", "E2", "Vikram", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE bs.batch_id = $1\nORDER BY s.roll_no")).
		WithArgs("batch-1").
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.NotNil(t, students[0].SubBatch)
	assert.Equal(t, 1, *students[0].SubBatch)
	assert.Nil(t, students[1].SubBatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryRemoveMissingStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("DELETE FROM batch_students").
		WithArgs("batch-1", "stu-9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RemoveStudent(context.Background(), "batch-1", "stu-9"), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
