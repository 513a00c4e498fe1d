package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDepartmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"dept_code", "dept_name", "created_at", "updated_at"}).
		AddRow("CE", "Civil Engineering", now, now).
		AddRow("CO", "Computer Engineering", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT dept_code, dept_name, created_at, updated_at FROM departments ORDER BY dept_code`)).
		WillReturnRows(rows)

	departments, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "CO", departments[1].DeptCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryFindByCodeMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery("FROM departments WHERE dept_code").
		WithArgs("XX").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "XX")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectExec("INSERT INTO departments").
		WithArgs("ME", "Mechanical", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), &models.Department{DeptCode: "ME", DeptName: "Mechanical"}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE departments SET dept_name = $2")).
		WithArgs("ME", "Mechanical Engineering", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), &models.Department{DeptCode: "ME", DeptName: "Mechanical Engineering"}))

	mock.ExpectExec("DELETE FROM departments").
		WithArgs("ME").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "ME"), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
