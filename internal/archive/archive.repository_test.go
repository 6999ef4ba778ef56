package archive

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growset/internal/poll/model"
)

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS poll_archive").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewArchiveRepository(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveInsertsSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	poll := model.Poll{ID: "abc", Title: "Lunch", CreatedAt: created, Choices: []string{"Pizza", "Tacos"}}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_archive")).
		WithArgs("abc", "Lunch", created, pq.Array([]string{"Pizza", "Tacos"}), 4, "expired").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewArchiveRepository(db).Archive(context.Background(), poll, 4, "expired"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveWithoutChoices(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_archive")).
		WithArgs("abc", "Groceries", created, pq.Array([]string{}), 0, "removed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewArchiveRepository(db).Archive(context.Background(), model.Poll{ID: "abc", Title: "Groceries", CreatedAt: created}, 0, "removed")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchivePropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_archive")).
		WillReturnError(errors.New("connection refused"))

	err = NewArchiveRepository(db).Archive(context.Background(), model.Poll{ID: "abc", Title: "x", CreatedAt: time.Now()}, 0, "removed")
	assert.EqualError(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM poll_archive")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewArchiveRepository(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
