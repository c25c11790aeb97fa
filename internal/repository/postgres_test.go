package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"todo-api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "title", "description", "is_completed", "created_at", "updated_at"}

var (
	selectByID  = regexp.QuoteMeta(`SELECT ` + todoColumns + ` FROM todos WHERE id = $1`)
	selectForUp = regexp.QuoteMeta(`SELECT ` + todoColumns + ` FROM todos WHERE id = $1 FOR UPDATE`)
)

func newMockStore(t *testing.T, opts ...Option) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresStore(db, opts...), mock
}

func TestPostgresCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t, WithClock(func() time.Time { return now }), WithIDGenerator(func() string { return "id-1" }))

	mock.ExpectExec(`INSERT INTO todos`).
		WithArgs("id-1", "Buy milk", "2 litres", false, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	td, err := s.Create(ctx, models.TodoCreate{Title: "Buy milk", Description: strPtr("2 litres")})
	require.NoError(t, err)
	require.Equal(t, "id-1", td.ID)
	require.Equal(t, now, td.CreatedAt)
	require.Equal(t, td.CreatedAt, td.UpdatedAt)
}

func TestPostgresCreateRejectsInvalidInputWithoutQuerying(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.Create(context.Background(), models.TodoCreate{Title: ""})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO todos`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.Create(context.Background(), models.TodoCreate{Title: "t"})
	require.ErrorIs(t, err, errIDCollision)
}

func TestPostgresGet(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	mock.ExpectQuery(selectByID).WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("id-1", "t", nil, true, created, created))
	mock.ExpectQuery(selectByID).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	td, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Nil(t, td.Description)
	require.True(t, td.IsCompleted)
	require.Equal(t, time.UTC, td.CreatedAt.Location())
	require.True(t, created.Equal(td.CreatedAt))

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresUpdateCommits(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(time.Minute)
	s, mock := newMockStore(t, WithClock(func() time.Time { return later }))

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUp).WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("id-1", "old", "d", false, created, created))
	mock.ExpectExec(`UPDATE todos SET`).
		WithArgs("new", nil, true, later, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	done := true
	td, err := s.Update(ctx, "id-1", models.TodoUpdate{
		Title:       strPtr("new"),
		Description: models.NullableString{Set: true},
		IsCompleted: &done,
	})
	require.NoError(t, err)
	require.Equal(t, "new", td.Title)
	require.Nil(t, td.Description)
	require.Equal(t, later, td.UpdatedAt)
	require.Equal(t, created, td.CreatedAt)
}

func TestPostgresUpdateRollsBackOnValidationError(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUp).WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("id-1", "keep", nil, false, created, created))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), "id-1", models.TodoUpdate{Title: strPtr("")})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestPostgresToggleMissingRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUp).WithArgs("missing").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectRollback()

	_, err := s.Toggle(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresToggleKeepsUpdatedAtMonotonic(t *testing.T) {
	updated := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t, WithClock(func() time.Time { return updated.Add(-time.Hour) }))

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUp).WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("id-1", "t", nil, false, updated, updated))
	mock.ExpectExec(`UPDATE todos SET`).
		WithArgs("t", nil, true, updated, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	td, err := s.Toggle(context.Background(), "id-1")
	require.NoError(t, err)
	require.True(t, td.IsCompleted)
	require.Equal(t, updated, td.UpdatedAt)
}

func TestPostgresDelete(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM todos WHERE id = $1`)).WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM todos WHERE id = $1`)).WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(ctx, "id-1"))
	require.ErrorIs(t, s.Delete(ctx, "missing"), models.ErrNotFound)
}

func TestPostgresListAllOrdersBySeq(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM todos ORDER BY seq ASC`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b", "second", "d", false, created, created).
			AddRow("a", "first", nil, true, created, created))

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "b", all[0].ID)
	require.Equal(t, "d", *all[0].Description)
	require.Equal(t, "a", all[1].ID)
	require.Nil(t, all[1].Description)
}

func TestPostgresListAllPropagatesErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM todos ORDER BY seq ASC`).WillReturnError(sql.ErrConnDone)

	_, err := s.ListAll(context.Background())
	require.ErrorIs(t, err, sql.ErrConnDone)
}
