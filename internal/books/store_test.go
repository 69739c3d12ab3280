package books

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookCols = []string{"id", "title", "author", "reading_start_date", "reading_end_date", "user_id", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgresStore(conn), mock
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	start := NewDate(2024, 1, 1)

	mock.ExpectQuery(`INSERT INTO books`).
		WithArgs("Dune", "Herbert", start.Time, nil, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), created))

	b := &Book{Title: "Dune", Author: "Herbert", ReadingStartDate: &start, OwnerID: 1}
	require.NoError(t, s.Insert(context.Background(), b))
	assert.Equal(t, int64(10), b.ID)
	assert.Equal(t, created, b.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + bookColumns + " FROM books WHERE id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(int64(10), "Dune", "Herbert", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, int64(1), created))
	mock.ExpectQuery(`FROM books WHERE id`).WithArgs(int64(11)).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM books WHERE id`).WithArgs(int64(12)).WillReturnError(errors.New("conn refused"))

	b, err := s.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "2024-01-01", b.ReadingStartDate.String())
	assert.Nil(t, b.ReadingEndDate)
	assert.Equal(t, int64(1), b.OwnerID)

	_, err = s.Get(context.Background(), 11)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), 12)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAndDeleteCarryOwner(t *testing.T) {
	s, mock := newMockStore(t)
	end := NewDate(2024, 2, 1)

	mock.ExpectExec(`UPDATE books .* WHERE id = \$5 AND user_id = \$6`).
		WithArgs("Dune", "Herbert", nil, end.Time, int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE books`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM books WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM books`).WillReturnResult(sqlmock.NewResult(0, 0))

	b := &Book{ID: 10, Title: "Dune", Author: "Herbert", ReadingEndDate: &end, OwnerID: 1}
	require.NoError(t, s.Update(context.Background(), b))
	require.ErrorIs(t, s.Update(context.Background(), b), ErrNotFound)
	require.NoError(t, s.Delete(context.Background(), 10, 1))
	require.ErrorIs(t, s.Delete(context.Background(), 10, 1), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBuildsOwnerScopedQuery(t *testing.T) {
	end := NewDate(2024, 3, 1)
	tests := []struct {
		name  string
		q     Query
		query string
		args  []any
	}{
		{
			name:  "all",
			q:     Query{},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 ORDER BY id ASC",
			args:  []any{int64(1)},
		},
		{
			name:  "not read",
			q:     Query{Status: StatusNotRead},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 AND reading_end_date IS NULL ORDER BY id ASC",
			args:  []any{int64(1)},
		},
		{
			name:  "read",
			q:     Query{Status: StatusRead},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 AND reading_end_date IS NOT NULL ORDER BY id ASC",
			args:  []any{int64(1)},
		},
		{
			name:  "end date",
			q:     Query{EndDate: &end},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 AND reading_end_date = $2 ORDER BY id ASC",
			args:  []any{int64(1), end.Time},
		},
		{
			name:  "title with wildcards",
			q:     Query{TitleContains: `50%_off\`},
			query: "SELECT " + bookColumns + ` FROM books WHERE user_id = $1 AND title ILIKE $2 ESCAPE '\' ORDER BY id ASC`,
			args:  []any{int64(1), `%50\%\_off\\%`},
		},
		{
			name:  "sort start desc",
			q:     Query{SortBy: SortByStartDate, Desc: true},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 ORDER BY reading_start_date DESC, id ASC",
			args:  []any{int64(1)},
		},
		{
			name:  "sort end asc",
			q:     Query{SortBy: SortByEndDate},
			query: "SELECT " + bookColumns + " FROM books WHERE user_id = $1 ORDER BY reading_end_date ASC, id ASC",
			args:  []any{int64(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			args := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				args = append(args, sqlmock.Argument(eqArg{a}))
			}
			mock.ExpectQuery("^" + regexp.QuoteMeta(tt.query) + "$").
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(bookCols).
					AddRow(int64(3), "Dune", "Herbert", nil, nil, int64(1), time.Now()))

			got, err := s.List(context.Background(), 1, tt.q)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, int64(1), got[0].OwnerID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

type eqArg struct{ want any }

func (e eqArg) Match(v driver.Value) bool {
	if t, ok := e.want.(time.Time); ok {
		got, ok := v.(time.Time)
		return ok && got.Equal(t)
	}
	return v == e.want
}

func TestPostgresStore_ListError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM books`).WillReturnError(errors.New("timeout"))

	_, err := s.List(context.Background(), 1, Query{})
	require.ErrorContains(t, err, "list books")
}
