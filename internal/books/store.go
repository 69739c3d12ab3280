package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Store is the record store the Guard delegates to. It does no ownership
// checks of its own beyond the owner predicate on writes and listings.
type Store interface {
	Insert(ctx context.Context, b *Book) error
	Get(ctx context.Context, id int64) (*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id, ownerID int64) error
	List(ctx context.Context, ownerID int64, q Query) ([]Book, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const bookColumns = "id, title, author, reading_start_date, reading_end_date, user_id, created_at"

func (s *PostgresStore) Insert(ctx context.Context, b *Book) error {
	const q = `
		INSERT INTO books (title, author, reading_start_date, reading_end_date, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	row := s.db.QueryRowContext(ctx, q,
		b.Title,
		b.Author,
		dateArg(b.ReadingStartDate),
		dateArg(b.ReadingEndDate),
		b.OwnerID,
	)
	if err := row.Scan(&b.ID, &b.CreatedAt); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id)
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// Update writes the mutable fields. The owner predicate means a book that
// changed hands or vanished since it was read is reported as ErrNotFound.
func (s *PostgresStore) Update(ctx context.Context, b *Book) error {
	const q = `
		UPDATE books
		SET title = $1, author = $2, reading_start_date = $3, reading_end_date = $4
		WHERE id = $5 AND user_id = $6
	`
	res, err := s.db.ExecContext(ctx, q,
		b.Title,
		b.Author,
		dateArg(b.ReadingStartDate),
		dateArg(b.ReadingEndDate),
		b.ID,
		b.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return expectOneRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID int64, q Query) ([]Book, error) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{ownerID}
	argIdx := 2

	switch q.Status {
	case StatusNotRead:
		clauses = append(clauses, "reading_end_date IS NULL")
	case StatusRead:
		clauses = append(clauses, "reading_end_date IS NOT NULL")
	}
	if q.EndDate != nil {
		clauses = append(clauses, "reading_end_date = $"+itoa(argIdx))
		args = append(args, q.EndDate.Time)
		argIdx++
	}
	if q.TitleContains != "" {
		clauses = append(clauses, "title ILIKE $"+itoa(argIdx)+` ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.TitleContains)+"%")
		argIdx++
	}

	order := "id ASC"
	switch q.SortBy {
	case SortByStartDate, SortByEndDate:
		dir := " ASC"
		if q.Desc {
			dir = " DESC"
		}
		order = string(q.SortBy) + dir + ", id ASC"
	}

	query := "SELECT " + bookColumns + " FROM books WHERE " +
		strings.Join(clauses, " AND ") + " ORDER BY " + order

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var result []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var b Book
	var start, end sql.NullTime
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &start, &end, &b.OwnerID, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ReadingStartDate = dateFromNull(start)
	b.ReadingEndDate = dateFromNull(end)
	return &b, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
