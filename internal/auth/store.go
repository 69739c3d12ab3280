package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"booktracker/internal/db"
)

// Store is the Postgres-backed credential store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	const q = `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at,
		       COALESCE(string_agg(r.name, ',' ORDER BY r.id), '')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.username = $1
		GROUP BY u.id
	`
	a := &Account{}
	var roles string
	err := s.db.QueryRowContext(ctx, q, username).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt, &roles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %q: %w", username, err)
	}
	a.Roles, err = splitRoles(roles)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func splitRoles(s string) ([]Role, error) {
	if s == "" {
		return []Role{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Role, 0, len(parts))
	for _, p := range parts {
		r := Role(p)
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrRoleRegistryCorrupt, p)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (s *Store) exists(ctx context.Context, q, arg string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, q, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Create inserts the account and its role bindings in one transaction. The
// returned account carries the generated id and creation time. A unique
// constraint hit is reported as ErrDuplicateUsername or ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, acc *Account, roles []RoleRecord) (*Account, error) {
	if len(roles) == 0 {
		return nil, errors.New("account needs at least one role")
	}
	out := *acc
	out.Roles = make([]Role, 0, len(roles))
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		out.Roles = append(out.Roles, r.Name)
		ids = append(ids, r.ID)
	}

	err := db.WithTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		const insertUser = `
			INSERT INTO users (username, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`
		if err := tx.QueryRowContext(ctx, insertUser, acc.Username, acc.Email, acc.PasswordHash).
			Scan(&out.ID, &out.CreatedAt); err != nil {
			return err
		}
		const bindRoles = `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, unnest($2::int[])
		`
		_, err := tx.ExecContext(ctx, bindRoles, out.ID, pq.Array(ids))
		return err
	})
	if err != nil {
		if c, ok := db.UniqueViolation(err); ok {
			switch c {
			case "users_username_key":
				return nil, ErrDuplicateUsername
			case "users_email_key":
				return nil, ErrDuplicateEmail
			}
		}
		return nil, fmt.Errorf("create account %q: %w", acc.Username, err)
	}
	return &out, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]RoleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []RoleRecord
	for rows.Next() {
		var rec RoleRecord
		if err := rows.Scan(&rec.ID, &rec.Name); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
