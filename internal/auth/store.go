package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// UserStore provides persistence for user accounts.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a UserStore and runs auth migrations.
func NewUserStore(ctx context.Context, db *store.SQLiteStore) (*UserStore, error) {
	if err := db.Migrate(ctx, "auth", migrations); err != nil {
		return nil, fmt.Errorf("auth migrations: %w", err)
	}
	return &UserStore{db: db.DB()}, nil
}

// Insert adds a user and sets its ID.
func (s *UserStore) Insert(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, full_name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, string(u.Role), u.FullName, u.Email, u.Phone, u.CreatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return store.Fail("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Fail("insert user id", err)
	}
	u.ID = id
	return nil
}

// Get returns a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id), "get user")
}

// GetByUsername returns a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username), "get user by username")
}

// List returns all users ordered by full name.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY full_name, username`)
	if err != nil {
		return nil, store.Fail("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, store.Fail("scan user", err)
		}
		users = append(users, *u)
	}
	return users, store.Fail("list users", rows.Err())
}

// ListByRole returns the users holding role.
func (s *UserStore) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY full_name, username`, string(role))
	if err != nil {
		return nil, store.Fail("list users by role", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, store.Fail("scan user", err)
		}
		users = append(users, *u)
	}
	return users, store.Fail("list users by role", rows.Err())
}

// Update writes a user's profile fields and role.
func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = ?, full_name = ?, email = ?, phone = ? WHERE id = ?`,
		string(u.Role), u.FullName, u.Email, u.Phone, u.ID,
	)
	if err != nil {
		return store.Fail("update user", err)
	}
	return requireRow(res, "update user")
}

// UpdatePassword replaces a user's password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return store.Fail("update password", err)
	}
	return requireRow(res, "update password")
}

// Delete removes a user by ID. Assignment rows cascade.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return store.Fail("delete user", err)
	}
	return requireRow(res, "delete user")
}

// UsernameExists reports whether username is taken.
func (s *UserStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, store.Fail("check username", err)
	}
	return n > 0, nil
}

// Count returns the total number of users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, store.Fail("count users", err)
	}
	return count, nil
}

// userColumns is the shared SELECT column list for user queries.
const userColumns = `id, username, password_hash, role, full_name, email, phone, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInto(sc rowScanner) (*models.User, error) {
	var u models.User
	var role string
	if err := sc.Scan(&u.ID, &u.Username, &u.PasswordHash, &role,
		&u.FullName, &u.Email, &u.Phone, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *UserStore) scanUser(row *sql.Row, op string) (*models.User, error) {
	u, err := scanInto(row)
	if err != nil {
		return nil, store.Fail(op, err)
	}
	return u, nil
}

func scanUserRow(rows *sql.Rows) (*models.User, error) {
	return scanInto(rows)
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Fail(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

// migrations for the auth module.
var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create users table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE users (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					username      TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					role          TEXT NOT NULL CHECK (role IN ('ADMIN', 'CAREGIVER', 'HEALTHCARE', 'FAMILY')),
					full_name     TEXT NOT NULL DEFAULT '',
					email         TEXT NOT NULL DEFAULT '',
					phone         TEXT NOT NULL DEFAULT '',
					created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index users by role",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`)
			return err
		},
	},
}
