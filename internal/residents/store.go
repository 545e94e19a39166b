// Package residents manages resident records and the care-team
// assignments that grant non-admin users access to them.
package residents

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// Store provides database access for residents and assignments.
type Store struct {
	sqlite *store.SQLiteStore
	db     *sql.DB
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewStore creates a Store and runs resident migrations. The auth
// migrations must already have been applied.
func NewStore(ctx context.Context, db *store.SQLiteStore) (*Store, error) {
	if err := db.Migrate(ctx, "residents", migrations()); err != nil {
		return nil, fmt.Errorf("residents migrations: %w", err)
	}
	return &Store{sqlite: db, db: db.DB()}, nil
}

const residentColumns = `r.id, r.first_name, r.last_name, r.date_of_birth, r.gender, r.address,
	r.emergency_contact, r.emergency_phone, r.medical_conditions, r.medications, r.allergies, r.created_at`

// List returns every resident ordered by last then first name.
func (s *Store) List(ctx context.Context) ([]models.Resident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+residentColumns+` FROM residents r
		ORDER BY r.last_name, r.first_name`)
	if err != nil {
		return nil, store.Fail("list residents", err)
	}
	return scanResidents(rows, "list residents")
}

// ListByUser returns the residents assigned to userID ordered by last then
// first name.
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.Resident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+residentColumns+` FROM residents r
		JOIN resident_access a ON a.resident_id = r.id
		WHERE a.user_id = ?
		ORDER BY r.last_name, r.first_name`, userID)
	if err != nil {
		return nil, store.Fail("list residents by user", err)
	}
	return scanResidents(rows, "list residents by user")
}

// Get returns a resident by ID.
func (s *Store) Get(ctx context.Context, id int64) (*models.Resident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM residents r WHERE r.id = ?`, id)
	r, err := scanResident(row)
	if err != nil {
		return nil, store.Fail("get resident", err)
	}
	return r, nil
}

// Insert adds a resident and sets its ID.
func (s *Store) Insert(ctx context.Context, r *models.Resident) error {
	return insertResident(ctx, s.db, r)
}

// InsertAssigned adds a resident and assigns userID to it in one
// transaction. On error nothing is written and r.ID is left zero.
func (s *Store) InsertAssigned(ctx context.Context, r *models.Resident, userID int64) error {
	err := s.sqlite.Tx(ctx, func(tx *sql.Tx) error {
		if err := insertResident(ctx, tx, r); err != nil {
			return err
		}
		return assign(ctx, tx, r.ID, userID)
	})
	if err != nil {
		r.ID = 0
		return err
	}
	return nil
}

func insertResident(ctx context.Context, ex execer, r *models.Resident) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO residents (
			first_name, last_name, date_of_birth, gender, address, emergency_contact,
			emergency_phone, medical_conditions, medications, allergies, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FirstName, r.LastName, r.DateOfBirth, string(r.Gender), r.Address, r.EmergencyContact,
		r.EmergencyPhone, r.MedicalConditions, r.Medications, r.Allergies, r.CreatedAt,
	)
	if err != nil {
		return store.Fail("insert resident", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Fail("insert resident id", err)
	}
	r.ID = id
	return nil
}

// Update writes every mutable field of r.
func (s *Store) Update(ctx context.Context, r *models.Resident) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE residents SET
			first_name = ?, last_name = ?, date_of_birth = ?, gender = ?, address = ?,
			emergency_contact = ?, emergency_phone = ?, medical_conditions = ?,
			medications = ?, allergies = ?
		WHERE id = ?`,
		r.FirstName, r.LastName, r.DateOfBirth, string(r.Gender), r.Address,
		r.EmergencyContact, r.EmergencyPhone, r.MedicalConditions,
		r.Medications, r.Allergies, r.ID,
	)
	if err != nil {
		return store.Fail("update resident", err)
	}
	return requireRow(res, "update resident")
}

// Delete removes a resident. Assignments, readings and alerts cascade.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM residents WHERE id = ?`, id)
	if err != nil {
		return store.Fail("delete resident", err)
	}
	return requireRow(res, "delete resident")
}

// Assign grants userID access to residentID. Assigning twice is a no-op.
func (s *Store) Assign(ctx context.Context, residentID, userID int64) error {
	return assign(ctx, s.db, residentID, userID)
}

func assign(ctx context.Context, ex execer, residentID, userID int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR IGNORE INTO resident_access (user_id, resident_id) VALUES (?, ?)`,
		userID, residentID,
	)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return models.Invalid("unknown user %d or resident %d", userID, residentID)
		}
		return store.Fail("assign resident", err)
	}
	return nil
}

// Unassign revokes userID's access to residentID.
func (s *Store) Unassign(ctx context.Context, residentID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM resident_access WHERE user_id = ? AND resident_id = ?`,
		userID, residentID,
	)
	if err != nil {
		return store.Fail("unassign resident", err)
	}
	return requireRow(res, "unassign resident")
}

// UsersWithAccess returns the users assigned to residentID.
func (s *Store) UsersWithAccess(ctx context.Context, residentID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.role, u.full_name, u.email, u.phone, u.created_at
		FROM users u
		JOIN resident_access a ON a.user_id = u.id
		WHERE a.resident_id = ?
		ORDER BY u.full_name, u.username`, residentID)
	if err != nil {
		return nil, store.Fail("list care team", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &role, &u.FullName, &u.Email, &u.Phone, &u.CreatedAt); err != nil {
			return nil, store.Fail("scan care team", err)
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, store.Fail("list care team", rows.Err())
}

// HasAccess reports whether an assignment row exists for the pair.
func (s *Store) HasAccess(ctx context.Context, userID, residentID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM resident_access WHERE user_id = ? AND resident_id = ?`,
		userID, residentID,
	).Scan(&n)
	if err != nil {
		return false, store.Fail("check resident access", err)
	}
	return n > 0, nil
}

// Count returns the number of residents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM residents`).Scan(&n); err != nil {
		return 0, store.Fail("count residents", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResident(sc rowScanner) (*models.Resident, error) {
	var r models.Resident
	var gender string
	if err := sc.Scan(&r.ID, &r.FirstName, &r.LastName, &r.DateOfBirth, &gender, &r.Address,
		&r.EmergencyContact, &r.EmergencyPhone, &r.MedicalConditions, &r.Medications,
		&r.Allergies, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Gender = models.Gender(gender)
	return &r, nil
}

func scanResidents(rows *sql.Rows, op string) ([]models.Resident, error) {
	defer rows.Close()
	out := []models.Resident{}
	for rows.Next() {
		r, err := scanResident(rows)
		if err != nil {
			return nil, store.Fail(op, err)
		}
		out = append(out, *r)
	}
	return out, store.Fail(op, rows.Err())
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
