package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// Store provides database access for alerts.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store and runs alert migrations. The auth and
// residents migrations must already have been applied.
func NewStore(ctx context.Context, db *store.SQLiteStore) (*Store, error) {
	if err := db.Migrate(ctx, "alerts", migrations()); err != nil {
		return nil, fmt.Errorf("alerts migrations: %w", err)
	}
	return &Store{db: db.DB()}, nil
}

const alertColumns = `id, resident_id, alert_type, severity, message, status, created_at, resolved_at, resolved_by`

// severityOrder sorts the most urgent alerts first.
const severityOrder = `CASE severity
	WHEN 'CRITICAL' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0 END DESC`

// Get returns an alert by ID.
func (s *Store) Get(ctx context.Context, id int64) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err != nil {
		return nil, store.Fail("get alert", err)
	}
	return a, nil
}

// ActiveByResident returns a resident's non-resolved alerts, most severe
// and newest first.
func (s *Store) ActiveByResident(ctx context.Context, residentID int64) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE resident_id = ? AND status != 'RESOLVED'
		ORDER BY `+severityOrder+`, created_at DESC, id DESC`, residentID)
	if err != nil {
		return nil, store.Fail("list resident alerts", err)
	}
	return scanAlerts(rows, "list resident alerts")
}

// AllActive returns every non-resolved alert, most severe and newest first.
func (s *Store) AllActive(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE status != 'RESOLVED'
		ORDER BY `+severityOrder+`, created_at DESC, id DESC`)
	if err != nil {
		return nil, store.Fail("list active alerts", err)
	}
	return scanAlerts(rows, "list active alerts")
}

// Insert adds an alert and sets its ID.
func (s *Store) Insert(ctx context.Context, a *models.Alert) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (resident_id, alert_type, severity, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ResidentID, string(a.Type), string(a.Severity), a.Message, string(a.Status), a.CreatedAt.UTC(),
	)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("insert alert: resident %d: %w", a.ResidentID, store.ErrNotFound)
		}
		return store.Fail("insert alert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Fail("insert alert id", err)
	}
	a.ID = id
	return nil
}

// UpdateStatus moves an alert from one status to another. resolvedBy and
// resolvedAt are written as given, so callers pass nil unless resolving.
// The update only applies while the alert still holds from; otherwise it
// returns ErrInvalidTransition.
func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to models.AlertStatus, resolvedBy *int64, resolvedAt *time.Time) error {
	var by, at any
	if resolvedBy != nil {
		by = *resolvedBy
	}
	if resolvedAt != nil {
		at = resolvedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		string(to), by, at, id, string(from),
	)
	if err != nil {
		return store.Fail("update alert status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Fail("update alert status", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %d is no longer %s: %w", id, from, ErrInvalidTransition)
	}
	return nil
}

// CountBySeverity returns non-resolved alert counts for every severity.
func (s *Store) CountBySeverity(ctx context.Context) (models.SeverityCounts, error) {
	var counts models.SeverityCounts
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE status != 'RESOLVED'
		GROUP BY severity`)
	if err != nil {
		return counts, store.Fail("count alerts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return counts, store.Fail("scan alert count", err)
		}
		if i := models.Severity(sev).Rank(); i >= 0 {
			counts[i] = n
		}
	}
	return counts, store.Fail("count alerts", rows.Err())
}

// ListByTypeAndStatus returns up to limit alerts matching the filters,
// newest first. An empty type or status matches any value.
func (s *Store) ListByTypeAndStatus(ctx context.Context, typ models.AlertType, status models.AlertStatus, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE (? = '' OR alert_type = ?) AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		string(typ), string(typ), string(status), string(status), limit)
	if err != nil {
		return nil, store.Fail("list alerts", err)
	}
	return scanAlerts(rows, "list alerts")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(sc rowScanner) (*models.Alert, error) {
	var a models.Alert
	var typ, sev, status string
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullInt64
	if err := sc.Scan(&a.ID, &a.ResidentID, &typ, &sev, &a.Message, &status,
		&a.CreatedAt, &resolvedAt, &resolvedBy); err != nil {
		return nil, err
	}
	a.Type = models.AlertType(typ)
	a.Severity = models.Severity(sev)
	a.Status = models.AlertStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		id := resolvedBy.Int64
		a.ResolvedBy = &id
	}
	return &a, nil
}

func scanAlerts(rows *sql.Rows, op string) ([]models.Alert, error) {
	defer rows.Close()
	out := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, store.Fail(op, err)
		}
		out = append(out, *a)
	}
	return out, store.Fail(op, rows.Err())
}
