// Package readings stores health and environment samples and serves them
// to callers allowed to view the resident.
package readings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// HealthStore persists health readings.
type HealthStore struct {
	db *sql.DB
}

// EnvironmentStore persists environment readings.
type EnvironmentStore struct {
	db *sql.DB
}

// NewStores runs reading migrations and returns both stores. The residents
// migrations must already have been applied.
func NewStores(ctx context.Context, db *store.SQLiteStore) (*HealthStore, *EnvironmentStore, error) {
	if err := db.Migrate(ctx, "readings", migrations()); err != nil {
		return nil, nil, fmt.Errorf("readings migrations: %w", err)
	}
	return &HealthStore{db: db.DB()}, &EnvironmentStore{db: db.DB()}, nil
}

const healthColumns = `id, resident_id, heart_rate, blood_pressure, blood_oxygen, timestamp`

// Latest returns the newest health reading for a resident.
func (s *HealthStore) Latest(ctx context.Context, residentID int64) (*models.HealthReading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+healthColumns+` FROM health_readings
		WHERE resident_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`, residentID)
	h, err := scanHealth(row)
	if err != nil {
		return nil, store.Fail("latest health reading", err)
	}
	return h, nil
}

// Insert adds a health reading and sets its ID.
func (s *HealthStore) Insert(ctx context.Context, h *models.HealthReading) error {
	h.Timestamp = h.Timestamp.UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO health_readings (resident_id, heart_rate, blood_pressure, blood_oxygen, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		h.ResidentID, h.HeartRate, h.BloodPressure, h.BloodOxygen, h.Timestamp,
	)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("insert health reading: resident %d: %w", h.ResidentID, store.ErrNotFound)
		}
		return store.Fail("insert health reading", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Fail("insert health reading id", err)
	}
	h.ID = id
	return nil
}

// InRange returns a resident's health readings with start <= timestamp < end,
// oldest first.
func (s *HealthStore) InRange(ctx context.Context, residentID int64, start, end time.Time) ([]models.HealthReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+healthColumns+` FROM health_readings
		WHERE resident_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, id`, residentID, start.UTC(), end.UTC())
	if err != nil {
		return nil, store.Fail("list health readings", err)
	}
	defer rows.Close()

	out := []models.HealthReading{}
	for rows.Next() {
		h, err := scanHealth(rows)
		if err != nil {
			return nil, store.Fail("scan health reading", err)
		}
		out = append(out, *h)
	}
	return out, store.Fail("list health readings", rows.Err())
}

// Delete removes one health reading.
func (s *HealthStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM health_readings WHERE id = ?`, id)
	if err != nil {
		return store.Fail("delete health reading", err)
	}
	return requireRow(res, "delete health reading")
}

// Average summarizes a resident's health readings taken at or after since.
// Samples is zero when nothing matched.
func (s *HealthStore) Average(ctx context.Context, residentID int64, since time.Time) (*models.HealthAverages, error) {
	avg := models.HealthAverages{ResidentID: residentID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(heart_rate), 0), COALESCE(AVG(blood_oxygen), 0)
		FROM health_readings
		WHERE resident_id = ? AND timestamp >= ?`, residentID, since.UTC(),
	).Scan(&avg.Samples, &avg.HeartRate, &avg.BloodOxygen)
	if err != nil {
		return nil, store.Fail("average health readings", err)
	}
	return &avg, nil
}

// DeleteBefore removes health readings older than before and returns the
// number deleted.
func (s *HealthStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM health_readings WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, store.Fail("delete old health readings", err)
	}
	n, err := res.RowsAffected()
	return n, store.Fail("delete old health readings", err)
}

const environmentColumns = `id, resident_id, room_temperature, humidity, air_quality, gas_level, timestamp`

// Latest returns the newest environment reading for a resident.
func (s *EnvironmentStore) Latest(ctx context.Context, residentID int64) (*models.EnvironmentReading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+environmentColumns+` FROM environment_readings
		WHERE resident_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`, residentID)
	e, err := scanEnvironment(row)
	if err != nil {
		return nil, store.Fail("latest environment reading", err)
	}
	return e, nil
}

// Insert adds an environment reading and sets its ID.
func (s *EnvironmentStore) Insert(ctx context.Context, e *models.EnvironmentReading) error {
	e.Timestamp = e.Timestamp.UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO environment_readings (resident_id, room_temperature, humidity, air_quality, gas_level, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ResidentID, e.RoomTemperature, e.Humidity, e.AirQuality, e.GasLevel, e.Timestamp,
	)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("insert environment reading: resident %d: %w", e.ResidentID, store.ErrNotFound)
		}
		return store.Fail("insert environment reading", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Fail("insert environment reading id", err)
	}
	e.ID = id
	return nil
}

// InRange returns a resident's environment readings with
// start <= timestamp < end, oldest first.
func (s *EnvironmentStore) InRange(ctx context.Context, residentID int64, start, end time.Time) ([]models.EnvironmentReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+environmentColumns+` FROM environment_readings
		WHERE resident_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, id`, residentID, start.UTC(), end.UTC())
	if err != nil {
		return nil, store.Fail("list environment readings", err)
	}
	defer rows.Close()

	out := []models.EnvironmentReading{}
	for rows.Next() {
		e, err := scanEnvironment(rows)
		if err != nil {
			return nil, store.Fail("scan environment reading", err)
		}
		out = append(out, *e)
	}
	return out, store.Fail("list environment readings", rows.Err())
}

// Delete removes one environment reading.
func (s *EnvironmentStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM environment_readings WHERE id = ?`, id)
	if err != nil {
		return store.Fail("delete environment reading", err)
	}
	return requireRow(res, "delete environment reading")
}

// Average summarizes a resident's environment readings taken at or after
// since.
func (s *EnvironmentStore) Average(ctx context.Context, residentID int64, since time.Time) (*models.EnvironmentAverages, error) {
	avg := models.EnvironmentAverages{ResidentID: residentID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(room_temperature), 0), COALESCE(AVG(humidity), 0),
			COALESCE(AVG(air_quality), 0), COALESCE(AVG(gas_level), 0)
		FROM environment_readings
		WHERE resident_id = ? AND timestamp >= ?`, residentID, since.UTC(),
	).Scan(&avg.Samples, &avg.RoomTemperature, &avg.Humidity, &avg.AirQuality, &avg.GasLevel)
	if err != nil {
		return nil, store.Fail("average environment readings", err)
	}
	return &avg, nil
}

// DeleteBefore removes environment readings older than before.
func (s *EnvironmentStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM environment_readings WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, store.Fail("delete old environment readings", err)
	}
	n, err := res.RowsAffected()
	return n, store.Fail("delete old environment readings", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHealth(sc rowScanner) (*models.HealthReading, error) {
	var h models.HealthReading
	if err := sc.Scan(&h.ID, &h.ResidentID, &h.HeartRate, &h.BloodPressure, &h.BloodOxygen, &h.Timestamp); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanEnvironment(sc rowScanner) (*models.EnvironmentReading, error) {
	var e models.EnvironmentReading
	if err := sc.Scan(&e.ID, &e.ResidentID, &e.RoomTemperature, &e.Humidity,
		&e.AirQuality, &e.GasLevel, &e.Timestamp); err != nil {
		return nil, err
	}
	return &e, nil
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
