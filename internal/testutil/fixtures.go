// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// NewDB opens an in-memory database closed at test cleanup.
func NewDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewResident returns a Resident with sensible defaults, suitable for test
// fixtures. Override individual fields after creation as needed.
func NewResident(opts ...func(*models.Resident)) models.Resident {
	r := models.Resident{
		FirstName:        "Margaret",
		LastName:         "Hale",
		DateOfBirth:      time.Date(1938, time.March, 14, 0, 0, 0, 0, time.UTC),
		Gender:           models.GenderFemale,
		Address:          "Room 12, West Wing",
		EmergencyContact: "Thomas Hale",
		EmergencyPhone:   "555-0142",
		CreatedAt:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithName sets the resident's first and last name.
func WithName(first, last string) func(*models.Resident) {
	return func(r *models.Resident) {
		r.FirstName = first
		r.LastName = last
	}
}

// WithGender sets the resident's gender.
func WithGender(g models.Gender) func(*models.Resident) {
	return func(r *models.Resident) { r.Gender = g }
}

// NewUser returns a User with a unique username and the given role. The
// password hash is a placeholder; tests that log in should hash their own.
func NewUser(role models.Role, opts ...func(*models.User)) models.User {
	u := models.User{
		Username:     "user-" + uuid.NewString()[:8],
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		Role:         role,
		FullName:     "Test " + role.DisplayName(),
		CreatedAt:    time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithUsername sets the user's username.
func WithUsername(name string) func(*models.User) {
	return func(u *models.User) { u.Username = name }
}

// NewHealthReading returns a normal health reading for residentID.
func NewHealthReading(residentID int64, opts ...func(*models.HealthReading)) models.HealthReading {
	h := models.HealthReading{
		ResidentID:    residentID,
		HeartRate:     72,
		BloodPressure: "120/80",
		BloodOxygen:   97,
		Timestamp:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// WithHeartRate sets the health reading's heart rate.
func WithHeartRate(bpm int) func(*models.HealthReading) {
	return func(h *models.HealthReading) { h.HeartRate = bpm }
}

// WithHealthTime sets the health reading's timestamp.
func WithHealthTime(t time.Time) func(*models.HealthReading) {
	return func(h *models.HealthReading) { h.Timestamp = t }
}

// NewEnvironmentReading returns a normal environment reading for residentID.
func NewEnvironmentReading(residentID int64, opts ...func(*models.EnvironmentReading)) models.EnvironmentReading {
	e := models.EnvironmentReading{
		ResidentID:      residentID,
		RoomTemperature: 21.5,
		Humidity:        45,
		AirQuality:      85,
		GasLevel:        8,
		Timestamp:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// WithGasLevel sets the environment reading's gas level.
func WithGasLevel(level int) func(*models.EnvironmentReading) {
	return func(e *models.EnvironmentReading) { e.GasLevel = level }
}

// WithEnvironmentTime sets the environment reading's timestamp.
func WithEnvironmentTime(t time.Time) func(*models.EnvironmentReading) {
	return func(e *models.EnvironmentReading) { e.Timestamp = t }
}
