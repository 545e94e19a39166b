// Package seed populates a database with demo users, residents and a day
// of reading history.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/readings"
	"github.com/HerbHall/havenwatch/internal/residents"
	"github.com/HerbHall/havenwatch/internal/simulator"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "havenwatch-demo"

// historyHours is how much hourly reading history each demo resident gets.
const historyHours = 24

// Stores groups the dependencies SeedDemo writes through.
type Stores struct {
	Auth        *auth.Service
	Users       *auth.UserStore
	Residents   *residents.Store
	Health      *readings.HealthStore
	Environment *readings.EnvironmentStore
}

// Result reports what SeedDemo created.
type Result struct {
	Users       int
	Residents   int
	Assignments int
	Readings    int
}

// seeder acts as an administrator when creating demo accounts.
var seeder = &access.Identity{Role: models.RoleAdmin}

// SeedDemo creates demo accounts for every role, four residents with care
// team assignments and hourly readings for the past day. Existing accounts
// are reused and residents are only created into an empty table, so
// re-running is safe.
func SeedDemo(ctx context.Context, s Stores, logger *zap.Logger) (*Result, error) {
	res := &Result{}

	users := make(map[string]*models.User, len(demoUsers))
	for _, nu := range demoUsers {
		u, created, err := ensureUser(ctx, s, nu)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", nu.Username, err)
		}
		if created {
			res.Users++
		}
		users[nu.Username] = u
	}

	count, err := s.Residents.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count residents: %w", err)
	}
	if count > 0 {
		logger.Info("residents already present, skipping demo residents", zap.Int("residents", count))
		return res, nil
	}

	now := time.Now().UTC().Truncate(time.Hour)
	gen := simulator.NewGenerator(rand.New(rand.NewPCG(uint64(now.Unix()), 0x6861766e)), 0)

	for _, dr := range demoResidents(now) {
		r := dr.resident
		if err := s.Residents.Insert(ctx, &r); err != nil {
			return res, fmt.Errorf("seed resident %s: %w", r.FullName(), err)
		}
		res.Residents++

		for _, username := range dr.careTeam {
			if err := s.Residents.Assign(ctx, r.ID, users[username].ID); err != nil {
				return res, fmt.Errorf("assign %s to %s: %w", username, r.FullName(), err)
			}
			res.Assignments++
		}

		n, err := seedHistory(ctx, s, gen, r.ID, now)
		res.Readings += n
		if err != nil {
			return res, fmt.Errorf("seed history for %s: %w", r.FullName(), err)
		}
	}

	logger.Info("demo data seeded",
		zap.Int("users", res.Users),
		zap.Int("residents", res.Residents),
		zap.Int("assignments", res.Assignments),
		zap.Int("readings", res.Readings),
	)
	return res, nil
}

func ensureUser(ctx context.Context, s Stores, nu auth.NewUser) (*models.User, bool, error) {
	nu.Password = DemoPassword
	u, err := s.Auth.Create(ctx, seeder, nu)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, auth.ErrUserExists) {
		return nil, false, err
	}
	u, err = s.Users.GetByUsername(ctx, nu.Username)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

// seedHistory writes one reading of each kind per hour, walking from the
// previous reading the way the simulator does.
func seedHistory(ctx context.Context, s Stores, gen *simulator.Generator, residentID int64, now time.Time) (int, error) {
	var (
		written int
		prevH   *models.HealthReading
		prevE   *models.EnvironmentReading
	)
	for i := historyHours; i > 0; i-- {
		at := now.Add(-time.Duration(i) * time.Hour)

		h := gen.Health(residentID, prevH, at)
		if err := s.Health.Insert(ctx, &h); err != nil {
			return written, err
		}
		e := gen.Environment(residentID, prevE, at)
		if err := s.Environment.Insert(ctx, &e); err != nil {
			return written, err
		}
		prevH, prevE = &h, &e
		written += 2
	}
	return written, nil
}

var demoUsers = []auth.NewUser{
	{Username: "admin", Role: models.RoleAdmin, FullName: "Facility Administrator", Email: "admin@havenwatch.local"},
	{Username: "nurse.kim", Role: models.RoleCaregiver, FullName: "Dana Kim", Phone: "555-0110"},
	{Username: "dr.osei", Role: models.RoleHealthcare, FullName: "Kwame Osei", Email: "k.osei@clinic.local"},
	{Username: "tom.hale", Role: models.RoleFamily, FullName: "Thomas Hale", Phone: "555-0142"},
}

type demoResident struct {
	resident models.Resident
	careTeam []string
}

func demoResidents(now time.Time) []demoResident {
	dob := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []demoResident{
		{
			resident: models.Resident{
				FirstName: "Margaret", LastName: "Hale", DateOfBirth: dob(1938, time.March, 14),
				Gender: models.GenderFemale, Address: "Room 12, West Wing",
				EmergencyContact: "Thomas Hale", EmergencyPhone: "555-0142",
				MedicalConditions: "Hypertension", Medications: "Lisinopril 10mg",
				CreatedAt: now,
			},
			careTeam: []string{"nurse.kim", "dr.osei", "tom.hale"},
		},
		{
			resident: models.Resident{
				FirstName: "Arthur", LastName: "Pell", DateOfBirth: dob(1941, time.July, 2),
				Gender: models.GenderMale, Address: "Room 14, West Wing",
				EmergencyContact: "Linda Pell", EmergencyPhone: "555-0177",
				MedicalConditions: "Type 2 diabetes", Medications: "Metformin 500mg",
				Allergies: "Penicillin", CreatedAt: now,
			},
			careTeam: []string{"nurse.kim", "dr.osei"},
		},
		{
			resident: models.Resident{
				FirstName: "Rose", LastName: "Vance", DateOfBirth: dob(1935, time.November, 23),
				Gender: models.GenderFemale, Address: "Room 3, East Wing",
				EmergencyContact: "Paul Vance", EmergencyPhone: "555-0193",
				MedicalConditions: "COPD", CreatedAt: now,
			},
			careTeam: []string{"nurse.kim"},
		},
		{
			resident: models.Resident{
				FirstName: "Samuel", LastName: "Okafor", DateOfBirth: dob(1944, time.January, 9),
				Gender: models.GenderMale, Address: "Room 5, East Wing",
				EmergencyContact: "Ada Okafor", EmergencyPhone: "555-0158",
				CreatedAt: now,
			},
		},
	}
}
