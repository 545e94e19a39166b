package seed

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/readings"
	"github.com/HerbHall/havenwatch/internal/residents"
	"github.com/HerbHall/havenwatch/internal/testutil"
	"github.com/HerbHall/havenwatch/pkg/models"
)

func setupStores(t *testing.T) Stores {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)

	users, err := auth.NewUserStore(ctx, db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	rs, err := residents.NewStore(ctx, db)
	if err != nil {
		t.Fatalf("residents.NewStore: %v", err)
	}
	hs, es, err := readings.NewStores(ctx, db)
	if err != nil {
		t.Fatalf("readings.NewStores: %v", err)
	}
	svc := auth.NewService(users, auth.NewTokenService([]byte("seed-test-secret-32-bytes-long!!"), time.Minute), zap.NewNop())
	svc.SetBcryptCost(bcrypt.MinCost)

	return Stores{Auth: svc, Users: users, Residents: rs, Health: hs, Environment: es}
}

func TestSeedDemo(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()

	res, err := SeedDemo(ctx, s, zap.NewNop())
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if res.Users != 4 || res.Residents != 4 || res.Assignments != 6 {
		t.Errorf("result = %+v", res)
	}
	if res.Readings != 4*historyHours*2 {
		t.Errorf("readings = %d, want %d", res.Readings, 4*historyHours*2)
	}

	family, err := s.Users.GetByUsername(ctx, "tom.hale")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if family.Role != models.RoleFamily {
		t.Errorf("role = %s", family.Role)
	}
	visible, err := s.Residents.ListByUser(ctx, family.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(visible) != 1 || visible[0].LastName != "Hale" {
		t.Errorf("family sees %+v, want only Margaret Hale", visible)
	}

	if _, err := s.Auth.Login(ctx, "nurse.kim", DemoPassword); err != nil {
		t.Errorf("demo login: %v", err)
	}

	latest, err := s.Health.Latest(ctx, visible[0].ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.HeartRate < 60 || latest.HeartRate > 100 {
		t.Errorf("seeded heart rate %d outside normal band", latest.HeartRate)
	}
}

func TestSeedDemo_Idempotent(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()

	if _, err := SeedDemo(ctx, s, zap.NewNop()); err != nil {
		t.Fatalf("first SeedDemo: %v", err)
	}
	res, err := SeedDemo(ctx, s, zap.NewNop())
	if err != nil {
		t.Fatalf("second SeedDemo: %v", err)
	}
	if res.Users != 0 || res.Residents != 0 || res.Readings != 0 {
		t.Errorf("second run created %+v", res)
	}

	n, err := s.Residents.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("residents = %d, want 4", n)
	}
}
