package simulator

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/alerts"
	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/readings"
	"github.com/HerbHall/havenwatch/internal/residents"
	"github.com/HerbHall/havenwatch/internal/testutil"
	"github.com/HerbHall/havenwatch/pkg/models"
)

func TestSimulator_WithSqliteStores(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	logger := zap.NewNop()

	if _, err := auth.NewUserStore(ctx, db); err != nil {
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
	as, err := alerts.NewStore(ctx, db)
	if err != nil {
		t.Fatalf("alerts.NewStore: %v", err)
	}
	manager := alerts.NewManager(as, access.NewFilter(rs, as, logger), nil, logger)

	var ids []int64
	for _, name := range [][2]string{{"Margaret", "Hale"}, {"Arthur", "Pell"}} {
		r := testutil.NewResident(testutil.WithName(name[0], name[1]))
		if err := rs.Insert(ctx, &r); err != nil {
			t.Fatalf("insert resident: %v", err)
		}
		ids = append(ids, r.ID)
	}

	s := New(Config{AbnormalChance: 1}, rs, hs, es, manager, logger)
	s.SetGenerator(NewGenerator(seeded(7), 1))

	for i := 0; i < 2; i++ {
		res, err := s.GenerateNow(ctx)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if res.Failures != 0 || res.HealthReadings != 2 || res.EnvironmentReadings != 2 {
			t.Fatalf("pass %d result = %+v", i, res)
		}
		if res.Alerts < 2 {
			t.Errorf("pass %d alerts = %d, want at least one per resident", i, res.Alerts)
		}
	}

	for _, id := range ids {
		if _, err := hs.Latest(ctx, id); err != nil {
			t.Errorf("Latest health for %d: %v", id, err)
		}
		active, err := as.ActiveByResident(ctx, id)
		if err != nil {
			t.Fatalf("ActiveByResident: %v", err)
		}
		var health int
		for _, a := range active {
			if a.Type == models.AlertTypeHealth {
				health++
			}
		}
		if health < 2 {
			t.Errorf("resident %d health alerts = %d, want at least 2", id, health)
		}
	}
}
