package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/internal/rules"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/internal/testutil"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(_ context.Context, e event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) PublishAsync(ctx context.Context, e event.Event) {
	_ = b.Publish(ctx, e)
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Topic
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *testEnv, *recordingBus) {
	t.Helper()
	env := newTestEnv(t)
	bus := &recordingBus{}
	return NewManager(env.alerts, env.filter, bus, zap.NewNop()), env, bus
}

func candidate(sev models.Severity) rules.Candidate {
	return rules.Candidate{Type: models.AlertTypeHealth, Severity: sev, Message: "High heart rate detected for Margaret Hale: 120 bpm"}
}

func TestManager_CreateIsActive(t *testing.T) {
	m, env, bus := newTestManager(t)
	rid := env.addResident(t)

	a, err := m.Create(context.Background(), rid, candidate(models.SeverityHigh))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == 0 || a.Status != models.AlertStatusActive {
		t.Errorf("alert = %+v", a)
	}
	if got := bus.topics(); len(got) != 1 || got[0] != TopicCreated {
		t.Errorf("topics = %v, want [%s]", got, TopicCreated)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m, env, bus := newTestManager(t)
	ctx := context.Background()
	rid := env.addResident(t)
	cg := env.addUser(t, models.RoleCaregiver)
	if err := env.residents.Assign(ctx, rid, cg.UserID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	a, _ := m.Create(ctx, rid, candidate(models.SeverityHigh))

	acked, err := m.Acknowledge(ctx, cg, a.ID)
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if acked.Status != models.AlertStatusAcknowledged || acked.ResolvedBy != nil {
		t.Errorf("acknowledged = %+v", acked)
	}

	before := time.Now().UTC().Add(-time.Second)
	resolved, err := m.Resolve(ctx, cg, a.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != cg.UserID {
		t.Errorf("ResolvedBy = %v, want %d", resolved.ResolvedBy, cg.UserID)
	}
	if resolved.ResolvedAt == nil || resolved.ResolvedAt.Before(before) {
		t.Errorf("ResolvedAt = %v", resolved.ResolvedAt)
	}

	stored, _ := env.alerts.Get(ctx, a.ID)
	if stored.Status != models.AlertStatusResolved || stored.ResolvedBy == nil {
		t.Errorf("stored = %+v", stored)
	}

	for name, op := range map[string]func(context.Context, *access.Identity, int64) (*models.Alert, error){
		"acknowledge": m.Acknowledge,
		"resolve":     m.Resolve,
	} {
		if _, err := op(ctx, cg, a.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s resolved alert err = %v, want ErrInvalidTransition", name, err)
		}
	}

	want := []string{TopicCreated, TopicAcknowledged, TopicResolved}
	got := bus.topics()
	if len(got) != len(want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topics[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestManager_ResolveDirectlyFromActive(t *testing.T) {
	m, env, _ := newTestManager(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin)
	a, _ := m.Create(ctx, env.addResident(t), candidate(models.SeverityLow))

	resolved, err := m.Resolve(ctx, admin, a.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != models.AlertStatusResolved {
		t.Errorf("status = %s", resolved.Status)
	}
	if _, err := m.Acknowledge(ctx, admin, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("acknowledge after resolve err = %v", err)
	}
}

func TestManager_MissingAlertLooksDenied(t *testing.T) {
	m, env, _ := newTestManager(t)
	ctx := context.Background()
	fam := env.addUser(t, models.RoleFamily)
	admin := env.addUser(t, models.RoleAdmin)
	a, _ := m.Create(ctx, env.addResident(t), candidate(models.SeverityHigh))

	_, existing := m.Acknowledge(ctx, fam, a.ID)
	_, missing := m.Acknowledge(ctx, fam, a.ID+1000)
	if !errors.Is(existing, access.ErrDenied) || !errors.Is(missing, access.ErrDenied) {
		t.Fatalf("errs = %v / %v, want ErrDenied for both", existing, missing)
	}
	if errors.Is(missing, store.ErrNotFound) {
		t.Error("missing alert revealed as not found to an unassigned caller")
	}

	if _, err := m.Resolve(ctx, admin, a.ID+1000); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("admin err = %v, want ErrNotFound", err)
	}
}

func TestManager_TransitionAuthorization(t *testing.T) {
	m, env, _ := newTestManager(t)
	ctx := context.Background()
	fam := env.addUser(t, models.RoleFamily)
	a, _ := m.Create(ctx, env.addResident(t), candidate(models.SeverityHigh))

	if _, err := m.Acknowledge(ctx, fam, a.ID); !errors.Is(err, access.ErrDenied) {
		t.Errorf("unassigned family err = %v, want ErrDenied", err)
	}
	if _, err := m.Resolve(ctx, nil, a.ID); !errors.Is(err, access.ErrUnauthenticated) {
		t.Errorf("nil caller err = %v, want ErrUnauthenticated", err)
	}
	stored, _ := env.alerts.Get(ctx, a.ID)
	if stored.Status != models.AlertStatusActive {
		t.Errorf("status changed to %s after denied calls", stored.Status)
	}

	if err := env.residents.Assign(ctx, a.ResidentID, fam.UserID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := m.Acknowledge(ctx, fam, a.ID); err != nil {
		t.Errorf("assigned family Acknowledge: %v", err)
	}
}

func TestManager_EvaluateHealth(t *testing.T) {
	m, env, _ := newTestManager(t)
	rid := env.addResident(t)
	r := testutil.NewHealthReading(rid, testutil.WithHeartRate(130))
	r.BloodOxygen = 85
	r.BloodPressure = "150/95"

	created, err := m.EvaluateHealth(context.Background(), &r, "Margaret Hale")
	if err != nil {
		t.Fatalf("EvaluateHealth: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created = %d, want 3", len(created))
	}
	want := []models.Severity{models.SeverityHigh, models.SeverityCritical, models.SeverityMedium}
	for i, sev := range want {
		if created[i].Severity != sev {
			t.Errorf("created[%d].Severity = %s, want %s", i, created[i].Severity, sev)
		}
	}

	normal := testutil.NewHealthReading(rid)
	none, err := m.EvaluateHealth(context.Background(), &normal, "Margaret Hale")
	if err != nil || len(none) != 0 {
		t.Errorf("normal reading = %d alerts, %v", len(none), err)
	}
}

func TestManager_EvaluateEnvironmentTwoIndependentAlerts(t *testing.T) {
	m, env, _ := newTestManager(t)
	rid := env.addResident(t)
	r := testutil.NewEnvironmentReading(rid, testutil.WithGasLevel(60))
	r.AirQuality = 40

	created, err := m.EvaluateEnvironment(context.Background(), &r, "Margaret Hale")
	if err != nil {
		t.Fatalf("EvaluateEnvironment: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}
	counts, _ := m.CountsBySeverity(context.Background())
	if counts.Get(models.SeverityCritical) != 1 || counts.Get(models.SeverityMedium) != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestManager_EvaluateInsertFailureContinues(t *testing.T) {
	m, _, _ := newTestManager(t)
	r := testutil.NewEnvironmentReading(999, testutil.WithGasLevel(60))
	r.AirQuality = 40

	created, err := m.EvaluateEnvironment(context.Background(), &r, "Nobody")
	if err == nil {
		t.Fatal("expected joined insert errors")
	}
	if len(created) != 0 {
		t.Errorf("created = %d, want 0", len(created))
	}
}

func TestManager_CountsFor(t *testing.T) {
	m, env, _ := newTestManager(t)
	ctx := context.Background()
	mine := env.addResident(t)
	other := env.addResident(t)
	hc := env.addUser(t, models.RoleHealthcare)
	admin := env.addUser(t, models.RoleAdmin)
	_ = env.residents.Assign(ctx, mine, hc.UserID)

	_, _ = m.Create(ctx, mine, candidate(models.SeverityHigh))
	_, _ = m.Create(ctx, other, candidate(models.SeverityHigh))
	_, _ = m.Create(ctx, other, candidate(models.SeverityCritical))

	counts, err := m.CountsFor(ctx, hc)
	if err != nil {
		t.Fatalf("CountsFor: %v", err)
	}
	if counts != (models.SeverityCounts{0, 0, 1, 0}) {
		t.Errorf("healthcare counts = %v, want [0 0 1 0]", counts)
	}
	counts, _ = m.CountsFor(ctx, admin)
	if counts.Total() != 3 {
		t.Errorf("admin total = %d, want 3", counts.Total())
	}
	if _, err := m.CountsFor(ctx, nil); !errors.Is(err, access.ErrUnauthenticated) {
		t.Errorf("nil caller err = %v", err)
	}
}

func TestManager_ActiveAndSearchScoped(t *testing.T) {
	m, env, _ := newTestManager(t)
	ctx := context.Background()
	mine := env.addResident(t)
	other := env.addResident(t)
	fam := env.addUser(t, models.RoleFamily)
	_ = env.residents.Assign(ctx, mine, fam.UserID)

	a, _ := m.Create(ctx, mine, candidate(models.SeverityLow))
	_, _ = m.Create(ctx, other, candidate(models.SeverityLow))

	active, err := m.Active(ctx, fam)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Errorf("Active = %+v", active)
	}

	found, err := m.Search(ctx, fam, models.AlertTypeHealth, "", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].ResidentID != mine {
		t.Errorf("Search = %+v", found)
	}

	if _, err := m.ForResident(ctx, fam, other); !errors.Is(err, access.ErrDenied) {
		t.Errorf("ForResident other err = %v, want ErrDenied", err)
	}
}
