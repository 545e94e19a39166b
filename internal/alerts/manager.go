// Package alerts owns the alert lifecycle: creation from rule breaches,
// acknowledge and resolve transitions, severity counts, and notification
// of lifecycle events.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/internal/rules"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// Event topics published by the Manager. The payload is a *models.Alert.
const (
	TopicCreated      = "alerts.created"
	TopicAcknowledged = "alerts.acknowledged"
	TopicResolved     = "alerts.resolved"
)

const eventSource = "alerts"

// ErrInvalidTransition is returned when a status change is not allowed
// from the alert's current status.
var ErrInvalidTransition = fmt.Errorf("invalid alert status transition: %w", store.ErrConflict)

// Manager creates alerts and moves them through their lifecycle.
type Manager struct {
	store  *Store
	filter *access.Filter
	bus    event.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a Manager. bus may be nil.
func NewManager(store *Store, filter *access.Filter, bus event.Publisher, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		filter: filter,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Create persists a candidate as a new ACTIVE alert for residentID.
func (m *Manager) Create(ctx context.Context, residentID int64, c rules.Candidate) (*models.Alert, error) {
	a := &models.Alert{
		ResidentID: residentID,
		Type:       c.Type,
		Severity:   c.Severity,
		Message:    c.Message,
		Status:     models.AlertStatusActive,
		CreatedAt:  m.now().UTC(),
	}
	if err := m.store.Insert(ctx, a); err != nil {
		return nil, err
	}

	alertsCreatedTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	m.logger.Info("alert created",
		zap.Int64("alert_id", a.ID),
		zap.Int64("resident_id", residentID),
		zap.String("type", string(a.Type)),
		zap.String("severity", string(a.Severity)),
	)
	m.publish(ctx, TopicCreated, a)
	return a, nil
}

// EvaluateHealth runs the health rules on a persisted reading and creates
// an alert for every breach. A failed insert does not stop the remaining
// candidates; the created alerts are returned with the joined errors.
func (m *Manager) EvaluateHealth(ctx context.Context, r *models.HealthReading, residentName string) ([]models.Alert, error) {
	return m.createAll(ctx, r.ResidentID, rules.EvaluateHealth(*r, residentName))
}

// EvaluateEnvironment runs the environment rules on a persisted reading.
func (m *Manager) EvaluateEnvironment(ctx context.Context, r *models.EnvironmentReading, residentName string) ([]models.Alert, error) {
	return m.createAll(ctx, r.ResidentID, rules.EvaluateEnvironment(*r, residentName))
}

func (m *Manager) createAll(ctx context.Context, residentID int64, candidates []rules.Candidate) ([]models.Alert, error) {
	created := make([]models.Alert, 0, len(candidates))
	var errs []error
	for _, c := range candidates {
		a, err := m.Create(ctx, residentID, c)
		if err != nil {
			m.logger.Warn("failed to create alert",
				zap.Int64("resident_id", residentID),
				zap.String("severity", string(c.Severity)),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		created = append(created, *a)
	}
	return created, errors.Join(errs...)
}

// Acknowledge moves an ACTIVE alert to ACKNOWLEDGED.
func (m *Manager) Acknowledge(ctx context.Context, caller *access.Identity, id int64) (*models.Alert, error) {
	return m.transition(ctx, caller, id, models.AlertStatusAcknowledged)
}

// Resolve moves an ACTIVE or ACKNOWLEDGED alert to RESOLVED and records
// the caller as resolver.
func (m *Manager) Resolve(ctx context.Context, caller *access.Identity, id int64) (*models.Alert, error) {
	return m.transition(ctx, caller, id, models.AlertStatusResolved)
}

func (m *Manager) transition(ctx context.Context, caller *access.Identity, id int64, to models.AlertStatus) (*models.Alert, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	// Callers without access to every resident get the same denial for a
	// missing alert as for someone else's, so alert ids reveal nothing.
	a, err := m.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) && access.Require(caller, access.ManageAlert) != nil {
		return nil, deniedAlert(id)
	}
	if err != nil {
		return nil, err
	}
	if err := m.filter.Authorize(ctx, caller, access.ManageAlert, a.ResidentID); err != nil {
		if errors.Is(err, access.ErrDenied) {
			return nil, deniedAlert(id)
		}
		return nil, err
	}
	if !models.CanTransition(a.Status, to) {
		return nil, fmt.Errorf("alert %d: %s to %s: %w", id, a.Status, to, ErrInvalidTransition)
	}

	var resolvedBy *int64
	var resolvedAt *time.Time
	if to == models.AlertStatusResolved {
		by := caller.UserID
		at := m.now().UTC()
		resolvedBy, resolvedAt = &by, &at
	}
	if err := m.store.UpdateStatus(ctx, id, a.Status, to, resolvedBy, resolvedAt); err != nil {
		return nil, err
	}
	a.Status = to
	a.ResolvedBy = resolvedBy
	a.ResolvedAt = resolvedAt

	alertTransitionsTotal.WithLabelValues(string(to)).Inc()
	m.logger.Info("alert status changed",
		zap.Int64("alert_id", id),
		zap.String("status", string(to)),
		zap.Int64("by", caller.UserID),
	)
	topic := TopicAcknowledged
	if to == models.AlertStatusResolved {
		topic = TopicResolved
	}
	m.publish(ctx, topic, a)
	return a, nil
}

func deniedAlert(id int64) error {
	return fmt.Errorf("%w: %s alert %d", access.ErrDenied, access.ManageAlert, id)
}

// CountsBySeverity returns non-resolved alert counts across all residents.
func (m *Manager) CountsBySeverity(ctx context.Context) (models.SeverityCounts, error) {
	return m.store.CountBySeverity(ctx)
}

// CountsFor returns non-resolved alert counts over the residents caller can
// view.
func (m *Manager) CountsFor(ctx context.Context, caller *access.Identity) (models.SeverityCounts, error) {
	if caller == nil {
		return models.SeverityCounts{}, access.ErrUnauthenticated
	}
	if caller.IsAdmin() {
		return m.store.CountBySeverity(ctx)
	}
	var counts models.SeverityCounts
	list, err := m.filter.AccessibleAlerts(ctx, caller)
	if err != nil {
		return counts, err
	}
	for i := range list {
		if r := list[i].Severity.Rank(); r >= 0 {
			counts[r]++
		}
	}
	return counts, nil
}

// Active returns the non-resolved alerts caller can view.
func (m *Manager) Active(ctx context.Context, caller *access.Identity) ([]models.Alert, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	return m.filter.AccessibleAlerts(ctx, caller)
}

// ForResident returns the non-resolved alerts of one resident.
func (m *Manager) ForResident(ctx context.Context, caller *access.Identity, residentID int64) ([]models.Alert, error) {
	if err := m.filter.Authorize(ctx, caller, access.ViewResident, residentID); err != nil {
		return nil, err
	}
	return m.store.ActiveByResident(ctx, residentID)
}

// Search lists alerts by type and status, newest first, dropping alerts
// of residents caller cannot view.
func (m *Manager) Search(ctx context.Context, caller *access.Identity, typ models.AlertType, status models.AlertStatus, limit int) ([]models.Alert, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	list, err := m.store.ListByTypeAndStatus(ctx, typ, status, limit)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		return list, nil
	}

	visible := map[int64]bool{}
	out := make([]models.Alert, 0, len(list))
	for i := range list {
		rid := list[i].ResidentID
		ok, seen := visible[rid]
		if !seen {
			ok = m.filter.CanAccessResident(ctx, caller, rid)
			visible[rid] = ok
		}
		if ok {
			out = append(out, list[i])
		}
	}
	return out, nil
}

func (m *Manager) publish(ctx context.Context, topic string, a *models.Alert) {
	if m.bus == nil {
		return
	}
	payload := *a
	m.bus.PublishAsync(context.WithoutCancel(ctx), event.Event{
		Topic:   topic,
		Source:  eventSource,
		Payload: &payload,
	})
}
