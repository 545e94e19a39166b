package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated is returned when a gated operation has no caller.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrDenied is returned when the caller's role or assignments do not
	// permit the operation.
	ErrDenied = errors.New("permission denied")
)

// ResidentSource is the resident and assignment lookup the filter needs.
type ResidentSource interface {
	List(ctx context.Context) ([]models.Resident, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Resident, error)
	HasAccess(ctx context.Context, userID, residentID int64) (bool, error)
}

// AlertSource lists non-resolved alerts.
type AlertSource interface {
	AllActive(ctx context.Context) ([]models.Alert, error)
	ActiveByResident(ctx context.Context, residentID int64) ([]models.Alert, error)
}

// Filter answers visibility and mutability questions for an Identity.
type Filter struct {
	residents ResidentSource
	alerts    AlertSource
	logger    *zap.Logger
}

// NewFilter creates a Filter over the given sources.
func NewFilter(residents ResidentSource, alerts AlertSource, logger *zap.Logger) *Filter {
	return &Filter{residents: residents, alerts: alerts, logger: logger}
}

// AccessibleResidents returns every resident for admins and the assigned
// residents, ordered by last then first name, for everyone else.
// An unauthenticated caller gets an empty list.
func (f *Filter) AccessibleResidents(ctx context.Context, id *Identity) ([]models.Resident, error) {
	switch ScopeFor(roleOf(id), ViewResident) {
	case ScopeAny:
		return f.residents.List(ctx)
	case ScopeAssigned:
		return f.residents.ListByUser(ctx, id.UserID)
	default:
		return []models.Resident{}, nil
	}
}

// CanAccessResident reports whether id may view residentID.
func (f *Filter) CanAccessResident(ctx context.Context, id *Identity, residentID int64) bool {
	return f.allowed(ctx, id, ViewResident, residentID)
}

// AccessibleAlerts returns the non-resolved alerts of residents id can view,
// most severe and newest first.
func (f *Filter) AccessibleAlerts(ctx context.Context, id *Identity) ([]models.Alert, error) {
	scope := ScopeFor(roleOf(id), ViewResident)
	if scope == ScopeNone {
		return []models.Alert{}, nil
	}

	all, err := f.alerts.AllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	if scope == ScopeAny {
		return all, nil
	}

	assigned, err := f.residents.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list assigned residents: %w", err)
	}
	visible := make(map[int64]struct{}, len(assigned))
	for i := range assigned {
		visible[assigned[i].ID] = struct{}{}
	}

	out := make([]models.Alert, 0, len(all))
	for i := range all {
		if _, ok := visible[all[i].ResidentID]; ok {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// AccessibleAlertsForResident returns the non-resolved alerts of one
// resident, or an empty list when id cannot view that resident.
func (f *Filter) AccessibleAlertsForResident(ctx context.Context, id *Identity, residentID int64) ([]models.Alert, error) {
	if !f.CanAccessResident(ctx, id, residentID) {
		return []models.Alert{}, nil
	}
	return f.alerts.ActiveByResident(ctx, residentID)
}

// CanCreateResidents reports whether id may add residents.
func (f *Filter) CanCreateResidents(id *Identity) bool {
	return ScopeFor(roleOf(id), CreateResident) == ScopeAny
}

// CanEditResident reports whether id may change residentID.
func (f *Filter) CanEditResident(ctx context.Context, id *Identity, residentID int64) bool {
	return f.allowed(ctx, id, EditResident, residentID)
}

// CanDeleteResident reports whether id may delete residents.
func (f *Filter) CanDeleteResident(id *Identity) bool {
	return ScopeFor(roleOf(id), DeleteResident) == ScopeAny
}

// CanManageUsers reports whether id may administer user accounts.
func (f *Filter) CanManageUsers(id *Identity) bool {
	return ScopeFor(roleOf(id), ManageUsers) == ScopeAny
}

// CanAssignResidents reports whether id may change care-team assignments.
func (f *Filter) CanAssignResidents(id *Identity) bool {
	return ScopeFor(roleOf(id), AssignResidents) == ScopeAny
}

// Require checks an action that is not tied to a resident. It returns
// ErrUnauthenticated for a nil caller and ErrDenied unless the role holds
// the action with ScopeAny.
func Require(id *Identity, action Action) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if ScopeFor(id.Role, action) != ScopeAny {
		return fmt.Errorf("%w: %s", ErrDenied, action)
	}
	return nil
}

// Authorize is the mutation-point check. It returns ErrUnauthenticated for a
// nil caller, ErrDenied when the permission table or assignments refuse the
// action, and nil otherwise. residentID is ignored for actions the caller
// holds with ScopeAny or ScopeNone.
func (f *Filter) Authorize(ctx context.Context, id *Identity, action Action, residentID int64) error {
	if id == nil {
		return ErrUnauthenticated
	}
	switch ScopeFor(id.Role, action) {
	case ScopeAny:
		return nil
	case ScopeAssigned:
		ok, err := f.residents.HasAccess(ctx, id.UserID, residentID)
		if err != nil {
			return fmt.Errorf("check assignment: %w", err)
		}
		if ok {
			return nil
		}
	}
	if residentID == 0 {
		return fmt.Errorf("%w: %s", ErrDenied, action)
	}
	return fmt.Errorf("%w: %s on resident %d", ErrDenied, action, residentID)
}

// allowed is the boolean form of Authorize. Lookup failures are logged and
// answered false.
func (f *Filter) allowed(ctx context.Context, id *Identity, action Action, residentID int64) bool {
	switch ScopeFor(roleOf(id), action) {
	case ScopeAny:
		return true
	case ScopeAssigned:
		ok, err := f.residents.HasAccess(ctx, id.UserID, residentID)
		if err != nil {
			f.logger.Warn("assignment lookup failed",
				zap.Int64("user_id", id.UserID),
				zap.Int64("resident_id", residentID),
				zap.Error(err),
			)
			return false
		}
		return ok
	default:
		return false
	}
}

// roleOf returns the empty role for a nil identity, which maps to no
// permissions.
func roleOf(id *Identity) models.Role {
	if id == nil {
		return ""
	}
	return id.Role
}
