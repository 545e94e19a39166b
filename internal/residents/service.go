package residents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// Service applies access control to resident operations.
type Service struct {
	store  *Store
	filter *access.Filter
	logger *zap.Logger
}

// NewService creates a resident Service.
func NewService(store *Store, filter *access.Filter, logger *zap.Logger) *Service {
	return &Service{store: store, filter: filter, logger: logger}
}

// List returns the residents visible to caller.
func (s *Service) List(ctx context.Context, caller *access.Identity) ([]models.Resident, error) {
	if caller == nil {
		return nil, access.ErrUnauthenticated
	}
	return s.filter.AccessibleResidents(ctx, caller)
}

// Get returns one resident if caller may view it.
func (s *Service) Get(ctx context.Context, caller *access.Identity, id int64) (*models.Resident, error) {
	if err := s.filter.Authorize(ctx, caller, access.ViewResident, id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Create adds a resident. A non-admin creator is assigned to the new
// resident so it stays visible to them.
func (s *Service) Create(ctx context.Context, caller *access.Identity, r models.Resident) (*models.Resident, error) {
	if err := access.Require(caller, access.CreateResident); err != nil {
		return nil, err
	}
	normalize(&r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Now().UTC()

	if caller.IsAdmin() {
		if err := s.store.Insert(ctx, &r); err != nil {
			return nil, err
		}
	} else if err := s.store.InsertAssigned(ctx, &r, caller.UserID); err != nil {
		return nil, fmt.Errorf("create assigned resident: %w", err)
	}

	s.logger.Info("resident created",
		zap.Int64("resident_id", r.ID),
		zap.Int64("by", caller.UserID),
	)
	return &r, nil
}

// Update replaces a resident's details if caller may edit it.
func (s *Service) Update(ctx context.Context, caller *access.Identity, r models.Resident) (*models.Resident, error) {
	if err := s.filter.Authorize(ctx, caller, access.EditResident, r.ID); err != nil {
		return nil, err
	}
	existing, err := s.store.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	normalize(&r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, &r); err != nil {
		return nil, err
	}
	s.logger.Info("resident updated", zap.Int64("resident_id", r.ID), zap.Int64("by", caller.UserID))
	return &r, nil
}

// Delete removes a resident with its assignments, readings and alerts.
func (s *Service) Delete(ctx context.Context, caller *access.Identity, id int64) error {
	if err := s.filter.Authorize(ctx, caller, access.DeleteResident, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("resident deleted", zap.Int64("resident_id", id), zap.Int64("by", caller.UserID))
	return nil
}

// Assign adds userID to a resident's care team.
func (s *Service) Assign(ctx context.Context, caller *access.Identity, residentID, userID int64) error {
	if err := access.Require(caller, access.AssignResidents); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, residentID); err != nil {
		return err
	}
	if err := s.store.Assign(ctx, residentID, userID); err != nil {
		return err
	}
	s.logger.Info("resident assigned",
		zap.Int64("resident_id", residentID),
		zap.Int64("user_id", userID),
	)
	return nil
}

// Unassign removes userID from a resident's care team.
func (s *Service) Unassign(ctx context.Context, caller *access.Identity, residentID, userID int64) error {
	if err := access.Require(caller, access.AssignResidents); err != nil {
		return err
	}
	return s.store.Unassign(ctx, residentID, userID)
}

// CareTeam lists the users assigned to a resident.
func (s *Service) CareTeam(ctx context.Context, caller *access.Identity, residentID int64) ([]models.User, error) {
	if err := access.Require(caller, access.AssignResidents); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, residentID); err != nil {
		return nil, err
	}
	return s.store.UsersWithAccess(ctx, residentID)
}

func normalize(r *models.Resident) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Gender = models.Gender(strings.ToUpper(string(r.Gender)))
}
