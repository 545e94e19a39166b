package readings

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
	"go.uber.org/zap"
)

// MaxAverageDays bounds the averaging window.
const MaxAverageDays = 365

// Latest pairs the newest reading of each kind. A kind with no readings is
// nil.
type Latest struct {
	Health      *models.HealthReading      `json:"health"`
	Environment *models.EnvironmentReading `json:"environment"`
}

// Averages pairs the health and environment summaries of one window.
type Averages struct {
	Days        int                         `json:"days"`
	Health      *models.HealthAverages      `json:"health"`
	Environment *models.EnvironmentAverages `json:"environment"`
}

// Service serves readings to callers allowed to view the resident.
type Service struct {
	health *HealthStore
	env    *EnvironmentStore
	filter *access.Filter
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a readings Service.
func NewService(health *HealthStore, env *EnvironmentStore, filter *access.Filter, logger *zap.Logger) *Service {
	return &Service{
		health: health,
		env:    env,
		filter: filter,
		logger: logger,
		now:    time.Now,
	}
}

// Latest returns the newest health and environment readings of a resident.
func (s *Service) Latest(ctx context.Context, caller *access.Identity, residentID int64) (*Latest, error) {
	if err := s.filter.Authorize(ctx, caller, access.ViewReadings, residentID); err != nil {
		return nil, err
	}
	var out Latest
	h, err := s.health.Latest(ctx, residentID)
	switch {
	case err == nil:
		out.Health = h
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	e, err := s.env.Latest(ctx, residentID)
	switch {
	case err == nil:
		out.Environment = e
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return &out, nil
}

// HealthHistory returns the health readings of a resident in [start, end).
func (s *Service) HealthHistory(ctx context.Context, caller *access.Identity, residentID int64, start, end time.Time) ([]models.HealthReading, error) {
	if err := s.checkRange(ctx, caller, residentID, start, end); err != nil {
		return nil, err
	}
	return s.health.InRange(ctx, residentID, start, end)
}

// EnvironmentHistory returns the environment readings of a resident in
// [start, end).
func (s *Service) EnvironmentHistory(ctx context.Context, caller *access.Identity, residentID int64, start, end time.Time) ([]models.EnvironmentReading, error) {
	if err := s.checkRange(ctx, caller, residentID, start, end); err != nil {
		return nil, err
	}
	return s.env.InRange(ctx, residentID, start, end)
}

// Averages summarizes the last days of readings for a resident.
func (s *Service) Averages(ctx context.Context, caller *access.Identity, residentID int64, days int) (*Averages, error) {
	if err := s.filter.Authorize(ctx, caller, access.ViewReadings, residentID); err != nil {
		return nil, err
	}
	if days < 1 || days > MaxAverageDays {
		return nil, models.Invalid("days must be between 1 and %d", MaxAverageDays)
	}
	since := s.now().AddDate(0, 0, -days)

	h, err := s.health.Average(ctx, residentID, since)
	if err != nil {
		return nil, err
	}
	e, err := s.env.Average(ctx, residentID, since)
	if err != nil {
		return nil, err
	}
	return &Averages{Days: days, Health: h, Environment: e}, nil
}

// ExportHistory writes the readings of a resident in [start, end) to w as
// an .xlsx workbook.
func (s *Service) ExportHistory(ctx context.Context, caller *access.Identity, residentID int64, start, end time.Time, w io.Writer) error {
	if err := s.checkRange(ctx, caller, residentID, start, end); err != nil {
		return err
	}
	health, err := s.health.InRange(ctx, residentID, start, end)
	if err != nil {
		return err
	}
	env, err := s.env.InRange(ctx, residentID, start, end)
	if err != nil {
		return err
	}
	if err := writeWorkbook(w, health, env); err != nil {
		return err
	}
	s.logger.Info("history exported",
		zap.Int64("resident_id", residentID),
		zap.Int64("by", caller.UserID),
		zap.Int("health_rows", len(health)),
		zap.Int("environment_rows", len(env)),
	)
	return nil
}

func (s *Service) checkRange(ctx context.Context, caller *access.Identity, residentID int64, start, end time.Time) error {
	if err := s.filter.Authorize(ctx, caller, access.ViewReadings, residentID); err != nil {
		return err
	}
	if !start.Before(end) {
		return models.Invalid("start must be before end")
	}
	return nil
}
