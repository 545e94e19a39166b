package readings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default retention settings.
const (
	DefaultRetentionPeriod     = 720 * time.Hour
	DefaultMaintenanceInterval = time.Hour
)

// Maintainer periodically deletes readings past the retention period.
type Maintainer struct {
	health    *HealthStore
	env       *EnvironmentStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintainer creates a Maintainer. Non-positive durations fall back to
// the defaults.
func NewMaintainer(health *HealthStore, env *EnvironmentStore, retention, interval time.Duration, logger *zap.Logger) *Maintainer {
	if retention <= 0 {
		retention = DefaultRetentionPeriod
	}
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	return &Maintainer{
		health:    health,
		env:       env,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the maintenance loop. It runs until Stop or ctx is done.
func (m *Maintainer) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RunOnce(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight cycle.
func (m *Maintainer) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// RunOnce executes a single maintenance cycle and returns the number of
// health and environment readings deleted.
func (m *Maintainer) RunOnce(ctx context.Context) (health, env int64) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := m.now().Add(-m.retention)

	health, err := m.health.DeleteBefore(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to delete old health readings", zap.Error(err))
	} else if health > 0 {
		m.logger.Info("purged old health readings", zap.Int64("count", health))
	}

	env, err = m.env.DeleteBefore(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to delete old environment readings", zap.Error(err))
	} else if env > 0 {
		m.logger.Info("purged old environment readings", zap.Int64("count", env))
	}
	return health, env
}
