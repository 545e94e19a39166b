package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied by New to zero config values.
const (
	DefaultInterval  = 60 * time.Second
	DefaultStopGrace = 5 * time.Second
)

// ErrStopped is returned when a pass is requested after Stop.
var ErrStopped = fmt.Errorf("simulator stopped: %w", store.ErrConflict)

// Pass triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ResidentLister returns the residents to simulate.
type ResidentLister interface {
	List(ctx context.Context) ([]models.Resident, error)
}

// HealthRecorder reads and persists health readings.
type HealthRecorder interface {
	Latest(ctx context.Context, residentID int64) (*models.HealthReading, error)
	Insert(ctx context.Context, h *models.HealthReading) error
}

// EnvironmentRecorder reads and persists environment readings.
type EnvironmentRecorder interface {
	Latest(ctx context.Context, residentID int64) (*models.EnvironmentReading, error)
	Insert(ctx context.Context, e *models.EnvironmentReading) error
}

// Evaluator turns persisted readings into alerts.
type Evaluator interface {
	EvaluateHealth(ctx context.Context, r *models.HealthReading, residentName string) ([]models.Alert, error)
	EvaluateEnvironment(ctx context.Context, r *models.EnvironmentReading, residentName string) ([]models.Alert, error)
}

// Config controls the periodic simulator.
type Config struct {
	Enabled        bool
	Interval       time.Duration
	StopGrace      time.Duration
	AbnormalChance float64
}

// PassResult summarizes one simulation pass.
type PassResult struct {
	RunID               string        `json:"run_id"`
	Trigger             string        `json:"trigger"`
	StartedAt           time.Time     `json:"started_at"`
	Duration            time.Duration `json:"duration_ns"`
	Residents           int           `json:"residents"`
	HealthReadings      int           `json:"health_readings"`
	EnvironmentReadings int           `json:"environment_readings"`
	Alerts              int           `json:"alerts"`
	Failures            int           `json:"failures"`
	Canceled            bool          `json:"canceled,omitempty"`
	Error               string        `json:"error,omitempty"`
}

// Status reports the simulator state.
type Status struct {
	Enabled         bool        `json:"enabled"`
	Running         bool        `json:"running"`
	Stopped         bool        `json:"stopped"`
	IntervalSeconds int         `json:"interval_seconds"`
	Passes          int64       `json:"passes"`
	LastPass        *PassResult `json:"last_pass,omitempty"`
}

// Simulator produces readings for every resident on a fixed period and
// hands them to the alert evaluator. Passes never overlap.
type Simulator struct {
	cfg       Config
	residents ResidentLister
	health    HealthRecorder
	env       EnvironmentRecorder
	evaluator Evaluator
	gen       *Generator
	logger    *zap.Logger
	now       func() time.Time

	// passMu serializes passes and guards gen.
	passMu sync.Mutex

	stateMu  sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	passes   int64
	lastPass *PassResult
	wg       sync.WaitGroup

	hardCtx    context.Context
	hardCancel context.CancelFunc
}

// New creates a Simulator. Zero durations fall back to the defaults.
func New(cfg Config, residents ResidentLister, health HealthRecorder, env EnvironmentRecorder, evaluator Evaluator, logger *zap.Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	s := &Simulator{
		cfg:       cfg,
		residents: residents,
		health:    health,
		env:       env,
		evaluator: evaluator,
		gen:       NewGenerator(nil, cfg.AbnormalChance),
		logger:    logger,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
	s.hardCtx, s.hardCancel = context.WithCancel(context.Background())
	return s
}

// SetGenerator replaces the reading generator. Intended for tests that need
// a seeded random source.
func (s *Simulator) SetGenerator(g *Generator) {
	s.passMu.Lock()
	s.gen = g
	s.passMu.Unlock()
}

// Start launches the periodic loop. The first pass runs immediately. It is
// a no-op when the simulator is disabled, already started or stopped.
func (s *Simulator) Start(ctx context.Context) {
	s.stateMu.Lock()
	if !s.cfg.Enabled || s.started || s.stopped {
		s.stateMu.Unlock()
		return
	}
	s.started = true
	s.wg.Add(1)
	s.stateMu.Unlock()

	s.logger.Info("simulator started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Float64("abnormal_chance", s.cfg.AbnormalChance),
	)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.scheduledPass(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.scheduledPass(ctx)
			}
		}
	}()
}

func (s *Simulator) scheduledPass(ctx context.Context) {
	if _, err := s.run(ctx, TriggerScheduled); err != nil && !errors.Is(err, ErrStopped) {
		s.logger.Warn("scheduled pass failed", zap.Error(err))
	}
}

// Stop refuses new passes and waits for the in-flight pass up to the stop
// grace period, after which the pass is canceled. Stop is idempotent.
func (s *Simulator) Stop() {
	s.stateMu.Lock()
	if s.stopped {
		s.stateMu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.stateMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.StopGrace):
		s.logger.Warn("simulation pass exceeded stop grace, canceling",
			zap.Duration("grace", s.cfg.StopGrace))
		s.hardCancel()
		<-done
	}
	s.hardCancel()
	s.logger.Info("simulator stopped")
}

// GenerateNow runs one pass synchronously, waiting for any pass in
// progress. It returns ErrStopped after Stop.
func (s *Simulator) GenerateNow(ctx context.Context) (*PassResult, error) {
	return s.run(ctx, TriggerManual)
}

// Status returns a snapshot of the simulator state.
func (s *Simulator) Status() Status {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	st := Status{
		Enabled:         s.cfg.Enabled,
		Running:         s.started && !s.stopped,
		Stopped:         s.stopped,
		IntervalSeconds: int(s.cfg.Interval / time.Second),
		Passes:          s.passes,
	}
	if s.lastPass != nil {
		last := *s.lastPass
		st.LastPass = &last
	}
	return st
}

// run registers the pass with the stop wait group, then executes it under
// the pass mutex.
func (s *Simulator) run(ctx context.Context, trigger string) (*PassResult, error) {
	s.stateMu.Lock()
	if s.stopped {
		s.stateMu.Unlock()
		return nil, ErrStopped
	}
	s.wg.Add(1)
	s.stateMu.Unlock()
	defer s.wg.Done()

	s.passMu.Lock()
	defer s.passMu.Unlock()

	if s.isStopped() && trigger == TriggerScheduled {
		return nil, ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := context.AfterFunc(s.hardCtx, cancel)
	defer release()

	res := s.pass(ctx, trigger)

	s.stateMu.Lock()
	s.passes++
	s.lastPass = res
	s.stateMu.Unlock()

	if res.Error != "" {
		return res, fmt.Errorf("simulation pass %s: %s", res.RunID, res.Error)
	}
	return res, nil
}

func (s *Simulator) isStopped() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.stopped
}

// pass generates, persists and evaluates one reading of each kind per
// resident. The caller holds passMu.
func (s *Simulator) pass(ctx context.Context, trigger string) *PassResult {
	start := s.now()
	res := &PassResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: start.UTC(),
	}
	log := s.logger.With(zap.String("run_id", res.RunID), zap.String("trigger", trigger))

	defer func() {
		res.Duration = s.now().Sub(start)
		observePass(res)
		log.Debug("simulation pass complete",
			zap.Int("residents", res.Residents),
			zap.Int("alerts", res.Alerts),
			zap.Int("failures", res.Failures),
			zap.Duration("duration", res.Duration),
		)
	}()

	residents, err := s.residents.List(ctx)
	if err != nil {
		res.Error = "list residents: " + err.Error()
		log.Warn("failed to list residents", zap.Error(err))
		return res
	}

	for i := range residents {
		if ctx.Err() != nil {
			res.Canceled = true
			log.Warn("simulation pass canceled", zap.Int("remaining", len(residents)-i))
			break
		}
		s.simulateResident(ctx, log, &residents[i], res)
		res.Residents++
	}
	return res
}

func (s *Simulator) simulateResident(ctx context.Context, log *zap.Logger, r *models.Resident, res *PassResult) {
	log = log.With(zap.Int64("resident_id", r.ID))
	at := s.now().UTC()
	name := r.FullName()

	prevHealth, err := s.health.Latest(ctx, r.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load previous health reading", zap.Error(err))
		}
		prevHealth = nil
	}
	h := s.gen.Health(r.ID, prevHealth, at)
	if err := s.health.Insert(ctx, &h); err != nil {
		res.Failures++
		log.Warn("failed to save health reading", zap.Error(err))
	} else {
		res.HealthReadings++
		alerts, err := s.evaluator.EvaluateHealth(ctx, &h, name)
		res.Alerts += len(alerts)
		if err != nil {
			res.Failures++
			log.Warn("health alert check failed", zap.Error(err))
		}
	}

	prevEnv, err := s.env.Latest(ctx, r.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load previous environment reading", zap.Error(err))
		}
		prevEnv = nil
	}
	e := s.gen.Environment(r.ID, prevEnv, at)
	if err := s.env.Insert(ctx, &e); err != nil {
		res.Failures++
		log.Warn("failed to save environment reading", zap.Error(err))
	} else {
		res.EnvironmentReadings++
		alerts, err := s.evaluator.EvaluateEnvironment(ctx, &e, name)
		res.Alerts += len(alerts)
		if err != nil {
			res.Failures++
			log.Warn("environment alert check failed", zap.Error(err))
		}
	}
}
