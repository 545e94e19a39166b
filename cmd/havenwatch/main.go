package main

//	@title						HavenWatch API
//	@version					0.1.0
//	@description				Care-facility resident monitoring API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/access"
	"github.com/HerbHall/havenwatch/internal/alerts"
	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/config"
	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/internal/readings"
	"github.com/HerbHall/havenwatch/internal/residents"
	"github.com/HerbHall/havenwatch/internal/seed"
	"github.com/HerbHall/havenwatch/internal/server"
	"github.com/HerbHall/havenwatch/internal/simulator"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/internal/version"
	"github.com/HerbHall/havenwatch/internal/ws"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "version":
			printVersion()
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Load configuration before the logger so level and format apply.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("HavenWatch server starting", zap.String("version", version.Short()))
	if cfg.File != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", cfg.File))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		return err
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", cfg.Database.Path))

	// Stores, in foreign key order.
	userStore, err := auth.NewUserStore(ctx, db)
	if err != nil {
		return err
	}
	residentStore, err := residents.NewStore(ctx, db)
	if err != nil {
		return err
	}
	healthStore, envStore, err := readings.NewStores(ctx, db)
	if err != nil {
		return err
	}
	alertStore, err := alerts.NewStore(ctx, db)
	if err != nil {
		return err
	}

	bus := event.NewBus(logger.Named("event"))
	filter := access.NewFilter(residentStore, alertStore, logger.Named("access"))

	// Auth.
	tokens := auth.NewTokenService(jwtSecret(cfg, logger), cfg.Auth.AccessTokenTTL)
	authService := auth.NewService(userStore, tokens, logger.Named("auth"))
	authHandler := auth.NewHandler(authService, logger.Named("auth"))
	logger.Info("auth service initialized",
		zap.String("component", "auth"),
		zap.Duration("access_token_ttl", cfg.Auth.AccessTokenTTL),
	)

	// Domain services.
	residentService := residents.NewService(residentStore, filter, logger.Named("residents"))
	readingService := readings.NewService(healthStore, envStore, filter, logger.Named("readings"))
	alertManager := alerts.NewManager(alertStore, filter, bus, logger.Named("alerts"))

	// Notifications.
	notifiers, closeNotifiers := buildNotifiers(cfg, logger)
	defer closeNotifiers()
	if len(notifiers) > 0 {
		dispatcher := alerts.NewDispatcher(cfg.MinSeverity(), logger.Named("notify"), notifiers...)
		unsubscribe := dispatcher.Subscribe(bus)
		defer unsubscribe()
		logger.Info("alert notifications enabled",
			zap.String("component", "notify"),
			zap.Int("notifiers", len(notifiers)),
			zap.String("min_severity", string(cfg.MinSeverity())),
		)
	}

	if cfg.Seed.Demo {
		if _, err := seed.SeedDemo(ctx, seed.Stores{
			Auth:        authService,
			Users:       userStore,
			Residents:   residentStore,
			Health:      healthStore,
			Environment: envStore,
		}, logger.Named("seed")); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	// Background workers.
	maintainer := readings.NewMaintainer(healthStore, envStore,
		cfg.Readings.RetentionPeriod, cfg.Readings.MaintenanceInterval, logger.Named("readings"))
	maintainer.Start(ctx)

	sim := simulator.New(simulator.Config{
		Enabled:        cfg.Simulation.Enabled,
		Interval:       cfg.Simulation.Interval(),
		StopGrace:      cfg.Simulation.StopGrace,
		AbnormalChance: cfg.Simulation.AbnormalChance,
	}, residentStore, healthStore, envStore, alertManager, logger.Named("simulator"))
	sim.Start(ctx)

	wsHandler := ws.NewHandler(tokens, bus, filter, logger.Named("ws"))
	defer wsHandler.Close()

	addr := cfg.Server.Addr()
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, logger, readyCheck, authHandler, cfg.Server.DevMode,
		residents.NewHandler(residentService, logger.Named("residents")),
		readings.NewHandler(readingService, logger.Named("readings")),
		alerts.NewHandler(alertManager, logger.Named("alerts")),
		simulator.NewHandler(sim, logger.Named("simulator")),
		wsHandler,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("HavenWatch server ready", zap.String("addr", addr))
	fmt.Fprintf(os.Stderr, "\n  HavenWatch %s is ready!\n  Listening on http://localhost:%d\n\n", version.Short(), cfg.Server.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sim.Stop()
	maintainer.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("HavenWatch server stopped")
	return nil
}

// jwtSecret returns the configured signing secret, or an ephemeral one.
func jwtSecret(cfg *config.Config, logger *zap.Logger) []byte {
	if cfg.Auth.JWTSecret != "" {
		logger.Info("JWT secret loaded from configuration", zap.String("component", "auth"))
		return []byte(cfg.Auth.JWTSecret)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Fatal("failed to generate JWT secret", zap.Error(err))
	}
	logger.Info("using auto-generated JWT secret (set auth.jwt_secret to keep sessions across restarts)",
		zap.String("component", "auth"))
	return []byte(hex.EncodeToString(b))
}

// buildNotifiers creates the configured alert notifiers and a function that
// releases their connections.
func buildNotifiers(cfg *config.Config, logger *zap.Logger) ([]alerts.Notifier, func()) {
	var (
		notifiers []alerts.Notifier
		closers   []func()
	)
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(alerts.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Secret:  cfg.Notify.WebhookSecret,
			Timeout: cfg.Notify.WebhookTimeout,
			Retries: cfg.Notify.WebhookRetries,
		}))
		logger.Info("webhook notifier configured", zap.String("component", "notify"))
	}
	if cfg.Notify.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Notify.RedisAddr})
		closers = append(closers, func() { _ = client.Close() })
		notifiers = append(notifiers, alerts.NewStreamNotifier(client, cfg.Notify.RedisStream))
		logger.Info("redis stream notifier configured",
			zap.String("component", "notify"),
			zap.String("addr", cfg.Notify.RedisAddr),
			zap.String("stream", cfg.Notify.RedisStream),
		)
	}
	return notifiers, func() {
		for _, c := range closers {
			c()
		}
	}
}

func printVersion() {
	info := version.Map()
	fmt.Printf("havenwatch %s (commit %s, built %s, %s)\n",
		info["version"], info["git_commit"], info["build_date"], info["go_version"])
}
