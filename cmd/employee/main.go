package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/ems/internal/ems/auth"
	"github.com/gartstein/ems/internal/ems/config"
	"github.com/gartstein/ems/internal/ems/controller"
	"github.com/gartstein/ems/internal/ems/db"
	"github.com/gartstein/ems/internal/ems/events"
	"github.com/gartstein/ems/internal/ems/handlers"
	"github.com/gartstein/ems/internal/ems/seed"
	"github.com/gartstein/ems/internal/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	startupTimeout = time.Minute
	healthInterval = 15 * time.Second
)

// eventProducer is satisfied by both the Kafka producer and the no-op one.
type eventProducer interface {
	controller.EventProducer
	Close()
}

func main() {
	cfg, err := config.Load(config.DefaultPath, ".env")
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	producer := initProducer(cfg, logger)
	defer producer.Close()

	validator := validation.New()
	employeeSvc := controller.NewEmployeeService(repo, producer, validator, logger)
	itemSvc := controller.NewItemService(repo, validator, logger)

	if _, err := seed.Demo(context.Background(), employeeSvc, repo, cfg.SeedDemoEmployees, logger); err != nil {
		logger.Error("failed to seed demo employees", zap.Error(err))
	}

	gate, err := auth.NewGate(
		auth.Credentials{
			Email:        cfg.AdminEmail,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		auth.Config{
			Secret:       cfg.JWTSecret,
			SessionDays:  cfg.SessionMaxAgeDays,
			SecureCookie: cfg.Production(),
		},
	)
	if err != nil {
		logger.Fatal("failed to initialize auth gate", zap.Error(err))
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)

	mux := handlers.NewMux(logger)
	httpHandler := handlers.NewHTTPHandler(employeeSvc, itemSvc, gate, server.Health(), logger)
	if err := httpHandler.RegisterRoutes(mux); err != nil {
		logger.Fatal("failed to register HTTP routes", zap.Error(err))
	}
	server.RegisterHTTPHandler(handlers.CORS(auth.HTTPMiddleware(mux, gate, logger), cfg.ClientOrigin))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.WatchHealth(ctx, repo.Ping, healthInterval)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger builds a production logger at the configured level, or a
// development logger outside production.
func initLogger(cfg *config.Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initDatabase connects to the database, retrying while it starts up.
func initDatabase(cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	dbConf := &db.Config{
		Driver:       cfg.DBDriver,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		DBName:       cfg.DBName,
		SSLMode:      cfg.DBSSLMode,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxConns,
		LogQueries:   cfg.DBLogQueries,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = startupTimeout

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(dbConf)
		return err
	}, policy, func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("next", next))
	})
	return repo, err
}

// initProducer publishes lifecycle events to Kafka when brokers are
// configured. Without brokers events are discarded.
func initProducer(cfg *config.Config, logger *zap.Logger) eventProducer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no Kafka brokers configured, employee events are disabled")
		return events.NopProducer{}
	}

	err := backoff.Retry(func() error {
		return events.EnsureTopic(cfg.KafkaBrokers, cfg.Topic, 1, logger)
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		logger.Warn("Kafka unreachable, relying on topic auto-creation", zap.Error(err))
	}
	return events.NewProducer(cfg.KafkaBrokers, cfg.Topic, logger)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
