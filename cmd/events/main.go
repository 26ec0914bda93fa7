// Command events follows the employee lifecycle topic and logs every event.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/ems/internal/ems/config"
	"github.com/gartstein/ems/internal/ems/events"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(config.DefaultPath, ".env")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
	consumer.RegisterHandler(events.LogHandler(logger))
	consumer.Start(ctx)
	logger.Info("consuming employee events", zap.String("topic", cfg.Topic), zap.String("group", cfg.ConsumerGroup))

	<-ctx.Done()
	consumer.Wait()
	consumer.Close()
	logger.Info("consumer stopped")
}
