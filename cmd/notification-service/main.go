package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickeats/order-service/internal/config"
	"github.com/quickeats/order-service/internal/events"
	"github.com/quickeats/order-service/internal/notify"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	notifier := notify.NewNotifier(logger)

	var consumer *events.ConsumerWithRetry
	var err error

	// Kafka may still be starting alongside this service.
	for i := 0; i < 10; i++ {
		consumer, err = events.NewConsumerWithRetry(cfg.Kafka.Brokers, "notification-group", notifier, logger)
		if err == nil {
			logger.Info("Successfully connected to Kafka")
			break
		}
		logger.WithError(err).WithField("attempt", i+1).Warn("Failed to connect to Kafka, retrying...")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer after retries")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.WithField("brokers", cfg.Kafka.Brokers).Info("Starting notification consumer")
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Kafka consumer error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down notification service...")
	cancel()

	if err := consumer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close Kafka consumer")
	}

	logger.Info("Notification service stopped")
}
