package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/quickeats/order-service/internal/config"
	"github.com/quickeats/order-service/internal/events"
)

func main() {
	replay := flag.Bool("replay", false, "replay dead-lettered events onto the main topic instead of only logging them")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *replay {
		runReplay(ctx, cfg, logger)
		return
	}

	runWatch(ctx, cfg, logger)
}

// runReplay pushes dead-lettered events back onto the main topic.
func runReplay(ctx context.Context, cfg *config.Config, logger *logrus.Logger) {
	processor, err := events.NewDLQProcessor(cfg.Kafka.Brokers, "dlq-replay-group", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create DLQ processor")
	}
	defer processor.Close()

	go func() {
		if err := processor.Run(ctx); err != nil {
			logger.WithError(err).Error("DLQ processor error")
		}
	}()

	logger.WithField("topic", events.OrderEventsDLQTopic).Info("DLQ replay started")
	waitForInterrupt(logger)
}

// runWatch logs dead-lettered events without touching them.
func runWatch(ctx context.Context, cfg *config.Config, logger *logrus.Logger) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Version = sarama.V2_6_0_0

	consumer, err := sarama.NewConsumerGroup([]string{cfg.Kafka.Brokers}, "dlq-monitor-group", saramaConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create DLQ consumer")
	}
	defer consumer.Close()

	handler := &watchHandler{logger: logger}
	go func() {
		for {
			if err := consumer.Consume(ctx, []string{events.OrderEventsDLQTopic}, handler); err != nil {
				logger.WithError(err).Error("Error consuming from DLQ")
				return
			}
		}
	}()

	logger.WithField("topic", events.OrderEventsDLQTopic).Info("DLQ monitor started")
	waitForInterrupt(logger)
}

func waitForInterrupt(logger *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down DLQ monitor...")
}

type watchHandler struct {
	logger *logrus.Logger
}

func (h *watchHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *watchHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *watchHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var metadata events.FailureMetadata
		for _, header := range message.Headers {
			if string(header.Key) == "metadata" {
				json.Unmarshal(header.Value, &metadata)
				break
			}
		}

		fields := logrus.Fields{
			"topic":          message.Topic,
			"partition":      message.Partition,
			"offset":         message.Offset,
			"key":            string(message.Key),
			"original_topic": metadata.OriginalTopic,
			"retry_count":    metadata.RetryCount,
			"error_message":  metadata.ErrorMessage,
		}

		var event events.OrderEvent
		if err := json.Unmarshal(message.Value, &event); err == nil {
			fields["order_id"] = event.OrderID
			fields["customer_id"] = event.CustomerID
			fields["event_type"] = event.Type
		}

		h.logger.WithFields(fields).Warn("DLQ message detected")
		session.MarkMessage(message, "")
	}
	return nil
}
