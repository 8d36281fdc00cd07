package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries        = 3
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// RetryableOrderEventHandler additionally classifies failures: retryable
// errors are retried with backoff, the rest go straight to the DLQ.
type RetryableOrderEventHandler interface {
	OrderEventHandler
	IsRetryable(err error) bool
}

// ConsumerWithRetry consumes order events with exponential backoff and
// dead-letters messages that exhaust their retries.
type ConsumerWithRetry struct {
	consumerGroup sarama.ConsumerGroup
	producer      sarama.SyncProducer
	handler       RetryableOrderEventHandler
	logger        *logrus.Logger
	topics        []string
}

// FailureMetadata travels in DLQ message headers so operators can see why a
// message was dead-lettered.
type FailureMetadata struct {
	RetryCount    int       `json:"retry_count"`
	FailedAt      time.Time `json:"failed_at"`
	OriginalTopic string    `json:"original_topic"`
	ErrorMessage  string    `json:"error_message"`
}

func NewConsumerWithRetry(brokers, groupID string, handler RetryableOrderEventHandler, logger *logrus.Logger) (*ConsumerWithRetry, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	consumerConfig.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), producerConfig)
	if err != nil {
		consumerGroup.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	return &ConsumerWithRetry{
		consumerGroup: consumerGroup,
		producer:      producer,
		handler:       handler,
		logger:        logger,
		topics:        []string{OrderEventsTopic},
	}, nil
}

func (c *ConsumerWithRetry) Start(ctx context.Context) error {
	handler := &retryGroupHandler{
		handler:  c.handler,
		producer: c.producer,
		logger:   c.logger,
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Kafka consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.WithError(err).Error("Error consuming from Kafka")
				return err
			}
		}
	}
}

func (c *ConsumerWithRetry) Close() error {
	if err := c.producer.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to close DLQ producer")
	}
	return c.consumerGroup.Close()
}

type retryGroupHandler struct {
	handler  RetryableOrderEventHandler
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func (h *retryGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup")
	return nil
}

func (h *retryGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *retryGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.handleWithRetry(message); err != nil {
				h.logger.WithError(err).Error("Failed to process order event after retries")
				if dlqErr := h.sendToDLQ(message, err); dlqErr != nil {
					h.logger.WithError(dlqErr).Error("Failed to dead-letter order event")
				}
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			h.logger.Info("Consumer group session context cancelled")
			return nil
		}
	}
}

func (h *retryGroupHandler) handleWithRetry(message *sarama.ConsumerMessage) error {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// A malformed payload will never parse on retry.
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	delay := initialRetryDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			h.logger.WithFields(logrus.Fields{
				"order_id": event.OrderID,
				"type":     event.Type,
				"attempt":  attempt,
				"delay":    delay,
			}).Info("Retrying order event")

			time.Sleep(delay)
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}

		lastErr = h.handler.HandleOrderEvent(event)
		if lastErr == nil {
			return nil
		}
		if !h.handler.IsRetryable(lastErr) {
			return lastErr
		}
		h.logger.WithError(lastErr).WithField("attempt", attempt+1).Warn("Retryable error handling order event")
	}

	return fmt.Errorf("exhausted retries for order %d: %w", event.OrderID, lastErr)
}

func (h *retryGroupHandler) sendToDLQ(message *sarama.ConsumerMessage, processingError error) error {
	metadata := FailureMetadata{
		RetryCount:    maxRetries,
		FailedAt:      time.Now().UTC(),
		OriginalTopic: message.Topic,
		ErrorMessage:  processingError.Error(),
	}

	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal failure metadata: %w", err)
	}

	dlqMessage := &sarama.ProducerMessage{
		Topic: OrderEventsDLQTopic,
		Key:   sarama.ByteEncoder(message.Key),
		Value: sarama.ByteEncoder(message.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("metadata"), Value: metadataBytes},
			{Key: []byte("original_topic"), Value: []byte(message.Topic)},
			{Key: []byte("original_partition"), Value: []byte(strconv.FormatInt(int64(message.Partition), 10))},
			{Key: []byte("original_offset"), Value: []byte(strconv.FormatInt(message.Offset, 10))},
		},
	}

	partition, offset, err := h.producer.SendMessage(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to send to DLQ: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"dlq_topic":     OrderEventsDLQTopic,
		"dlq_partition": partition,
		"dlq_offset":    offset,
		"key":           string(message.Key),
		"error":         processingError.Error(),
	}).Warn("Order event sent to dead letter queue")

	return nil
}
