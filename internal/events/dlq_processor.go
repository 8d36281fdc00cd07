package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Replayed events carry this header with the number of times they have been
// pushed back onto the main topic. The cap keeps a poison message from
// cycling forever.
const (
	replayCountHeader = "replay_count"
	maxReplays        = 2
)

// DLQProcessor consumes dead-lettered order events and replays them onto the
// main topic.
type DLQProcessor struct {
	consumer sarama.ConsumerGroup
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewDLQProcessor(brokers, groupID string, logger *logrus.Logger) (*DLQProcessor, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	consumerConfig.Version = sarama.V2_6_0_0

	consumer, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create DLQ consumer: %w", err)
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), producerConfig)
	if err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to create replay producer: %w", err)
	}

	return &DLQProcessor{
		consumer: consumer,
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *DLQProcessor) Run(ctx context.Context) error {
	handler := &dlqReplayHandler{processor: p, logger: p.logger}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("DLQ processor context cancelled")
			return nil
		default:
			if err := p.consumer.Consume(ctx, []string{OrderEventsDLQTopic}, handler); err != nil {
				p.logger.WithError(err).Error("Error consuming from DLQ")
				return err
			}
		}
	}
}

// Replay pushes a dead-lettered message back onto the main topic, refusing
// messages that already hit the replay cap.
func (p *DLQProcessor) Replay(message *sarama.ConsumerMessage) error {
	replays := replayCount(message)
	if replays >= maxReplays {
		return fmt.Errorf("message for key %s exceeded %d replays", string(message.Key), maxReplays)
	}

	replayMessage := &sarama.ProducerMessage{
		Topic: OrderEventsTopic,
		Key:   sarama.ByteEncoder(message.Key),
		Value: sarama.ByteEncoder(message.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(replayCountHeader), Value: []byte(strconv.Itoa(replays + 1))},
		},
	}

	partition, offset, err := p.producer.SendMessage(replayMessage)
	if err != nil {
		return fmt.Errorf("failed to replay message: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"replay_topic":     OrderEventsTopic,
		"replay_partition": partition,
		"replay_offset":    offset,
		"key":              string(message.Key),
		"replay_count":     replays + 1,
	}).Info("Order event replayed from DLQ")

	return nil
}

func (p *DLQProcessor) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.WithError(err).Error("Failed to close replay producer")
	}
	return p.consumer.Close()
}

func replayCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if string(header.Key) == replayCountHeader {
			if count, err := strconv.Atoi(string(header.Value)); err == nil {
				return count
			}
		}
	}
	return 0
}

type dlqReplayHandler struct {
	processor *DLQProcessor
	logger    *logrus.Logger
}

func (h *dlqReplayHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *dlqReplayHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *dlqReplayHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var metadata FailureMetadata
			for _, header := range message.Headers {
				if string(header.Key) == "metadata" {
					json.Unmarshal(header.Value, &metadata)
					break
				}
			}

			h.logger.WithFields(logrus.Fields{
				"original_topic": metadata.OriginalTopic,
				"retry_count":    metadata.RetryCount,
				"failed_at":      metadata.FailedAt,
				"error_message":  metadata.ErrorMessage,
				"key":            string(message.Key),
			}).Warn("Replaying DLQ message")

			if err := h.processor.Replay(message); err != nil {
				h.logger.WithError(err).Error("Failed to replay DLQ message")
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
