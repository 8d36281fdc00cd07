package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// OrderEventHandler processes a single order event. Handlers are invoked
// sequentially per partition.
type OrderEventHandler interface {
	HandleOrderEvent(event OrderEvent) error
}

// Consumer is a consumer-group consumer for the order events topic.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       OrderEventHandler
	logger        *logrus.Logger
	topics        []string
}

func NewConsumer(brokers, groupID string, handler OrderEventHandler, logger *logrus.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        []string{OrderEventsTopic},
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		logger:  c.logger,
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

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type consumerGroupHandler struct {
	handler OrderEventHandler
	logger  *logrus.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka consumer group session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var event OrderEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.logger.WithError(err).Error("Failed to unmarshal order event")
				session.MarkMessage(message, "")
				continue
			}

			h.logger.WithFields(logrus.Fields{
				"type":      event.Type,
				"order_id":  event.OrderID,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Info("Received order event")

			if err := h.handler.HandleOrderEvent(event); err != nil {
				h.logger.WithError(err).Error("Failed to handle order event")
				// Keep consuming. Use ConsumerWithRetry for delivery guarantees.
			} else {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			h.logger.Info("Consumer group session context cancelled")
			return nil
		}
	}
}
