package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/quickeats/order-service/internal/circuitbreaker"
	"github.com/quickeats/order-service/pkg/models"
	"github.com/sirupsen/logrus"
)

// Producer publishes order events to Kafka. Sends go through a circuit
// breaker so a down broker sheds events quickly instead of stalling HTTP
// requests; the order itself is already committed by the time an event is
// published.
type Producer struct {
	producer sarama.SyncProducer
	breaker  *circuitbreaker.CircuitBreaker
	logger   *logrus.Logger
}

func NewProducer(brokers string, logger *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "kafka-publish",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 2,
	}, logger)

	return &Producer{
		producer: producer,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

func (p *Producer) PublishOrderCreated(order *models.Order) error {
	return p.publish(NewOrderEvent(TypeOrderCreated, order))
}

func (p *Producer) PublishOrderUpdated(order *models.Order) error {
	return p.publish(NewOrderEvent(TypeOrderUpdated, order))
}

func (p *Producer) PublishOrderDeleted(order *models.Order) error {
	return p.publish(NewOrderEvent(TypeOrderDeleted, order))
}

func (p *Producer) publish(event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrderEventsTopic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.OrderID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	err = p.breaker.Execute(func() error {
		partition, offset, sendErr := p.producer.SendMessage(msg)
		if sendErr != nil {
			return sendErr
		}
		p.logger.WithFields(logrus.Fields{
			"topic":     OrderEventsTopic,
			"type":      event.Type,
			"partition": partition,
			"offset":    offset,
			"order_id":  event.OrderID,
		}).Info("Event published to Kafka")
		return nil
	})
	if err == circuitbreaker.ErrOpen {
		p.logger.WithFields(logrus.Fields{
			"type":     event.Type,
			"order_id": event.OrderID,
		}).Warn("Kafka unavailable, dropping order event")
	}
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
