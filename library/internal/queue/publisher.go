package queue

import (
	"context"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
	"github.com/Astemirdum/library-management/pkg/circuit_breaker"
	"github.com/Astemirdum/library-management/pkg/serializer"
)

// Publisher sends loan events to kafka. The loan id is the message key so
// events of one loan stay ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
	topic    string
	log      *zap.Logger
}

func NewPublisher(producer sarama.SyncProducer, cb circuit_breaker.CircuitBreaker, topic string, log *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		cb:       cb,
		topic:    topic,
		log:      log.Named("publisher"),
	}
}

func (p *Publisher) Publish(_ context.Context, event model.LoanEvent) error {
	payload, err := serializer.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal loan event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(event.LoanID)),
		Value: sarama.ByteEncoder(payload),
	}
	return p.cb.Call(func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrap(err, "kafka send")
		}
		p.log.Debug("loan event sent",
			zap.String("id", event.ID),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Noop drops events; used when kafka is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, model.LoanEvent) error { return nil }

func (Noop) Close() error { return nil }
