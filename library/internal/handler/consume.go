package handler

import (
	"context"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/model"
	"github.com/Astemirdum/library-management/pkg/serializer"
)

type recordEvent func(ctx context.Context, event model.LoanEvent) error

// Consumer stores loan events read from kafka into the audit table.
type Consumer struct {
	record recordEvent
	log    *zap.Logger
}

func NewConsumer(record recordEvent, log *zap.Logger) *Consumer {
	return &Consumer{
		record: record,
		log:    log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event model.LoanEvent
			if err := serializer.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("malformed loan event", zap.Error(err), zap.ByteString("value", message.Value))
				session.MarkMessage(message, "")
				continue
			}
			if err := consumer.record(session.Context(), event); err != nil {
				// left unmarked, redelivered after the next rebalance
				consumer.log.Error("consumer.record", zap.Error(err), zap.String("id", event.ID))
				continue
			}

			consumer.log.Debug("Message claimed:",
				zap.String("id", event.ID),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
