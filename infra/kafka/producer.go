package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes market-data messages keyed by instrument.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// SendJSON marshals v and publishes it under the instrument key.
func (p *Producer) SendJSON(ctx context.Context, instrument string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Send(ctx, []byte(instrument), value)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
