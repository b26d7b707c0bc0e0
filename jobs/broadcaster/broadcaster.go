package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	exitwal "vidar/infra/wal/exit"
)

// Broadcaster drains the deal outbox to Kafka. Records are retried until
// the broker acknowledges them; acknowledged records are skipped on every
// later pass and eventually garbage-collected by the snapshot job.
type Broadcaster struct {
	outbox   *exitwal.WAL
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.SugaredLogger
}

func New(outbox *exitwal.WAL, brokers []string, topic string, interval time.Duration, log *zap.SugaredLogger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newWithProducer(outbox, producer, topic, interval, log), nil
}

func newWithProducer(outbox *exitwal.WAL, producer sarama.SyncProducer, topic string, interval time.Duration, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Run loops until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Infow("broadcaster started", "topic", b.topic, "interval", b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec exitwal.Record) error {
		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warnw("deal publish failed, will retry", "seq", rec.Seq, "err", err)
			return nil // stays SENT, retried next pass
		}

		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Errorw("outbox drain aborted", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
