package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vidar/domain/engine"
	"vidar/infra/kafka"
	"vidar/service"
)

// Snapshot is the periodic per-instrument market-data message.
type Snapshot struct {
	V    int                `json:"v"`
	Data service.MarketData `json:"data"`
	Bids []Level            `json:"bids"`
	Asks []Level            `json:"asks"`
	Time time.Time          `json:"time"`
}

type Level struct {
	Count int    `json:"count"`
	Qty   uint64 `json:"qty"`
	Price uint64 `json:"price"`
}

// Publisher pushes aggregated book views to the market-data topic on a
// fixed cadence.
type Publisher struct {
	svc      *service.OrderService
	producer *kafka.Producer
	interval time.Duration
	log      *zap.SugaredLogger
}

func New(svc *service.OrderService, producer *kafka.Producer, interval time.Duration, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		svc:      svc,
		producer: producer,
		interval: interval,
		log:      log,
	}
}

// Run loops until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	p.log.Infow("market data publisher started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	for _, name := range p.svc.Instruments() {
		md, ok := p.svc.MarketData(name)
		if !ok {
			continue
		}
		bids, asks, _ := p.svc.AggregatedView(name)

		snap := Snapshot{
			V:    1,
			Data: md,
			Bids: toLevels(bids),
			Asks: toLevels(asks),
			Time: time.Now(),
		}
		if err := p.producer.SendJSON(ctx, name, snap); err != nil {
			p.log.Warnw("book publish failed", "instrument", name, "err", err)
		}
	}
}

func toLevels(limits []engine.Limit) []Level {
	out := make([]Level, 0, len(limits))
	for _, l := range limits {
		out = append(out, Level{Count: l.Count, Qty: uint64(l.Qty), Price: uint64(l.Price)})
	}
	return out
}
