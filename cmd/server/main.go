package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vidar/api/ws"
	"vidar/infra/kafka"
	"vidar/infra/sequence"
	entrywal "vidar/infra/wal/entry"
	exitwal "vidar/infra/wal/exit"
	"vidar/jobs/broadcaster"
	"vidar/jobs/marketdata"
	"vidar/obs"
	"vidar/ops"
	"vidar/service"
	"vidar/snapshot"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalw("config load failed", "path", *configPath, "err", err)
	}

	// ---------------- Storage ----------------

	entryWAL, err := entrywal.Open(entrywal.Config{
		Dir:         cfg.Storage.EntryWALDir,
		SegmentSize: cfg.Storage.SegmentSize,
	})
	if err != nil {
		log.Fatalw("entry WAL init failed", "err", err)
	}
	defer entryWAL.Close()

	outbox, err := exitwal.Open(cfg.Storage.ExitWALDir)
	if err != nil {
		log.Fatalw("exit WAL init failed", "err", err)
	}
	defer outbox.Close()

	// ---------------- Service ----------------

	metrics := obs.NewMetrics("vidar")
	seqGen := sequence.New(0)

	svc, err := service.NewOrderService(
		cfg.MaxPriceDeviation,
		cfg.Instruments,
		entryWAL,
		outbox,
		seqGen,
		metrics,
		log,
	)
	if err != nil {
		log.Fatalw("service init failed", "err", err)
	}

	// ---------------- Recovery ----------------

	snap, err := snapshot.Load(cfg.Storage.SnapshotDir)
	if err != nil {
		log.Fatalw("snapshot load failed", "err", err)
	}
	if snap != nil {
		if err := svc.Restore(snap); err != nil {
			log.Fatalw("snapshot restore failed", "err", err)
		}
	}
	if err := svc.ReplayFromWAL(cfg.Storage.EntryWALDir); err != nil {
		log.Fatalw("WAL replay failed", "err", err)
	}

	// ---------------- Background jobs ----------------

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc.StartSnapshotJob(ctx, &snapshot.Writer{Dir: cfg.Storage.SnapshotDir}, cfg.Storage.SnapshotInterval)

	if len(cfg.Kafka.Brokers) > 0 {
		bc, err := broadcaster.New(outbox, cfg.Kafka.Brokers, cfg.Kafka.DealsTopic, cfg.Kafka.BroadcastInterval, log)
		if err != nil {
			log.Fatalw("broadcaster init failed", "err", err)
		}
		defer bc.Close()
		go bc.Run(ctx)

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.BookTopic)
		defer producer.Close()
		go marketdata.New(svc, producer, cfg.Kafka.PublishInterval, log).Run(ctx)
	} else {
		log.Warnw("no kafka brokers configured, deals stay in the outbox")
	}

	// ---------------- Gateway ----------------

	gateway := ws.NewServer(svc, metrics.Handler(), log)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: gateway.Routes()}

	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	log.Infow("engine running",
		"listen", cfg.Listen,
		"instruments", len(cfg.Instruments),
		"max_price_deviation", cfg.MaxPriceDeviation)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("gateway exited", "err", err)
	}
}
