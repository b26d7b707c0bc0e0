package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vidar/domain/engine"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Engine      EngineConfig       `json:"engine"`
	Instruments []InstrumentConfig `json:"instruments"`
	Server      ServerConfig       `json:"server"`
	Kafka       KafkaConfig        `json:"kafka"`
	Storage     StorageConfig      `json:"storage"`
}

// EngineConfig carries the matching-engine options.
type EngineConfig struct {
	MaxPriceDeviation *uint64 `json:"max_price_deviation"`
}

// InstrumentConfig describes one listed instrument.
type InstrumentConfig struct {
	Name       string `json:"name"`
	ISIN       string `json:"isin"`
	Currency   string `json:"currency"`
	TickSize   uint64 `json:"tick_size"`
	ClosePrice uint64 `json:"close_price"`
}

// ServerConfig describes the gateway listener.
type ServerConfig struct {
	Listen string `json:"listen"`
}

// KafkaConfig describes the downstream brokers and topics.
type KafkaConfig struct {
	Brokers           []string `json:"brokers"`
	DealsTopic        string   `json:"deals_topic"`
	BookTopic         string   `json:"book_topic"`
	BroadcastInterval string   `json:"broadcast_interval"`
	PublishInterval   string   `json:"publish_interval"`
}

// StorageConfig locates the WALs and snapshots.
type StorageConfig struct {
	EntryWALDir      string `json:"entry_wal_dir"`
	ExitWALDir       string `json:"exit_wal_dir"`
	SnapshotDir      string `json:"snapshot_dir"`
	SnapshotInterval string `json:"snapshot_interval"`
	SegmentSize      int64  `json:"segment_size"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	MaxPriceDeviation uint64
	Instruments       []engine.Instrument
	Listen            string
	Kafka             ResolvedKafka
	Storage           ResolvedStorage
}

type ResolvedKafka struct {
	Brokers           []string
	DealsTopic        string
	BookTopic         string
	BroadcastInterval time.Duration
	PublishInterval   time.Duration
}

type ResolvedStorage struct {
	EntryWALDir      string
	ExitWALDir       string
	SnapshotDir      string
	SnapshotInterval time.Duration
	SegmentSize      int64
}

// Load reads and validates a JSON config file.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Engine.MaxPriceDeviation == nil {
		return Loaded{}, fmt.Errorf("engine.max_price_deviation is required")
	}
	if len(cfg.Instruments) == 0 {
		return Loaded{}, fmt.Errorf("at least one instrument is required")
	}

	instruments := make([]engine.Instrument, 0, len(cfg.Instruments))
	seen := make(map[string]struct{})
	for _, in := range cfg.Instruments {
		if in.Name == "" {
			return Loaded{}, fmt.Errorf("instrument name is empty")
		}
		if _, dup := seen[in.Name]; dup {
			return Loaded{}, fmt.Errorf("duplicate instrument: %s", in.Name)
		}
		seen[in.Name] = struct{}{}
		if in.ClosePrice == 0 {
			return Loaded{}, fmt.Errorf("instrument %s: close_price must be > 0", in.Name)
		}
		if in.TickSize == 0 {
			in.TickSize = 1
		}
		instruments = append(instruments, engine.Instrument{
			Name:       in.Name,
			ISIN:       in.ISIN,
			Currency:   in.Currency,
			TickSize:   in.TickSize,
			ClosePrice: engine.Price(in.ClosePrice),
		})
	}

	loaded := Loaded{
		MaxPriceDeviation: *cfg.Engine.MaxPriceDeviation,
		Instruments:       instruments,
		Listen:            defaultString(cfg.Server.Listen, ":8080"),
		Kafka: ResolvedKafka{
			Brokers:    cfg.Kafka.Brokers,
			DealsTopic: defaultString(cfg.Kafka.DealsTopic, "deals"),
			BookTopic:  defaultString(cfg.Kafka.BookTopic, "md.book"),
		},
		Storage: ResolvedStorage{
			EntryWALDir: defaultString(cfg.Storage.EntryWALDir, "./data/wal_entry"),
			ExitWALDir:  defaultString(cfg.Storage.ExitWALDir, "./data/wal_exit"),
			SnapshotDir: defaultString(cfg.Storage.SnapshotDir, "./data/snapshots"),
			SegmentSize: cfg.Storage.SegmentSize,
		},
	}
	if loaded.Storage.SegmentSize == 0 {
		loaded.Storage.SegmentSize = 2 << 20
	}

	var err error
	if loaded.Kafka.BroadcastInterval, err = parseInterval(cfg.Kafka.BroadcastInterval, 250*time.Millisecond); err != nil {
		return Loaded{}, fmt.Errorf("kafka.broadcast_interval: %w", err)
	}
	if loaded.Kafka.PublishInterval, err = parseInterval(cfg.Kafka.PublishInterval, time.Second); err != nil {
		return Loaded{}, fmt.Errorf("kafka.publish_interval: %w", err)
	}
	if loaded.Storage.SnapshotInterval, err = parseInterval(cfg.Storage.SnapshotInterval, 30*time.Second); err != nil {
		return Loaded{}, fmt.Errorf("storage.snapshot_interval: %w", err)
	}

	return loaded, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseInterval(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
