package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"engine": {"max_price_deviation": 10},
		"instruments": [
			{"name": "ACME", "isin": "FR0000000001", "currency": "EUR", "tick_size": 1, "close_price": 1000}
		],
		"server": {"listen": ":9000"},
		"kafka": {"brokers": ["localhost:9092"], "deals_topic": "x.deals", "broadcast_interval": "500ms"},
		"storage": {"entry_wal_dir": "/tmp/we", "snapshot_interval": "1m"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), cfg.MaxPriceDeviation)
	require.Len(t, cfg.Instruments, 1)
	assert.Equal(t, "ACME", cfg.Instruments[0].Name)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "x.deals", cfg.Kafka.DealsTopic)
	assert.Equal(t, "md.book", cfg.Kafka.BookTopic, "defaulted")
	assert.Equal(t, 500*time.Millisecond, cfg.Kafka.BroadcastInterval)
	assert.Equal(t, time.Minute, cfg.Storage.SnapshotInterval)
	assert.Equal(t, "/tmp/we", cfg.Storage.EntryWALDir)
}

func TestLoadRequiresMaxPriceDeviation(t *testing.T) {
	path := writeConfig(t, `{
		"instruments": [{"name": "ACME", "close_price": 1000}]
	}`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "max_price_deviation")
}

func TestLoadZeroDeviationIsValid(t *testing.T) {
	path := writeConfig(t, `{
		"engine": {"max_price_deviation": 0},
		"instruments": [{"name": "ACME", "close_price": 1000}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.MaxPriceDeviation)
}

func TestLoadRejectsBadInstruments(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"engine": {"max_price_deviation": 10},
		"instruments": []
	}`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{
		"engine": {"max_price_deviation": 10},
		"instruments": [{"name": "ACME", "close_price": 0}]
	}`))
	assert.ErrorContains(t, err, "close_price")

	_, err = Load(writeConfig(t, `{
		"engine": {"max_price_deviation": 10},
		"instruments": [
			{"name": "ACME", "close_price": 10},
			{"name": "ACME", "close_price": 20}
		]
	}`))
	assert.ErrorContains(t, err, "duplicate")
}
