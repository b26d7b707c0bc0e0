package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/domain/engine"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := &Snapshot{
		Seq:     42,
		DealSeq: 7,
		Created: time.Now(),
		Books: []BookSnapshot{
			{
				Instrument: engine.Instrument{Name: "ACME", ISIN: "FR0000000001", Currency: "EUR", TickSize: 1, ClosePrice: 1000},
				State: engine.BookState{
					Phase:            engine.ContinuousTrading,
					LastPrice:        1001,
					ClosePrice:       1000,
					PostAuctionPrice: 1000,
					Turnover:         40040,
					DailyVolume:      40,
				},
				Bids:         []engine.Order{{Way: engine.Buy, Qty: 60, Price: 1001, OrderID: 1, ClientID: 1}},
				Asks:         []engine.Order{{Way: engine.Sell, Qty: 30, Price: 1005, OrderID: 3, ClientID: 1}},
				InsertedKeys: []engine.OrderKey{engine.KeyOf(1, 1), engine.KeyOf(1, 2), engine.KeyOf(1, 3)},
			},
		},
	}

	require.NoError(t, (&Writer{Dir: dir}).Write(s))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, s.Seq, loaded.Seq)
	assert.Equal(t, s.DealSeq, loaded.DealSeq)
	require.Len(t, loaded.Books, 1)
	assert.Equal(t, s.Books[0].Instrument, loaded.Books[0].Instrument)
	assert.Equal(t, s.Books[0].State, loaded.Books[0].State)
	assert.Equal(t, s.Books[0].Bids, loaded.Books[0].Bids)
	assert.Equal(t, s.Books[0].Asks, loaded.Books[0].Asks)
	assert.Equal(t, s.Books[0].InsertedKeys, loaded.Books[0].InsertedKeys)
}

func TestLoadMissingSnapshot(t *testing.T) {
	loaded, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
