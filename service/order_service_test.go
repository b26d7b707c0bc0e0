package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vidar/domain/engine"
	"vidar/infra/sequence"
	entrywal "vidar/infra/wal/entry"
	exitwal "vidar/infra/wal/exit"
	"vidar/snapshot"
)

func testInstruments() []engine.Instrument {
	return []engine.Instrument{
		{Name: "ACME", ISIN: "FR0000000001", Currency: "EUR", TickSize: 1, ClosePrice: 1000},
		{Name: "GLOBEX", ISIN: "FR0000000002", Currency: "EUR", TickSize: 1, ClosePrice: 500},
	}
}

type serviceFixture struct {
	svc      *OrderService
	entryWAL *entrywal.WAL
	outbox   *exitwal.WAL
	entryDir string
	exitDir  string
}

func newFixture(t *testing.T, entryDir, exitDir string) *serviceFixture {
	t.Helper()

	w, err := entrywal.Open(entrywal.Config{Dir: entryDir, SegmentSize: 1 << 20})
	require.NoError(t, err)

	outbox, err := exitwal.Open(exitDir)
	require.NoError(t, err)

	svc, err := NewOrderService(10, testInstruments(), w, outbox, sequence.New(0), nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = w.Close()
		_ = outbox.Close()
	})
	return &serviceFixture{svc: svc, entryWAL: w, outbox: outbox, entryDir: entryDir, exitDir: exitDir}
}

func TestInsertMatchAndOutbox(t *testing.T) {
	f := newFixture(t, t.TempDir(), t.TempDir())
	svc := f.svc

	var deals []DealEvent
	svc.OnDealEvent(func(ev DealEvent) { deals = append(deals, ev) })

	require.True(t, svc.SetTradingPhase("ACME", engine.ContinuousTrading))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 100, Price: 1000, ClientID: 1, OrderID: 1}))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Sell, Qty: 100, Price: 1000, ClientID: 2, OrderID: 1}))

	require.Len(t, deals, 1)
	assert.Equal(t, "ACME", deals[0].Instrument)
	assert.Equal(t, uint64(1000), deals[0].Price)
	assert.Equal(t, uint64(100), deals[0].Qty)
	assert.Equal(t, uint32(1), deals[0].BuyerClientID)
	assert.Equal(t, uint32(2), deals[0].SellerClientID)

	rec, err := f.outbox.Get(deals[0].Seq)
	require.NoError(t, err)
	assert.Equal(t, exitwal.StateNew, rec.State)
	assert.Contains(t, string(rec.Payload), `"instrument":"ACME"`)

	md, ok := svc.MarketData("ACME")
	require.True(t, ok)
	assert.Equal(t, uint64(1000), md.LastPrice)
	assert.Equal(t, uint64(100*1000), md.Turnover)
	assert.Equal(t, uint64(100), md.DailyVolume)
}

func TestCommandsAgainstUnknownInstrument(t *testing.T) {
	f := newFixture(t, t.TempDir(), t.TempDir())

	assert.False(t, f.svc.Insert("NOPE", engine.Order{Way: engine.Buy, Qty: 1, Price: 1, ClientID: 1, OrderID: 1}))
	assert.False(t, f.svc.Cancel("NOPE", 1, 1, engine.Buy))
	assert.False(t, f.svc.SetTradingPhase("NOPE", engine.ContinuousTrading))

	_, ok := f.svc.MarketData("NOPE")
	assert.False(t, ok)
}

func TestBooksAreIndependent(t *testing.T) {
	f := newFixture(t, t.TempDir(), t.TempDir())
	svc := f.svc

	require.True(t, svc.SetTradingPhase("ACME", engine.ContinuousTrading))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 10, Price: 999, ClientID: 1, OrderID: 1}))

	// same identity on another book is a distinct session key space
	require.True(t, svc.SetTradingPhase("GLOBEX", engine.ContinuousTrading))
	require.True(t, svc.Insert("GLOBEX", engine.Order{Way: engine.Buy, Qty: 10, Price: 499, ClientID: 1, OrderID: 1}))

	bids, _, ok := svc.ByOrderView("ACME")
	require.True(t, ok)
	require.Len(t, bids, 1)
	assert.Equal(t, engine.Price(999), bids[0].Price)
}

func TestReplayRebuildsState(t *testing.T) {
	entryDir, exitDir := t.TempDir(), t.TempDir()

	f := newFixture(t, entryDir, exitDir)
	svc := f.svc

	require.True(t, svc.SetTradingPhase("ACME", engine.ContinuousTrading))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 100, Price: 1001, ClientID: 1, OrderID: 1}))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Sell, Qty: 40, Price: 1001, ClientID: 2, OrderID: 1}))
	require.True(t, svc.Modify("ACME", engine.OrderReplace{
		Way: engine.Buy, Qty: 30, Price: 1002,
		ExistingOrderID: 1, ReplacedOrderID: 2, ClientID: 1,
	}))
	require.True(t, svc.Cancel("ACME", 2, 1, engine.Buy))
	wantMD, _ := svc.MarketData("ACME")

	require.NoError(t, f.entryWAL.Close())

	// fresh process: same WAL dirs, empty books
	f2 := newFixture(t, entryDir, t.TempDir())

	var replayedDeals []DealEvent
	f2.svc.OnDealEvent(func(ev DealEvent) { replayedDeals = append(replayedDeals, ev) })

	require.NoError(t, f2.svc.ReplayFromWAL(entryDir))

	assert.Empty(t, replayedDeals, "replayed deals must not be re-emitted")

	gotMD, ok := f2.svc.MarketData("ACME")
	require.True(t, ok)
	assert.Equal(t, wantMD, gotMD)

	bids, asks, _ := f2.svc.ByOrderView("ACME")
	assert.Empty(t, bids)
	assert.Empty(t, asks)

	// burned keys survive replay
	assert.False(t, f2.svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 1, Price: 1000, ClientID: 1, OrderID: 1}))
}

func TestSnapshotPlusTailReplay(t *testing.T) {
	entryDir, exitDir, snapDir := t.TempDir(), t.TempDir(), t.TempDir()

	f := newFixture(t, entryDir, exitDir)
	svc := f.svc

	require.True(t, svc.SetTradingPhase("ACME", engine.ContinuousTrading))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 100, Price: 1001, ClientID: 1, OrderID: 1}))

	w := &snapshot.Writer{Dir: snapDir}
	require.NoError(t, svc.WriteSnapshot(w))

	// traffic after the snapshot lands only in the WAL tail
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Sell, Qty: 40, Price: 1001, ClientID: 2, OrderID: 1}))
	wantMD, _ := svc.MarketData("ACME")
	wantBids, wantAsks, _ := svc.ByOrderView("ACME")

	require.NoError(t, f.entryWAL.Close())

	f2 := newFixture(t, entryDir, t.TempDir())

	snap, err := snapshot.Load(snapDir)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NoError(t, f2.svc.Restore(snap))
	require.NoError(t, f2.svc.ReplayFromWAL(entryDir))

	gotMD, ok := f2.svc.MarketData("ACME")
	require.True(t, ok)
	assert.Equal(t, wantMD, gotMD)

	gotBids, gotAsks, _ := f2.svc.ByOrderView("ACME")
	assert.Equal(t, wantBids, gotBids)
	assert.Equal(t, wantAsks, gotAsks)
}

func TestRenderBook(t *testing.T) {
	f := newFixture(t, t.TempDir(), t.TempDir())
	svc := f.svc

	require.True(t, svc.SetTradingPhase("ACME", engine.OpeningAuction))
	require.True(t, svc.Insert("ACME", engine.Order{Way: engine.Buy, Qty: 10, Price: 990, ClientID: 1, OrderID: 1}))

	out, ok := svc.RenderBook("ACME", engine.ViewByOrder)
	require.True(t, ok)
	assert.Contains(t, out, "10@990")

	out, ok = svc.RenderBook("ACME", engine.ViewByPrice)
	require.True(t, ok)
	assert.Contains(t, out, "1   10@990")

	_, ok = svc.RenderBook("NOPE", engine.ViewByOrder)
	assert.False(t, ok)
}
