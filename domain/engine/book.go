package engine

// Host is the surface an order book consumes from its owning engine. The
// book holds a non-owning reference; the host outlives all books and must
// not re-enter the book from a callback.
type Host interface {
	OnDeal(book *OrderBook, deal *Deal)
	OnUnsolicitedCancelledOrder(book *OrderBook, order Order)
	RegisterMonitored(book *OrderBook)
	UnregisterMonitored(book *OrderBook)
}

// OrderBook is the per-instrument trading facade: it owns the order
// container, the trading-phase state machine, and the session market data.
// A book is single-writer; the caller serializes all operations.
type OrderBook struct {
	instrument Instrument
	host       Host
	container  *OrderContainer

	phase TradingPhase

	lastPrice        Price
	openPrice        Price
	closePrice       Price
	postAuctionPrice Price
	turnover         uint64
	dailyVolume      Quantity

	// integer percent around postAuctionPrice
	maxPriceDeviation uint64

	// set by a continuous-trading deal outside the deviation band,
	// consumed after the triggering Insert/Modify completes
	deviationBreached bool
}

func NewOrderBook(instrument Instrument, host Host, maxPriceDeviation uint64) *OrderBook {
	b := &OrderBook{
		instrument:        instrument,
		host:              host,
		phase:             Close,
		lastPrice:         instrument.ClosePrice,
		closePrice:        instrument.ClosePrice,
		postAuctionPrice:  instrument.ClosePrice,
		maxPriceDeviation: maxPriceDeviation,
	}
	b.container = NewOrderContainer(b)
	return b
}

// OnDeal implements EventHandler. Every execution updates the session
// market data; during continuous trading it is also checked against the
// deviation band.
func (b *OrderBook) OnDeal(deal *Deal) {
	b.lastPrice = deal.Price
	b.turnover += Notional(deal.Price, deal.Qty)
	b.dailyVolume += deal.Qty

	if b.phase == ContinuousTrading && b.outsideDeviationBand(deal.Price) {
		b.deviationBreached = true
	}

	b.host.OnDeal(b, deal)
}

// OnUnsolicitedCancelledOrder implements EventHandler.
func (b *OrderBook) OnUnsolicitedCancelledOrder(order Order) {
	b.host.OnUnsolicitedCancelledOrder(b, order)
}

func (b *OrderBook) outsideDeviationBand(price Price) bool {
	ref := b.postAuctionPrice
	var diff uint64
	if price > ref {
		diff = uint64(price - ref)
	} else {
		diff = uint64(ref - price)
	}
	return diff*100 > uint64(ref)*b.maxPriceDeviation
}

func validFields(qty Quantity, price Price, way OrderWay) bool {
	return qty > 0 && price > 0 && way.Valid()
}

// Insert submits a new order. Matching happens only during continuous
// trading; in auction phases the order rests unmatched.
func (b *OrderBook) Insert(order Order) bool {
	if !validFields(order.Qty, order.Price, order.Way) {
		return false
	}

	ok := b.container.Insert(order, b.phase == ContinuousTrading)

	b.applyDeviationBreach()
	return ok
}

// Modify replaces a working order, matching the replacement during
// continuous trading.
func (b *OrderBook) Modify(replace OrderReplace) bool {
	if !validFields(replace.Qty, replace.Price, replace.Way) {
		return false
	}

	ok := b.container.Modify(replace, b.phase == ContinuousTrading)

	b.applyDeviationBreach()
	return ok
}

// Cancel erases the working order (clientID, orderID) from the named side.
func (b *OrderBook) Cancel(orderID, clientID uint32, way OrderWay) bool {
	if !way.Valid() {
		return false
	}
	return b.container.Delete(orderID, clientID, way)
}

// CancelAllOrders drains the book, emitting an unsolicited cancel per
// order.
func (b *OrderBook) CancelAllOrders() {
	b.container.CancelAllOrders()
}

// applyDeviationBreach runs the endogenous circuit breaker once the
// triggering matching pass has fully emitted its deals.
func (b *OrderBook) applyDeviationBreach() {
	if !b.deviationBreached {
		return
	}
	b.deviationBreached = false
	b.SetTradingPhase(IntradayAuction)
}

// SetTradingPhase drives the state machine. Leaving an auction phase for a
// non-auction phase uncrosses the book; the matching price then becomes
// the post-auction price, additionally the open price when the opening
// auction ends and the close price when the closing auction ends.
// Monitored-book registration tracks entry to and exit from the intraday
// auction. Re-asserting the current phase is a no-op.
func (b *OrderBook) SetTradingPhase(phase TradingPhase) bool {
	if !phase.Valid() {
		return false
	}
	if phase == b.phase {
		return true
	}

	old := b.phase

	if old.IsAuction() && !phase.IsAuction() {
		matchingPrice, matchingQty := b.container.MatchOrders()
		if matchingQty > 0 {
			b.postAuctionPrice = matchingPrice
			switch old {
			case OpeningAuction:
				b.openPrice = matchingPrice
			case ClosingAuction:
				b.closePrice = matchingPrice
			}
		}
	}

	if old == IntradayAuction {
		b.host.UnregisterMonitored(b)
	}
	if phase == IntradayAuction {
		b.host.RegisterMonitored(b)
	}

	b.phase = phase
	return true
}

func (b *OrderBook) GetTradingPhase() TradingPhase { return b.phase }

func (b *OrderBook) Instrument() Instrument   { return b.instrument }
func (b *OrderBook) LastPrice() Price         { return b.lastPrice }
func (b *OrderBook) OpenPrice() Price         { return b.openPrice }
func (b *OrderBook) ClosePrice() Price        { return b.closePrice }
func (b *OrderBook) PostAuctionPrice() Price  { return b.postAuctionPrice }
func (b *OrderBook) Turnover() uint64         { return b.turnover }
func (b *OrderBook) DailyVolume() Quantity    { return b.dailyVolume }
func (b *OrderBook) Container() *OrderContainer { return b.container }

// BookState is the restorable market-data state of a book.
type BookState struct {
	Phase            TradingPhase
	LastPrice        Price
	OpenPrice        Price
	ClosePrice       Price
	PostAuctionPrice Price
	Turnover         uint64
	DailyVolume      Quantity
}

func (b *OrderBook) State() BookState {
	return BookState{
		Phase:            b.phase,
		LastPrice:        b.lastPrice,
		OpenPrice:        b.openPrice,
		ClosePrice:       b.closePrice,
		PostAuctionPrice: b.postAuctionPrice,
		Turnover:         b.turnover,
		DailyVolume:      b.dailyVolume,
	}
}

// Restore rebuilds a book from a snapshot: market data, resting orders
// (requeued in their persisted priority order, without matching) and the
// burned key set.
func (b *OrderBook) Restore(state BookState, bids, asks []Order, keys []OrderKey) {
	b.lastPrice = state.LastPrice
	b.openPrice = state.OpenPrice
	b.closePrice = state.ClosePrice
	b.postAuctionPrice = state.PostAuctionPrice
	b.turnover = state.Turnover
	b.dailyVolume = state.DailyVolume

	for _, o := range bids {
		b.container.Insert(o, false)
	}
	for _, o := range asks {
		b.container.Insert(o, false)
	}
	for _, k := range keys {
		b.container.RestoreInsertedKey(k)
	}

	b.phase = state.Phase
	if b.phase == IntradayAuction {
		b.host.RegisterMonitored(b)
	}
}
