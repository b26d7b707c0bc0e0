package service

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"vidar/domain/engine"
	"vidar/infra/sequence"
	entrywal "vidar/infra/wal/entry"
	exitwal "vidar/infra/wal/exit"
	"vidar/obs"
)

/*
OrderService is the only write entry point into the engine.

All coordination between the domain (books), the entry WAL, the deal
outbox, metrics and downstream listeners happens here. Books are
single-writer; the service's mutex is what serializes them.
*/
type OrderService struct {
	mu sync.Mutex

	engine   *engine.MatchingEngine
	entryWAL *entrywal.WAL
	outbox   *exitwal.WAL
	seq      *sequence.Sequencer
	metrics  *obs.Metrics
	log      *zap.SugaredLogger

	// listeners are registered at startup, before traffic
	dealListeners   []func(DealEvent)
	cancelListeners []func(CancelEvent)

	// set during WAL replay: state is rebuilt, but nothing leaves the
	// process again
	replaying bool
}

// NewOrderService wires all dependencies and lists the instruments.
// entryWAL and outbox may be nil (tests, dry runs); persistence is then
// disabled.
func NewOrderService(
	maxPriceDeviation uint64,
	instruments []engine.Instrument,
	entryWAL *entrywal.WAL,
	outbox *exitwal.WAL,
	seq *sequence.Sequencer,
	metrics *obs.Metrics,
	log *zap.SugaredLogger,
) (*OrderService, error) {
	s := &OrderService{
		entryWAL: entryWAL,
		outbox:   outbox,
		seq:      seq,
		metrics:  metrics,
		log:      log,
	}
	s.engine = engine.NewMatchingEngine(maxPriceDeviation, s)

	for _, in := range instruments {
		if _, err := s.engine.AddInstrument(in); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OnDealEvent registers a listener for executed deals. Not safe to call
// once traffic flows.
func (s *OrderService) OnDealEvent(fn func(DealEvent)) {
	s.dealListeners = append(s.dealListeners, fn)
}

// OnCancelEvent registers a listener for unsolicited cancels.
func (s *OrderService) OnCancelEvent(fn func(CancelEvent)) {
	s.cancelListeners = append(s.cancelListeners, fn)
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Insert submits a new order to the named book.
func (s *OrderService) Insert(instrument string, order engine.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		s.reject()
		return false
	}

	seq := s.seq.Next()
	s.logCommand(entrywal.RecordInsert, seq, encodeInsert(instrument, order))

	ok := book.Insert(order)
	s.account(ok)
	return ok
}

// Modify replaces a working order on the named book.
func (s *OrderService) Modify(instrument string, replace engine.OrderReplace) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		s.reject()
		return false
	}

	seq := s.seq.Next()
	s.logCommand(entrywal.RecordModify, seq, encodeModify(instrument, replace))

	ok := book.Modify(replace)
	s.account(ok)
	return ok
}

// Cancel erases a working order from the named book.
func (s *OrderService) Cancel(instrument string, orderID, clientID uint32, way engine.OrderWay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		s.reject()
		return false
	}

	seq := s.seq.Next()
	s.logCommand(entrywal.RecordCancel, seq, encodeCancel(instrument, orderID, clientID, way))

	ok := book.Cancel(orderID, clientID, way)
	s.account(ok)
	return ok
}

// SetTradingPhase drives the named book's phase machine.
func (s *OrderService) SetTradingPhase(instrument string, phase engine.TradingPhase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		s.reject()
		return false
	}

	seq := s.seq.Next()
	s.logCommand(entrywal.RecordPhase, seq, encodePhase(instrument, phase))

	ok := book.SetTradingPhase(phase)
	s.account(ok)
	return ok
}

func (s *OrderService) logCommand(t entrywal.RecordType, seq uint64, payload []byte) {
	if s.entryWAL == nil {
		return
	}
	if err := s.entryWAL.Append(entrywal.NewRecord(t, seq, payload)); err != nil {
		s.log.Errorw("entry wal append failed", "seq", seq, "err", err)
	}
}

func (s *OrderService) account(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.OrdersAccepted.Inc()
	} else {
		s.metrics.OrdersRejected.Inc()
	}
	s.metrics.MonitoredBooks.Set(float64(s.engine.MonitoredOrderBookCounter()))
}

func (s *OrderService) reject() {
	if s.metrics != nil {
		s.metrics.OrdersRejected.Inc()
	}
}

//
// ──────────────────────────────────────────────────────────
// Engine events
// ──────────────────────────────────────────────────────────
//

// OnDeal implements engine.EventSink. Called synchronously from inside a
// command, under the service mutex.
func (s *OrderService) OnDeal(instrument string, seq uint64, deal *engine.Deal) {
	if s.replaying {
		return
	}

	ev := dealEventFrom(instrument, seq, deal)

	if s.outbox != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = s.outbox.PutNew(seq, payload)
		}
		if err != nil {
			s.log.Errorw("deal outbox write failed", "seq", seq, "err", err)
		}
	}

	if s.metrics != nil {
		s.metrics.DealsExecuted.Inc()
		s.metrics.Turnover.Add(float64(engine.Notional(deal.Price, deal.Qty)))
	}

	for _, fn := range s.dealListeners {
		fn(ev)
	}

	s.log.Infow("deal",
		"instrument", instrument, "seq", seq,
		"price", uint64(deal.Price), "qty", uint64(deal.Qty))
}

// OnUnsolicitedCancelledOrder implements engine.EventSink.
func (s *OrderService) OnUnsolicitedCancelledOrder(instrument string, order engine.Order) {
	if s.replaying {
		return
	}

	ev := CancelEvent{
		V:          1,
		Instrument: instrument,
		ClientID:   order.ClientID,
		OrderID:    order.OrderID,
		Way:        order.Way.String(),
		Price:      uint64(order.Price),
		Qty:        uint64(order.Qty),
	}
	for _, fn := range s.cancelListeners {
		fn(ev)
	}

	s.log.Infow("unsolicited cancel",
		"instrument", instrument, "client", order.ClientID, "order", order.OrderID)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *OrderService) Instruments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Instruments()
}

func (s *OrderService) MonitoredOrderBookCounter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.MonitoredOrderBookCounter()
}

// MarketData returns the session summary of one book.
func (s *OrderService) MarketData(instrument string) (MarketData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		return MarketData{}, false
	}
	in := book.Instrument()
	return MarketData{
		Instrument:       in.Name,
		ISIN:             in.ISIN,
		Currency:         in.Currency,
		Phase:            book.GetTradingPhase().String(),
		LastPrice:        uint64(book.LastPrice()),
		OpenPrice:        uint64(book.OpenPrice()),
		ClosePrice:       uint64(book.ClosePrice()),
		PostAuctionPrice: uint64(book.PostAuctionPrice()),
		Turnover:         book.Turnover(),
		DailyVolume:      uint64(book.DailyVolume()),
	}, true
}

// ByOrderView copies one book's resting orders per side, priority order.
func (s *OrderService) ByOrderView(instrument string) (bids, asks []engine.Order, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		return nil, nil, false
	}
	bids, asks = book.Container().ByOrderView()
	return bids, asks, true
}

// AggregatedView folds one book into price levels per side.
func (s *OrderService) AggregatedView(instrument string) (bids, asks []engine.Limit, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		return nil, nil, false
	}
	bids, asks = book.Container().AggregatedView()
	return bids, asks, true
}

// RenderBook renders one book side by side in the requested mode.
func (s *OrderService) RenderBook(instrument string, mode engine.ViewMode) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.engine.Book(instrument)
	if book == nil {
		return "", false
	}
	book.Container().SetViewMode(mode)
	return book.Container().String(), true
}
