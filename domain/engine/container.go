package engine

import "sort"

// EventHandler receives the executions and unsolicited cancels a container
// produces. The container holds a non-owning reference; the handler must
// not re-enter the container from a callback.
type EventHandler interface {
	OnDeal(deal *Deal)
	OnUnsolicitedCancelledOrder(order Order)
}

// sideBook is one side of the container: price levels ordered by an
// rb-tree for priority iteration, plus an identity index for O(1) lookup
// by (client id, order id).
type sideBook struct {
	way   OrderWay
	tree  *rbTree
	byKey map[OrderKey]*Order
}

func newSideBook(way OrderWay) *sideBook {
	return &sideBook{
		way:   way,
		tree:  newRBTree(),
		byKey: make(map[OrderKey]*Order),
	}
}

func (s *sideBook) insert(o Order) bool {
	key := o.Key()
	if _, dup := s.byKey[key]; dup {
		return false
	}
	resting := &Order{
		Way:      o.Way,
		Qty:      o.Qty,
		Price:    o.Price,
		OrderID:  o.OrderID,
		ClientID: o.ClientID,
	}
	s.tree.UpsertLevel(o.Price).Enqueue(resting)
	s.byKey[key] = resting
	return true
}

func (s *sideBook) find(key OrderKey) *Order { return s.byKey[key] }

// erase unlinks o and drops its level once empty.
func (s *sideBook) erase(o *Order) {
	lvl := o.level
	lvl.Unlink(o)
	if lvl.Empty() {
		s.tree.DeleteLevel(lvl.price)
	}
	delete(s.byKey, o.Key())
}

func (s *sideBook) eraseByKey(key OrderKey) bool {
	o := s.byKey[key]
	if o == nil {
		return false
	}
	s.erase(o)
	return true
}

// bestLevel is the most aggressive level: highest bid, lowest ask.
func (s *sideBook) bestLevel() *priceLevel {
	if s.way == Buy {
		return s.tree.MaxLevel()
	}
	return s.tree.MinLevel()
}

// front is the resting order with price then time priority.
func (s *sideBook) front() *Order {
	lvl := s.bestLevel()
	if lvl == nil {
		return nil
	}
	return lvl.Head()
}

// forEachLevel walks levels in priority order: descending prices for
// bids, ascending for asks.
func (s *sideBook) forEachLevel(fn func(*priceLevel) bool) {
	if s.way == Buy {
		s.tree.ForEachDescending(fn)
	} else {
		s.tree.ForEachAscending(fn)
	}
}

// executableQty sums the resting quantity executable against price:
// bids at or above it, asks at or below it.
func (s *sideBook) executableQty(price Price) Quantity {
	var qty Quantity
	s.forEachLevel(func(lvl *priceLevel) bool {
		if s.way == Buy {
			if lvl.price < price {
				return false
			}
		} else {
			if lvl.price > price {
				return false
			}
		}
		qty += lvl.totalQty
		return true
	})
	return qty
}

func (s *sideBook) size() int { return len(s.byKey) }

// OrderContainer is the dual-sided indexed order store of one book. All
// resting orders are owned by the container; views copy.
type OrderContainer struct {
	bids *sideBook
	asks *sideBook

	// every key ever accepted this session, never pruned
	inserted map[OrderKey]struct{}

	handler  EventHandler
	viewMode ViewMode
}

func NewOrderContainer(handler EventHandler) *OrderContainer {
	return &OrderContainer{
		bids:     newSideBook(Buy),
		asks:     newSideBook(Sell),
		inserted: make(map[OrderKey]struct{}),
		handler:  handler,
		viewMode: ViewByOrder,
	}
}

func (c *OrderContainer) sideFor(way OrderWay) *sideBook {
	switch way {
	case Buy:
		return c.bids
	case Sell:
		return c.asks
	default:
		panic("engine: invalid order way")
	}
}

func (c *OrderContainer) oppositeFor(way OrderWay) *sideBook {
	switch way {
	case Buy:
		return c.asks
	case Sell:
		return c.bids
	default:
		panic("engine: invalid order way")
	}
}

// executableQuantity is the quantity an aggressor at price can trade
// against the opposite side, capped by its own quantity.
func (c *OrderContainer) executableQuantity(msg aggressor, way OrderWay) Quantity {
	maxQty := c.oppositeFor(way).executableQty(msg.aggressorPrice())
	return minQty(maxQty, msg.aggressorQty())
}

// processDeals crosses the aggressor against the opposite side until
// matchQty is consumed. On entry matchQty must not exceed either the
// aggressor's quantity or the executable resting quantity.
func (c *OrderContainer) processDeals(opposite *sideBook, msg aggressor, matchQty Quantity) {
	for matchQty > 0 {
		resting := opposite.front()

		execQty := minQty(resting.Qty, msg.aggressorQty())
		execPrice := minPrice(resting.Price, msg.aggressorPrice())

		msg.removeQuantity(execQty)
		resting.level.Reduce(resting, execQty)

		matchQty = matchQty.Sub(execQty)

		var deal *Deal
		if resting.Way == Buy {
			deal = NewDeal(execPrice, execQty,
				resting.ClientID, resting.OrderID,
				msg.aggressorClientID(), msg.aggressorOrderID())
		} else {
			deal = NewDeal(execPrice, execQty,
				msg.aggressorClientID(), msg.aggressorOrderID(),
				resting.ClientID, resting.OrderID)
		}
		c.handler.OnDeal(deal)

		if resting.Qty == 0 {
			opposite.erase(resting)
		}
	}
}

// Insert accepts a new order, matching it against the opposite side first
// when match is set. Returns false on a duplicate (client id, order id).
func (c *OrderContainer) Insert(order Order, match bool) bool {
	key := order.Key()
	if _, seen := c.inserted[key]; seen {
		return false
	}

	if match {
		matchQty := c.executableQuantity(&order, order.Way)
		if matchQty > 0 {
			c.processDeals(c.oppositeFor(order.Way), &order, matchQty)
		}
	}

	if order.Qty > 0 {
		if !c.sideFor(order.Way).insert(order) {
			return false
		}
	}

	c.inserted[key] = struct{}{}
	return true
}

// Delete erases the order (clientID, orderID) from the side named by way.
// The key stays burned for the rest of the session.
func (c *OrderContainer) Delete(orderID, clientID uint32, way OrderWay) bool {
	return c.sideFor(way).eraseByKey(KeyOf(clientID, orderID))
}

// Modify replaces a working order. The surviving quantity after an
// optional matching pass is requeued under the replacement id as a fresh
// arrival; both the old and the new key are burned.
func (c *OrderContainer) Modify(replace OrderReplace, match bool) bool {
	oldKey := KeyOf(replace.ClientID, replace.ExistingOrderID)
	newKey := KeyOf(replace.ClientID, replace.ReplacedOrderID)

	if _, seen := c.inserted[newKey]; seen {
		return false
	}

	side := c.sideFor(replace.Way)
	existing := side.find(oldKey)
	if existing == nil {
		return false
	}

	if match {
		matchQty := c.executableQuantity(&replace, replace.Way)
		if matchQty > 0 {
			c.processDeals(c.oppositeFor(replace.Way), &replace, matchQty)
		}
	}

	side.erase(existing)

	if replace.Qty > 0 {
		side.insert(Order{
			Way:      replace.Way,
			Qty:      replace.Qty,
			Price:    replace.Price,
			OrderID:  replace.ReplacedOrderID,
			ClientID: replace.ClientID,
		})
	}

	c.inserted[oldKey] = struct{}{}
	c.inserted[newKey] = struct{}{}
	return true
}

// CancelAllOrders drains both sides, asks first, best price first,
// emitting an unsolicited cancel for every order removed.
func (c *OrderContainer) CancelAllOrders() {
	drain := func(s *sideBook) {
		for {
			o := s.front()
			if o == nil {
				return
			}
			c.handler.OnUnsolicitedCancelledOrder(*o)
			s.erase(o)
		}
	}
	drain(c.asks)
	drain(c.bids)
}

// GetTheoreticalAuctionInformation computes the uncrossing price and the
// volume tradable at it. Candidate prices are the resting ask prices,
// scanned in priority order; the first price reaching the maximum volume
// wins. With no asks the result is (0, 0).
func (c *OrderContainer) GetTheoreticalAuctionInformation() (Price, Quantity) {
	var (
		maxQty    Quantity
		openPrice Price
	)
	c.asks.tree.ForEachAscending(func(lvl *priceLevel) bool {
		bidQty := c.bids.executableQty(lvl.price)
		askQty := c.asks.executableQty(lvl.price)

		if cur := minQty(bidQty, askQty); cur > maxQty {
			maxQty = cur
			openPrice = lvl.price
		}
		return true
	})
	return openPrice, maxQty
}

// MatchOrders uncrosses the book after an auction: bids and asks are
// paired in priority order, every deal printing at the single matching
// price. Returns that price and the total quantity crossed.
func (c *OrderContainer) MatchOrders() (Price, Quantity) {
	matchingPrice, matchingQty := c.GetTheoreticalAuctionInformation()
	total := matchingQty

	for matchingQty > 0 {
		bid := c.bids.front()

		for bid.Qty > 0 && matchingQty > 0 {
			ask := c.asks.front()

			execQty := minQty(ask.Qty, bid.Qty)

			ask.level.Reduce(ask, execQty)
			bid.level.Reduce(bid, execQty)

			c.handler.OnDeal(NewDeal(matchingPrice, execQty,
				bid.ClientID, bid.OrderID,
				ask.ClientID, ask.OrderID))

			matchingQty = matchingQty.Sub(execQty)

			if ask.Qty == 0 {
				c.asks.erase(ask)
			}
		}

		if bid.Qty == 0 {
			c.bids.erase(bid)
		}
	}
	return matchingPrice, total
}

// Limit is one aggregated price level of a view.
type Limit struct {
	Count int
	Qty   Quantity
	Price Price
}

// ByOrderView copies both sides in price-time priority order.
func (c *OrderContainer) ByOrderView() (bids, asks []Order) {
	collect := func(s *sideBook) []Order {
		out := make([]Order, 0, s.size())
		s.forEachLevel(func(lvl *priceLevel) bool {
			for o := lvl.Head(); o != nil; o = o.next {
				out = append(out, Order{
					Way:      o.Way,
					Qty:      o.Qty,
					Price:    o.Price,
					OrderID:  o.OrderID,
					ClientID: o.ClientID,
				})
			}
			return true
		})
		return out
	}
	return collect(c.bids), collect(c.asks)
}

// AggregatedView folds each side into (order count, total qty, price)
// levels in priority order.
func (c *OrderContainer) AggregatedView() (bids, asks []Limit) {
	collect := func(s *sideBook) []Limit {
		out := make([]Limit, 0, s.tree.Size())
		s.forEachLevel(func(lvl *priceLevel) bool {
			out = append(out, Limit{
				Count: lvl.orderCount,
				Qty:   lvl.totalQty,
				Price: lvl.price,
			})
			return true
		})
		return out
	}
	return collect(c.bids), collect(c.asks)
}

// RestoreInsertedKey re-burns a key while rebuilding a book from a
// snapshot; it never unburns one.
func (c *OrderContainer) RestoreInsertedKey(key OrderKey) {
	c.inserted[key] = struct{}{}
}

// InsertedKeys lists every key accepted this session, sorted, for
// snapshotting.
func (c *OrderContainer) InsertedKeys() []OrderKey {
	keys := make([]OrderKey, 0, len(c.inserted))
	for k := range c.inserted {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (c *OrderContainer) BidCount() int { return c.bids.size() }
func (c *OrderContainer) AskCount() int { return c.asks.size() }
