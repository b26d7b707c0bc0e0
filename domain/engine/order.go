package engine

import "fmt"

// OrderKey is the packed (client id, order id) identity of an order.
// It is unique within one book for a whole session.
type OrderKey uint64

func KeyOf(clientID, orderID uint32) OrderKey {
	return OrderKey(uint64(clientID)<<32 | uint64(orderID))
}

// Order is a limit order. Way, ClientID, OrderID and Price are fixed for
// the lifetime of a working order; Qty is the residual quantity and only
// ever decreases while the order rests.
type Order struct {
	Way      OrderWay
	Qty      Quantity
	Price    Price
	OrderID  uint32
	ClientID uint32

	// intrusive FIFO links, owned by the container
	next, prev *Order
	level      *priceLevel
}

func (o *Order) Key() OrderKey { return KeyOf(o.ClientID, o.OrderID) }

func (o Order) String() string {
	return fmt.Sprintf("Order[%s %d@%d client=%d id=%d]",
		o.Way, o.Qty, o.Price, o.ClientID, o.OrderID)
}

func (o *Order) aggressorPrice() Price      { return o.Price }
func (o *Order) aggressorQty() Quantity     { return o.Qty }
func (o *Order) aggressorClientID() uint32  { return o.ClientID }
func (o *Order) aggressorOrderID() uint32   { return o.OrderID }
func (o *Order) removeQuantity(q Quantity)  { o.Qty = o.Qty.Sub(q) }

// OrderReplace rewrites a working order: the order identified by
// (ClientID, ExistingOrderID) is erased and, if any quantity survives the
// matching pass, requeued under ReplacedOrderID with the new price. The
// requeued tail is a fresh arrival for priority purposes.
type OrderReplace struct {
	Way             OrderWay
	Qty             Quantity
	Price           Price
	ExistingOrderID uint32
	ReplacedOrderID uint32
	ClientID        uint32
}

func (r *OrderReplace) aggressorPrice() Price     { return r.Price }
func (r *OrderReplace) aggressorQty() Quantity    { return r.Qty }
func (r *OrderReplace) aggressorClientID() uint32 { return r.ClientID }

// An aggressing replace identifies itself by the replacement id.
func (r *OrderReplace) aggressorOrderID() uint32 { return r.ReplacedOrderID }

func (r *OrderReplace) removeQuantity(q Quantity) { r.Qty = r.Qty.Sub(q) }

// aggressor is the incoming message a matching pass consumes. Insert
// aggresses with the order's own id, Modify with the replacement id.
type aggressor interface {
	aggressorPrice() Price
	aggressorQty() Quantity
	aggressorClientID() uint32
	aggressorOrderID() uint32
	removeQuantity(Quantity)
}
