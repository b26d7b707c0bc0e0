package engine

import (
	"fmt"
	"time"
)

// Deal is the record of one execution: between a resting order and an
// aggressor in continuous trading, or between a resting bid and a resting
// ask when an auction uncrosses. It is immutable once created; Reference is assigned by the
// host when the deal is emitted.
type Deal struct {
	Price          Price
	Qty            Quantity
	BuyerClientID  uint32
	BuyerOrderID   uint32
	SellerClientID uint32
	SellerOrderID  uint32
	Timestamp      time.Time
	Reference      string
}

func NewDeal(price Price, qty Quantity, buyerClientID, buyerOrderID, sellerClientID, sellerOrderID uint32) *Deal {
	return &Deal{
		Price:          price,
		Qty:            qty,
		BuyerClientID:  buyerClientID,
		BuyerOrderID:   buyerOrderID,
		SellerClientID: sellerClientID,
		SellerOrderID:  sellerOrderID,
		Timestamp:      time.Now(),
	}
}

// Equal compares price, quantity and both party identities. Timestamp and
// reference are excluded.
func (d *Deal) Equal(o *Deal) bool {
	if d == o {
		return true
	}
	return d.Price == o.Price && d.Qty == o.Qty &&
		d.BuyerClientID == o.BuyerClientID && d.BuyerOrderID == o.BuyerOrderID &&
		d.SellerClientID == o.SellerClientID && d.SellerOrderID == o.SellerOrderID
}

func (d *Deal) String() string {
	return fmt.Sprintf("Deal[%d@%d buyer=%d/%d seller=%d/%d ref=%q]",
		d.Qty, d.Price, d.BuyerClientID, d.BuyerOrderID,
		d.SellerClientID, d.SellerOrderID, d.Reference)
}
