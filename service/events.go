package service

import (
	"time"

	"vidar/domain/engine"
)

// DealEvent is the outward wire form of an execution. It is what lands in
// the outbox, on the deals topic and on the trade stream.
type DealEvent struct {
	V              int       `json:"v"`
	Instrument     string    `json:"instrument"`
	Seq            uint64    `json:"seq"`
	Price          uint64    `json:"price"`
	Qty            uint64    `json:"qty"`
	BuyerClientID  uint32    `json:"buyer_client_id"`
	BuyerOrderID   uint32    `json:"buyer_order_id"`
	SellerClientID uint32    `json:"seller_client_id"`
	SellerOrderID  uint32    `json:"seller_order_id"`
	Reference      string    `json:"reference"`
	Timestamp      time.Time `json:"timestamp"`
}

func dealEventFrom(instrument string, seq uint64, deal *engine.Deal) DealEvent {
	return DealEvent{
		V:              1,
		Instrument:     instrument,
		Seq:            seq,
		Price:          uint64(deal.Price),
		Qty:            uint64(deal.Qty),
		BuyerClientID:  deal.BuyerClientID,
		BuyerOrderID:   deal.BuyerOrderID,
		SellerClientID: deal.SellerClientID,
		SellerOrderID:  deal.SellerOrderID,
		Reference:      deal.Reference,
		Timestamp:      deal.Timestamp,
	}
}

// CancelEvent reports an unsolicited cancel from CancelAllOrders.
type CancelEvent struct {
	V          int    `json:"v"`
	Instrument string `json:"instrument"`
	ClientID   uint32 `json:"client_id"`
	OrderID    uint32 `json:"order_id"`
	Way        string `json:"way"`
	Price      uint64 `json:"price"`
	Qty        uint64 `json:"qty"`
}

// MarketData is the per-book session summary exposed to the gateway and
// the market-data publisher.
type MarketData struct {
	Instrument       string `json:"instrument"`
	ISIN             string `json:"isin"`
	Currency         string `json:"currency"`
	Phase            string `json:"phase"`
	LastPrice        uint64 `json:"last_price"`
	OpenPrice        uint64 `json:"open_price"`
	ClosePrice       uint64 `json:"close_price"`
	PostAuctionPrice uint64 `json:"post_auction_price"`
	Turnover         uint64 `json:"turnover"`
	DailyVolume      uint64 `json:"daily_volume"`
}
