package engine

import "fmt"

// Instrument is the static description of a tradable security. ClosePrice
// is the previous session's close and seeds the book's reference prices.
type Instrument struct {
	Name       string
	ISIN       string
	Currency   string
	TickSize   uint64
	ClosePrice Price
}

func (i Instrument) String() string {
	return fmt.Sprintf("Instrument[%s isin=%s ccy=%s tick=%d close=%d]",
		i.Name, i.ISIN, i.Currency, i.TickSize, i.ClosePrice)
}
