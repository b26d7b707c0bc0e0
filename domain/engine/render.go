package engine

import (
	"fmt"
	"io"
	"strings"
)

// ViewMode selects the human-readable rendering of a container.
type ViewMode uint8

const (
	ViewByOrder ViewMode = iota
	ViewByPrice
)

func (c *OrderContainer) SetViewMode(m ViewMode) { c.viewMode = m }

func (c *OrderContainer) String() string {
	var sb strings.Builder
	c.Render(&sb)
	return sb.String()
}

// Render writes the book side by side, bids left, asks right, in the
// currently selected view mode.
func (c *OrderContainer) Render(w io.Writer) {
	switch c.viewMode {
	case ViewByOrder:
		c.renderByOrder(w)
	case ViewByPrice:
		c.renderByPrice(w)
	default:
		panic("engine: invalid view mode")
	}
}

func (c *OrderContainer) renderByOrder(w io.Writer) {
	bids, asks := c.ByOrderView()

	fmt.Fprintln(w, "|        BID         |        ASK        |")
	fmt.Fprintln(w, "|                    |                   |")

	rows := len(bids)
	if len(asks) > rows {
		rows = len(asks)
	}
	for i := 0; i < rows; i++ {
		bid, ask := "0", "0"
		if i < len(bids) {
			bid = fmt.Sprintf("%d@%d", bids[i].Qty, bids[i].Price)
		}
		if i < len(asks) {
			ask = fmt.Sprintf("%d@%d", asks[i].Qty, asks[i].Price)
		}
		fmt.Fprintf(w, "|%13s       |%13s      |\n", bid, ask)
	}
}

func (c *OrderContainer) renderByPrice(w io.Writer) {
	bids, asks := c.AggregatedView()

	fmt.Fprintln(w, "|         BID          |         ASK         |")
	fmt.Fprintln(w, "|                      |                     |")

	rows := len(bids)
	if len(asks) > rows {
		rows = len(asks)
	}
	for i := 0; i < rows; i++ {
		bid, ask := "0", "0"
		if i < len(bids) {
			bid = fmt.Sprintf("%d   %d@%d", bids[i].Count, bids[i].Qty, bids[i].Price)
		}
		if i < len(asks) {
			ask = fmt.Sprintf("%d   %d@%d", asks[i].Count, asks[i].Qty, asks[i].Price)
		}
		fmt.Fprintf(w, "|%15s       |%15s      |\n", bid, ask)
	}
}
