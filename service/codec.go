package service

import (
	"fmt"
	"strconv"
	"strings"

	"vidar/domain/engine"
)

// WAL payloads are pipe-delimited text. Compact enough, and a segment is
// readable with strings(1) when something goes wrong at 3am.

func encodeInsert(instrument string, o engine.Order) []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%d|%d|%d",
		instrument, o.ClientID, o.OrderID, o.Way, o.Price, o.Qty))
}

func decodeInsert(data []byte) (string, engine.Order, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 6 {
		return "", engine.Order{}, fmt.Errorf("invalid insert payload: %q", data)
	}
	clientID, err := parseUint32(parts[1])
	if err != nil {
		return "", engine.Order{}, err
	}
	orderID, err := parseUint32(parts[2])
	if err != nil {
		return "", engine.Order{}, err
	}
	way, err := parseUint8(parts[3])
	if err != nil {
		return "", engine.Order{}, err
	}
	price, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return "", engine.Order{}, err
	}
	qty, err := strconv.ParseUint(parts[5], 10, 64)
	if err != nil {
		return "", engine.Order{}, err
	}
	return parts[0], engine.Order{
		Way:      engine.OrderWay(way),
		Qty:      engine.Quantity(qty),
		Price:    engine.Price(price),
		OrderID:  orderID,
		ClientID: clientID,
	}, nil
}

func encodeModify(instrument string, r engine.OrderReplace) []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%d|%d|%d|%d",
		instrument, r.ClientID, r.ExistingOrderID, r.ReplacedOrderID, r.Way, r.Price, r.Qty))
}

func decodeModify(data []byte) (string, engine.OrderReplace, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 7 {
		return "", engine.OrderReplace{}, fmt.Errorf("invalid modify payload: %q", data)
	}
	clientID, err := parseUint32(parts[1])
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	existingID, err := parseUint32(parts[2])
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	replacedID, err := parseUint32(parts[3])
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	way, err := parseUint8(parts[4])
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	price, err := strconv.ParseUint(parts[5], 10, 64)
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	qty, err := strconv.ParseUint(parts[6], 10, 64)
	if err != nil {
		return "", engine.OrderReplace{}, err
	}
	return parts[0], engine.OrderReplace{
		Way:             engine.OrderWay(way),
		Qty:             engine.Quantity(qty),
		Price:           engine.Price(price),
		ExistingOrderID: existingID,
		ReplacedOrderID: replacedID,
		ClientID:        clientID,
	}, nil
}

func encodeCancel(instrument string, orderID, clientID uint32, way engine.OrderWay) []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%d", instrument, clientID, orderID, way))
}

func decodeCancel(data []byte) (instrument string, orderID, clientID uint32, way engine.OrderWay, err error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("invalid cancel payload: %q", data)
	}
	clientID, err = parseUint32(parts[1])
	if err != nil {
		return "", 0, 0, 0, err
	}
	orderID, err = parseUint32(parts[2])
	if err != nil {
		return "", 0, 0, 0, err
	}
	w, err := parseUint8(parts[3])
	if err != nil {
		return "", 0, 0, 0, err
	}
	return parts[0], orderID, clientID, engine.OrderWay(w), nil
}

func encodePhase(instrument string, phase engine.TradingPhase) []byte {
	return []byte(fmt.Sprintf("%s|%d", instrument, phase))
}

func decodePhase(data []byte) (string, engine.TradingPhase, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid phase payload: %q", data)
	}
	p, err := parseUint8(parts[1])
	if err != nil {
		return "", 0, err
	}
	return parts[0], engine.TradingPhase(p), nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), err
}
