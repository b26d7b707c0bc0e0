package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vidar/domain/engine"
	"vidar/service"
)

// Server is the HTTP + websocket gateway: order entry over plain JSON
// posts, live deal and cancel streams over websockets, book views for
// humans and tools.
type Server struct {
	svc       *service.OrderService
	dealHub   *hub[service.DealEvent]
	cancelHub *hub[service.CancelEvent]
	upgrader  websocket.Upgrader
	metrics   http.Handler
	log       *zap.SugaredLogger
}

type orderRequest struct {
	Instrument string `json:"instrument"`
	ClientID   uint32 `json:"client_id"`
	OrderID    uint32 `json:"order_id"`
	Side       string `json:"side"`
	Price      uint64 `json:"price"`
	Quantity   uint64 `json:"quantity"`
}

type replaceRequest struct {
	Instrument      string `json:"instrument"`
	ClientID        uint32 `json:"client_id"`
	ExistingOrderID uint32 `json:"existing_order_id"`
	ReplacedOrderID uint32 `json:"replaced_order_id"`
	Side            string `json:"side"`
	Price           uint64 `json:"price"`
	Quantity        uint64 `json:"quantity"`
}

type cancelRequest struct {
	Instrument string `json:"instrument"`
	ClientID   uint32 `json:"client_id"`
	OrderID    uint32 `json:"order_id"`
	Side       string `json:"side"`
}

type phaseRequest struct {
	Instrument string `json:"instrument"`
	Phase      string `json:"phase"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func NewServer(svc *service.OrderService, metrics http.Handler, log *zap.SugaredLogger) *Server {
	s := &Server{
		svc:       svc,
		dealHub:   newHub[service.DealEvent](),
		cancelHub: newHub[service.CancelEvent](),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		metrics:   metrics,
		log:       log,
	}

	svc.OnDealEvent(s.dealHub.Broadcast)
	svc.OnCancelEvent(s.cancelHub.Broadcast)
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.handleInsert)
	mux.HandleFunc("/orders/replace", s.handleReplace)
	mux.HandleFunc("/orders/cancel", s.handleCancel)
	mux.HandleFunc("/phase", s.handlePhase)
	mux.HandleFunc("/book", s.handleBook)
	mux.HandleFunc("/marketdata", s.handleMarketData)
	mux.HandleFunc("/instruments", s.handleInstruments)
	mux.HandleFunc("/ws/deals", s.handleDealStream)
	mux.HandleFunc("/ws/cancels", s.handleCancelStream)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// -------------------- Commands --------------------

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	way, ok := parseSide(req.Side)
	if !ok {
		http.Error(w, "invalid side", http.StatusBadRequest)
		return
	}

	accepted := s.svc.Insert(req.Instrument, engine.Order{
		Way:      way,
		Qty:      engine.Quantity(req.Quantity),
		Price:    engine.Price(req.Price),
		OrderID:  req.OrderID,
		ClientID: req.ClientID,
	})
	writeStatus(w, accepted)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	way, ok := parseSide(req.Side)
	if !ok {
		http.Error(w, "invalid side", http.StatusBadRequest)
		return
	}

	accepted := s.svc.Modify(req.Instrument, engine.OrderReplace{
		Way:             way,
		Qty:             engine.Quantity(req.Quantity),
		Price:           engine.Price(req.Price),
		ExistingOrderID: req.ExistingOrderID,
		ReplacedOrderID: req.ReplacedOrderID,
		ClientID:        req.ClientID,
	})
	writeStatus(w, accepted)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	way, ok := parseSide(req.Side)
	if !ok {
		http.Error(w, "invalid side", http.StatusBadRequest)
		return
	}

	writeStatus(w, s.svc.Cancel(req.Instrument, req.OrderID, req.ClientID, way))
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req phaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phase, ok := parsePhase(req.Phase)
	if !ok {
		http.Error(w, "invalid phase", http.StatusBadRequest)
		return
	}

	writeStatus(w, s.svc.SetTradingPhase(req.Instrument, phase))
}

// -------------------- Queries --------------------

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("instrument")

	mode := engine.ViewByOrder
	if r.URL.Query().Get("mode") == "prices" {
		mode = engine.ViewByPrice
	}

	out, ok := s.svc.RenderBook(instrument, mode)
	if !ok {
		http.Error(w, "unknown instrument", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	md, ok := s.svc.MarketData(r.URL.Query().Get("instrument"))
	if !ok {
		http.Error(w, "unknown instrument", http.StatusNotFound)
		return
	}
	writeJSON(w, md)
}

func (s *Server) handleInstruments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.svc.Instruments())
}

// -------------------- Streams --------------------

func (s *Server) handleDealStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.dealHub.Subscribe(256)
	defer s.dealHub.Unsubscribe(sub)

	for ev := range sub.ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func (s *Server) handleCancelStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.cancelHub.Subscribe(256)
	defer s.cancelHub.Unsubscribe(sub)

	for ev := range sub.ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// -------------------- Helpers --------------------

func parseSide(side string) (engine.OrderWay, bool) {
	switch strings.ToLower(side) {
	case "buy", "bid":
		return engine.Buy, true
	case "sell", "ask":
		return engine.Sell, true
	default:
		return 0, false
	}
}

func parsePhase(phase string) (engine.TradingPhase, bool) {
	switch strings.ToUpper(phase) {
	case "CLOSE":
		return engine.Close, true
	case "OPENING_AUCTION":
		return engine.OpeningAuction, true
	case "CONTINUOUS_TRADING":
		return engine.ContinuousTrading, true
	case "INTRADAY_AUCTION":
		return engine.IntradayAuction, true
	case "CLOSING_AUCTION":
		return engine.ClosingAuction, true
	default:
		return 0, false
	}
}

func writeStatus(w http.ResponseWriter, accepted bool) {
	w.Header().Set("Content-Type", "application/json")
	status := "accepted"
	if !accepted {
		status = "rejected"
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	_ = json.NewEncoder(w).Encode(statusResponse{Status: status})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
