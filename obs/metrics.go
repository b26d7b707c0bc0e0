package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the engine's operational counters to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	OrdersAccepted prometheus.Counter
	OrdersRejected prometheus.Counter
	DealsExecuted  prometheus.Counter
	Turnover       prometheus.Counter
	MonitoredBooks prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		OrdersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_accepted_total",
			Help:      "Commands accepted by the engine",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Commands rejected by the engine",
		}),
		DealsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_executed_total",
			Help:      "Deals emitted by all books",
		}),
		Turnover: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turnover_total",
			Help:      "Sum of price*quantity over all deals",
		}),
		MonitoredBooks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitored_books",
			Help:      "Books currently halted in an intraday auction",
		}),
	}

	registry.MustRegister(
		m.OrdersAccepted,
		m.OrdersRejected,
		m.DealsExecuted,
		m.Turnover,
		m.MonitoredBooks,
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
