package metrics

import (
	"net/http"

	"market-stream/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IStreamStats is what the registry exposes for scraping.
type IStreamStats interface {
	ConnectionCount() int
	AccountCount() int
	Delivered() uint64
	Dropped() uint64
}

// ICacheStats is what the price cache exposes for scraping.
type ICacheStats interface {
	Stats() models.MCacheStats
}

// -----------------------------------------------------------------------------

// Metrics holds a private prometheus registry so tests and multiple
// instances never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry
	Commands *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Inbound connection commands by type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(commands)

	return &Metrics{Registry: reg, Commands: commands}
}

// -----------------------------------------------------------------------------

// ObserveStream registers gauges reading live values from the registry.
func (m *Metrics) ObserveStream(namespace string, s IStreamStats) {
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open subscriber connections.",
		}, func() float64 { return float64(s.ConnectionCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "subscribed_accounts",
			Help: "Accounts with at least one subscriber.",
		}, func() float64 { return float64(s.AccountCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_delivered_total",
			Help: "Messages handed to subscriber queues.",
		}, func() float64 { return float64(s.Delivered()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_dropped_total",
			Help: "Deliveries that failed and removed the subscriber.",
		}, func() float64 { return float64(s.Dropped()) }),
	)
}

// ObserveCache registers price cache gauges and counters.
func (m *Metrics) ObserveCache(namespace string, c ICacheStats) {
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "price_cache", Name: "entries",
			Help: "Cached price keys, expired or not.",
		}, func() float64 { return float64(c.Stats().TotalEntries) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "price_cache", Name: "valid_entries",
			Help: "Cached price keys within TTL.",
		}, func() float64 { return float64(c.Stats().ValidEntries) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "price_cache", Name: "hits_total",
			Help: "Lookups served from cache.",
		}, func() float64 { return float64(c.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "price_cache", Name: "misses_total",
			Help: "Lookups that missed or found a stale price.",
		}, func() float64 { return float64(c.Stats().Misses) }),
	)
}

// Command counts one handled inbound command.
func (m *Metrics) Command(kind, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(kind, outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
