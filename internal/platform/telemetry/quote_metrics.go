package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QuoteMetrics exposes collection and sync counters to Prometheus.
// It implements ports.QuoteMetrics.
type QuoteMetrics struct {
	added      *prometheus.CounterVec
	syncs      *prometheus.CounterVec
	syncUpdate prometheus.Counter
	size       prometheus.Gauge
}

// NewQuoteMetrics creates the collectors and registers them with reg.
func NewQuoteMetrics(reg prometheus.Registerer) (*QuoteMetrics, error) {
	m := &QuoteMetrics{
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotekeeper",
			Name:      "quotes_added_total",
			Help:      "Quotes appended to the collection, by source.",
		}, []string{"source"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotekeeper",
			Name:      "sync_runs_total",
			Help:      "Server sync attempts, by result.",
		}, []string{"result"}),
		syncUpdate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quotekeeper",
			Name:      "sync_category_updates_total",
			Help:      "Local quotes whose category was overwritten by a sync.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quotekeeper",
			Name:      "quotes",
			Help:      "Number of quotes in the collection.",
		}),
	}

	for _, c := range []prometheus.Collector{m.added, m.syncs, m.syncUpdate, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *QuoteMetrics) QuotesAdded(source string, n int) {
	if n > 0 {
		m.added.WithLabelValues(source).Add(float64(n))
	}
}

func (m *QuoteMetrics) SyncCompleted(result string, updated int) {
	m.syncs.WithLabelValues(result).Inc()

	if updated > 0 {
		m.syncUpdate.Add(float64(updated))
	}
}

func (m *QuoteMetrics) CollectionSize(n int) {
	m.size.Set(float64(n))
}
