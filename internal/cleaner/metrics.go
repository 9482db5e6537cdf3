package cleaner

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report cleaner activity.
type Metrics struct {
	added     prometheus.Counter
	evictions prometheus.Counter
	purges    prometheus.Counter
	deletes   *prometheus.CounterVec
}

// MustNewMetrics registers the cleaner collectors with reg, reusing
// collectors that are already registered. Any other registration error
// panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		added: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatterbox",
			Subsystem: "cleaner",
			Name:      "tracked_added_total",
			Help:      "Messages registered with the cleaner.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatterbox",
			Subsystem: "cleaner",
			Name:      "evictions_total",
			Help:      "Adds that called the transport to delete the oldest tracked message first.",
		}),
		purges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatterbox",
			Subsystem: "cleaner",
			Name:      "purges_total",
			Help:      "Purge operations started.",
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatterbox",
			Subsystem: "cleaner",
			Name:      "deletes_total",
			Help:      "Transport delete attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.added = register(reg, m.added)
	m.evictions = register(reg, m.evictions)
	m.purges = register(reg, m.purges)
	m.deletes = register(reg, m.deletes)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// IncAdded counts a tracked message.
func (m *Metrics) IncAdded() {
	if m == nil {
		return
	}
	m.added.Inc()
}

// IncEviction counts an add that called the transport to evict.
func (m *Metrics) IncEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

// IncPurge counts a purge.
func (m *Metrics) IncPurge() {
	if m == nil {
		return
	}
	m.purges.Inc()
}

// IncDelete counts a transport delete attempt.
func (m *Metrics) IncDelete(o DeleteOutcome) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(o.String()).Inc()
}
