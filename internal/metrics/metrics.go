// Package metrics exposes run counters and live gauges in Prometheus
// format.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edirooss/lfg-sim/internal/dungeon"
)

const namespace = "lfg"

// SimCollectors bundles the run's Prometheus collectors. It owns a
// private registry so every run starts from zero and never collides
// with another registry in the same process.
//
// The counters are fed through the event stream; the gauges read the
// simulation directly at scrape time.
type SimCollectors struct {
	reg *prometheus.Registry

	arrivals prometheus.Counter
	entered  prometheus.Counter
	finished prometheus.Counter
}

func New() *SimCollectors {
	m := &SimCollectors{
		reg: prometheus.NewRegistry(),
		arrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arrival_cycles_total",
			Help:      "Arrival cycles completed by the feed.",
		}),
		entered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parties_entered_total",
			Help:      "Parties that entered a dungeon instance.",
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parties_finished_total",
			Help:      "Parties that finished their dungeon run.",
		}),
	}
	m.reg.MustRegister(m.arrivals, m.entered, m.finished)
	return m
}

// Publish implements dungeon.EventSink.
func (m *SimCollectors) Publish(_ context.Context, ev dungeon.Event) {
	switch ev.Kind {
	case dungeon.EventArrival:
		m.arrivals.Inc()
	case dungeon.EventPartyEnter:
		m.entered.Inc()
	case dungeon.EventPartyExit:
		m.finished.Inc()
	}
}

// ObserveSim registers gauges backed by sim's live accessors. Call
// once per SimCollectors; the gauges hold sim for the process
// lifetime.
func (m *SimCollectors) ObserveSim(sim *dungeon.Sim) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "slots_in_use",
		Help:      "Dungeon instances currently occupied.",
	}, func() float64 { return float64(sim.SlotsInUse()) }))

	pooled := func(role string, pick func(tanks, healers, dps int) int) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "players_pooled",
			Help:        "Players waiting in the pool.",
			ConstLabels: prometheus.Labels{"role": role},
		}, func() float64 {
			return float64(pick(sim.PoolCounts()))
		})
	}
	m.reg.MustRegister(
		pooled("tank", func(t, _, _ int) int { return t }),
		pooled("healer", func(_, h, _ int) int { return h }),
		pooled("dps", func(_, _, d int) int { return d }),
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *SimCollectors) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
