package observability

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for lifecycle activity.
type Metrics struct {
	transitions *prometheus.CounterVec
	vetoes      *prometheus.CounterVec
	active      prometheus.Gauge
}

// NewMetrics creates and registers the lifecycle collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_transitions_total",
				Help: "Total number of settled lifecycle transitions",
			},
			[]string{"module", "op", "result"},
		),
		vetoes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_unload_vetoes_total",
				Help: "Total number of vetoed unload negotiations",
			},
			[]string{"module"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lattice_loaded_modules",
				Help: "Number of modules currently in the loaded or suspended state",
			},
		),
	}
	reg.MustRegister(m.transitions, m.vetoes, m.active)
	return m
}

// Transitions exposes the transition counter (useful for tests).
func (m *Metrics) Transitions() *prometheus.CounterVec { return m.transitions }

// Vetoes exposes the veto counter (useful for tests).
func (m *Metrics) Vetoes() *prometheus.CounterVec { return m.vetoes }

// Observe records one settled transition.
func (m *Metrics) Observe(entry domain.TransitionEntry) {
	switch {
	case entry.Veto:
		// A veto is not a failed unload: the module keeps running.
		m.vetoes.WithLabelValues(entry.Module).Inc()
		return
	case entry.Error != "":
		m.transitions.WithLabelValues(entry.Module, string(entry.Op), "error").Inc()
		return
	}

	m.transitions.WithLabelValues(entry.Module, string(entry.Op), "ok").Inc()
	switch {
	case entry.Op == domain.OpLoad && entry.To == domain.StateLoaded:
		m.active.Inc()
	case entry.Op == domain.OpUnload && entry.To == domain.StateUnloaded:
		m.active.Dec()
	}
}

// instrumentedJournal decorates a ports.Journal with metric recording.
type instrumentedJournal struct {
	next    ports.Journal
	metrics *Metrics
}

// Instrument wraps a journal so every appended entry also feeds the
// lifecycle metrics. Wiring the instrumented journal into a module gives
// metrics for free, including vetoes that never reach the event topics.
func Instrument(next ports.Journal, metrics *Metrics) ports.Journal {
	return &instrumentedJournal{next: next, metrics: metrics}
}

func (j *instrumentedJournal) Append(ctx context.Context, entry domain.TransitionEntry) error {
	j.metrics.Observe(entry)
	return j.next.Append(ctx, entry)
}

func (j *instrumentedJournal) List(ctx context.Context, module string) ([]domain.TransitionEntry, error) {
	return j.next.List(ctx, module)
}
