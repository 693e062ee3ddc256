// Package metrics exports tape activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/adtape/internal/events"
)

// Metrics counts the events of the tapes it is attached to.
type Metrics struct {
	Events      *prometheus.CounterVec
	Evaluations *prometheus.CounterVec
	Largest     prometheus.Gauge
	MemoryUsed  prometheus.Gauge
	MemoryAlloc prometheus.Gauge
}

// New registers the tape metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adtape_events_total",
			Help: "Tape events by kind",
		}, []string{"kind"}),
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adtape_evaluations_total",
			Help: "Tape sweeps by direction",
		}, []string{"direction"}),
		Largest: f.NewGauge(prometheus.GaugeOpts{
			Name: "adtape_largest_identifier",
			Help: "Largest identifier assigned when recording last stopped",
		}),
		MemoryUsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "adtape_memory_used_bytes",
			Help: "Bytes used by the tape when recording last stopped",
		}),
		MemoryAlloc: f.NewGauge(prometheus.GaugeOpts{
			Name: "adtape_memory_allocated_bytes",
			Help: "Bytes allocated by the tape when recording last stopped",
		}),
	}
}

// Attach registers m for every event kind of reg.
func (m *Metrics) Attach(reg *events.Registry) []events.Handle {
	return reg.ListenAll(m.Handle)
}

// Handle processes one event.
func (m *Metrics) Handle(e *events.Event) {
	m.Events.WithLabelValues(e.Kind.String()).Inc()
	switch e.Kind {
	case events.Evaluate:
		if e.Forward {
			m.Evaluations.WithLabelValues("forward").Inc()
		} else {
			m.Evaluations.WithLabelValues("reverse").Inc()
		}
	case events.StopRecording:
		if e.Tape == nil {
			return
		}
		m.Largest.Set(float64(e.Tape.LargestIdentifier()))
		s := e.Tape.Stats()
		m.MemoryUsed.Set(float64(s.UsedMemory()))
		m.MemoryAlloc.Set(float64(s.AllocatedMemory()))
	}
}
