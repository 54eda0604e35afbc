package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	Active = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metronome_active",
		Help: "1 while a metronome is registered as the current player",
	})
)

// Counters
var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metronome_ticks_total",
		Help: "Ticks scheduled by kind (accent, regular, subdivision, silent)",
	}, []string{"kind"})
	RenderErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metronome_render_errors_total",
		Help: "Click writes that failed and stopped their tick loop",
	})
	StartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metronome_starts_total",
		Help: "Metronome starts through the arbiter",
	})
	PreemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metronome_preemptions_total",
		Help: "Running metronomes stopped because another one started",
	})
)

// Histograms
var (
	TickLateness = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metronome_tick_lateness_ms",
		Help:    "How far past its deadline a tick finished, in milliseconds",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})
)
