package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. Optimizer Epochs (Counter)
	// Counts SGD epochs executed by the layout optimizer.
	OptimizerEpochsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "semnav_optimizer_epochs_total",
			Help: "Total number of layout optimizer epochs executed",
		},
	)

	// 2. Frame Tick Duration (Histogram)
	// Measures one engine frame: optimizer batch + secondary layers + convergence check.
	// Buckets cover sub-frame ticks up to pathological multi-second stalls.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semnav_tick_duration_seconds",
			Help:    "Duration of one engine frame tick in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.016, 0.033, 0.1, 0.5, 1, 5},
		},
	)

	// 3. Active Nodes (Gauge)
	// Tracks the number of nodes in the current layout arena.
	ActiveNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "semnav_active_nodes",
			Help: "Number of nodes in the active layout",
		},
	)

	// 4. Communities (Gauge)
	// Community count per resolution level of the last detection pass.
	Communities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "semnav_communities",
			Help: "Number of detected communities",
		},
		[]string{"level"},
	)

	// 5. Pulled Nodes (Gauge)
	// Off-screen nodes currently clamped into the viewport cliff zone.
	PulledNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "semnav_pulled_nodes",
			Help: "Number of off-screen nodes pulled onto the viewport edge",
		},
	)
)
