package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total scheduled callback invocations",
		},
		[]string{"scheduler"},
	)

	skippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "scheduler",
			Name:      "skipped_ticks_total",
			Help:      "Occurrences dropped because a schedule fell more than one interval behind",
		},
		[]string{"scheduler"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, skippedTotal)
}
