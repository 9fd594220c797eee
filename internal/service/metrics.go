package service

import "github.com/prometheus/client_golang/prometheus"

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "service",
			Name:      "transitions_total",
			Help:      "Lifecycle requests by request, source mode and resulting mode",
		},
		[]string{"request", "from", "to"},
	)

	modeGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "eodd",
			Subsystem: "service",
			Name:      "mode",
			Help:      "1 for the current lifecycle mode",
		},
		[]string{"mode"},
	)

	bugsSpawnedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "service",
		Name:      "bugs_spawned_total",
		Help:      "Bugs spawned by ticks",
	})

	remindersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "service",
		Name:      "reminders_total",
		Help:      "Charge reminders fired",
	})

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eodd",
			Subsystem: "service",
			Name:      "logins_total",
			Help:      "Login jobs by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(transitionsTotal, modeGauge, bugsSpawnedTotal, remindersTotal, loginsTotal)
}
