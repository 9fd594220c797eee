package notify

import "github.com/prometheus/client_golang/prometheus"

var decisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "notify",
		Name:      "decisions_total",
		Help:      "Notification gate decisions by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(decisionsTotal)
}
