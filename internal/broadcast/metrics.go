package broadcast

import "github.com/prometheus/client_golang/prometheus"

var publishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "broadcast",
		Name:      "published_total",
		Help:      "Events published by kind",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(publishedTotal)
}
