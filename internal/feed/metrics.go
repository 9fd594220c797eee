package feed

import "github.com/prometheus/client_golang/prometheus"

var fetchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "feed",
		Name:      "fetch_total",
		Help:      "Feed fetches by resulting freshness",
	},
	[]string{"freshness"},
)

func init() {
	prometheus.MustRegister(fetchTotal)
}
