package taskqueue

import "github.com/prometheus/client_golang/prometheus"

var tasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "eodd",
		Subsystem: "taskqueue",
		Name:      "tasks_total",
		Help:      "Tasks by final status, plus rejected submissions",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(tasksTotal)
}
