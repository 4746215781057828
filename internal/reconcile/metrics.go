package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	createsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrictl",
			Subsystem: "reconcile",
			Name:      "creates_total",
			Help:      "Total number of resources created by kind",
		},
		[]string{"kind"},
	)

	existsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrictl",
			Subsystem: "reconcile",
			Name:      "exists_total",
			Help:      "Total number of resources found already existing by kind",
		},
		[]string{"kind"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrictl",
			Subsystem: "reconcile",
			Name:      "retries_total",
			Help:      "Total number of transient-failure retries by kind",
		},
		[]string{"kind"},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrictl",
			Subsystem: "reconcile",
			Name:      "failures_total",
			Help:      "Total number of node failures by kind and error class",
		},
		[]string{"kind", "class"},
	)
)

func init() {
	prometheus.MustRegister(createsTotal, existsTotal, retriesTotal, failuresTotal)
}
