package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phonebook",
			Name:      "directory_reconcile_total",
			Help:      "Directory reconciliations, by outcome.",
		},
		[]string{"outcome"},
	)

	jobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phonebook",
		Name:      "directory_jobs_dropped_total",
		Help:      "Reconciliation jobs dropped because the queue was full.",
	})
)
