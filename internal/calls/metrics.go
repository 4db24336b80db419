package calls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callsRecorded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "phonebook",
		Name:      "calls_recorded_total",
		Help:      "Phone calls recorded, by the action applied.",
	},
	[]string{"action"},
)
