package contacts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Creation sources for phonebook_contacts_created_total.
const (
	SourceIncoming = "incoming"
	SourceManual   = "manual"
)

var contactsCreated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "phonebook",
		Name:      "contacts_created_total",
		Help:      "Contacts created, by source.",
	},
	[]string{"source"},
)
