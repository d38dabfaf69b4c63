package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PersistOperations tracks successful persistence operations.
	PersistOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yay_session_persist_operations_total",
			Help: "Total number of session persistence operations",
		},
		[]string{"operation"}, // "save", "load", "miss", "delete"
	)

	// PersistErrors tracks failed persistence operations.
	PersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yay_session_persist_errors_total",
			Help: "Total number of session persistence errors",
		},
		[]string{"operation"},
	)
)
