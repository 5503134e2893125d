package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_appends_total",
		Help: "Record appends by outcome",
	}, []string{"status"})

	metricCorruptResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_corrupt_resets_total",
		Help: "Appends that discarded an unreadable or wrongly shaped document",
	})
)
