package forward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDatagrams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forward_datagrams_total",
		Help: "Datagrams handed to the ingest listener by status",
	}, []string{"status"})

	metricBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forward_bytes_total",
		Help: "Payload bytes forwarded",
	})
)
