package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDatagrams = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_datagrams_total",
		Help: "Total datagrams received",
	})

	metricBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_bytes_total",
		Help: "Total payload bytes received (after truncation)",
	})

	metricTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_truncated_total",
		Help: "Datagrams larger than the receive buffer",
	})

	metricDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_decode_errors_total",
		Help: "Datagrams dropped because the form payload did not decode",
	})

	metricProcessMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_process_ms",
		Help:    "Time to decode and store one datagram (ms)",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
