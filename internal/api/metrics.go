package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})

	metricSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_submissions_total",
		Help: "Form submissions by outcome",
	}, []string{"outcome"})
)
