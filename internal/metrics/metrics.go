package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booklist_http_requests_total",
		Help: "Total number of HTTP requests to the booklist API",
	}, []string{"method", "path", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booklist_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booklist_searches_total",
		Help: "Book searches by backend and result",
	}, []string{"source", "result"})

	ReadingListSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "booklist_reading_list_size",
		Help: "Number of books currently on the reading list",
	})
)
