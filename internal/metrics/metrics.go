// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfqsmith_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rfqsmith_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// DraftFallbacksTotal counts drafting calls that fell back after the
	// model failed structural validation twice.
	DraftFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfqsmith_draft_fallbacks_total",
		Help: "Drafting calls resolved with a fallback body.",
	})

	// RetrievalDuration observes hybrid search latency end to end,
	// including the embedding call.
	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rfqsmith_retrieval_duration_seconds",
		Help:    "Hybrid retrieval latency.",
		Buckets: prometheus.DefBuckets,
	})

	// IngestedDocumentsTotal counts successfully ingested documents.
	IngestedDocumentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfqsmith_ingested_documents_total",
		Help: "Documents ingested successfully.",
	})
)
