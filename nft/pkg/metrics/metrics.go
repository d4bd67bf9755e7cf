package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetexplorer_query_duration_seconds",
			Help:    "Duration of NFT transfer queries by backend",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"backend"},
	)

	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetexplorer_query_total",
			Help: "Total number of NFT transfer queries by backend and status",
		},
		[]string{"backend", "status"},
	)

	QueryRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetexplorer_query_rows",
			Help:    "Number of rows returned per NFT transfer query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"backend"},
	)

	FetchCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetexplorer_fetch_coalesced_total",
			Help: "Total number of wallet fetches that joined an identical in-flight fetch",
		},
	)

	ResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetexplorer_resolve_total",
			Help: "Total number of address resolutions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)
