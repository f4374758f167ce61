package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_ingest_passes_total",
		Help: "The total number of ingestion passes by outcome",
	}, []string{"outcome"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsroom_ingest_pass_duration_seconds",
		Help:    "Duration of ingestion passes",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // Start at 500ms, double each bucket
	})

	insertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsroom_ingest_inserted_total",
		Help: "The total number of news items added to the store",
	})

	sourceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_ingest_source_failures_total",
		Help: "The total number of sources that failed to fetch",
	}, []string{"source"})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsroom_ingest_last_success_timestamp_seconds",
		Help: "Unix time of the last ingestion pass that completed without a storage error",
	})

	ticksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsroom_ingest_ticks_skipped_total",
		Help: "Scheduler ticks skipped because the previous pass was still running",
	})
)
