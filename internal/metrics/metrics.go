// Package metrics provides Prometheus metrics for the import pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Conversion outcomes by ConversionStatus
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eckcut_conversions_total",
			Help: "Total number of work order conversions by outcome",
		},
		[]string{"status"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eckcut_conversion_duration_seconds",
			Help:    "Time taken to convert and commit a selection",
			Buckets: prometheus.DefBuckets,
		},
	)

	EntitiesConverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eckcut_entities_converted_total",
			Help: "Entities persisted by conversions",
		},
		[]string{"entity"},
	)

	TransformationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eckcut_transformation_warnings_total",
			Help: "Non-fatal transformation warnings",
		},
		[]string{"kind"},
	)

	ImportSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eckcut_import_sessions_active",
			Help: "Parsed imports held in memory awaiting conversion",
		},
	)

	RowsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eckcut_rows_parsed_total",
			Help: "Raw export rows consumed by the tree builder",
		},
		[]string{"table"},
	)
)
