package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AttemptsImportedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "gradesync_attempts_imported_total",
		Help: "Number of CBT attempts imported as new review rows",
	},
)

var AttemptsSkippedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "gradesync_attempts_skipped_total",
		Help: "Number of CBT attempts skipped as already imported",
	},
)

var ConversionFailureCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "gradesync_conversion_failures_total",
		Help: "Number of rows imported without a converted score",
	},
)

var RowsReviewedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gradesync_rows_reviewed_total",
	Help: "Number of import rows reviewed, by outcome",
}, []string{"outcome"})

var RowsSyncedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "gradesync_rows_synced_total",
		Help: "Number of approved rows written to the gradebook",
	},
)

var SyncFailureCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "gradesync_sync_failures_total",
		Help: "Number of gradebook writes that failed during sync",
	},
)
