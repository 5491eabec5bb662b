package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankrecon_operations_total",
		Help: "Reconciliation operations, labeled by operation and outcome kind",
	}, []string{"op", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bankrecon_operation_duration_seconds",
		Help:    "Latency of reconciliation operations including the transaction",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})

	matchesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankrecon_matches_created_total",
		Help: "Matches created, labeled by mode (smart, manual, adjustment)",
	}, []string{"mode"})

	candidateSourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankrecon_candidate_source_failures_total",
		Help: "Ledger candidate source reads that failed and were skipped",
	}, []string{"source"})

	reconciliationsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bankrecon_reconciliations_finalized_total",
		Help: "Reconciliations moved to finalized",
	})
)
