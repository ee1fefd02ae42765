// Package metrics exposes Prometheus instruments for number issuance.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// numbers handed out, by prefix and issuer strategy
	NumbersIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_numbers_issued_total",
			Help: "total number of sequence values issued",
		},
		[]string{"prefix", "strategy"},
	)

	// failed issuance attempts, by reason (try_again, backend, corrupt, other)
	IssueErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_issue_errors_total",
			Help: "total number of failed sequence issuance attempts",
		},
		[]string{"prefix", "reason"},
	)

	// lease refills - one per reserved range
	LeaseRefillTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_lease_refill_total",
			Help: "total number of sequence ranges reserved",
		},
		[]string{"prefix"},
	)

	// lock contention - refill found the lease lock held elsewhere
	LeaseLockContendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_lease_lock_contended_total",
			Help: "total number of lease lock acquisitions that found the lock held",
		},
		[]string{"prefix"},
	)

	// lock releases that did not go through; the lock then expires on its own
	LeaseLockReleaseFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_lease_lock_release_failed_total",
			Help: "total number of lease lock releases that failed or found a foreign token",
		},
		[]string{"prefix"},
	)

	// store primitive latency
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "serialgen_store_op_duration_seconds",
			Help:    "time taken by shared store primitives",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"backend", "op"},
	)

	// store primitive failures
	StoreOpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serialgen_store_op_errors_total",
			Help: "total number of failed shared store primitives",
		},
		[]string{"backend", "op"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
