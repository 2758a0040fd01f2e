// Package metrics provides Prometheus metrics for ganbari.
// Counters are bumped only after the owning transaction commits.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Activities ─────────────────────────────────────────────────────────────

// ActivitiesRecorded tracks recorded activities by category.
var ActivitiesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "activities_recorded_total",
	Help:      "Total activity logs recorded.",
}, []string{"category"})

// ActivitiesCancelled tracks cancellations inside the cancel window.
var ActivitiesCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "activities_cancelled_total",
	Help:      "Total activity logs cancelled.",
})

// StreakLength observes the streak length at record time.
var StreakLength = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ganbari",
	Name:      "streak_days",
	Help:      "Streak length in days when an activity is recorded.",
	Buckets:   []float64{1, 2, 3, 5, 7, 11, 14, 30},
})

// ─── Points ─────────────────────────────────────────────────────────────────

// PointsCredited tracks points added to the ledger by entry type.
var PointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "points_credited_total",
	Help:      "Total points credited to the ledger.",
}, []string{"type"})

// PointsDebited tracks points removed from the ledger by entry type.
var PointsDebited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "points_debited_total",
	Help:      "Total points debited from the ledger.",
}, []string{"type"})

// ─── Login Bonus ────────────────────────────────────────────────────────────

// LoginBonusClaims tracks claims by drawn rank.
var LoginBonusClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "login_bonus_claims_total",
	Help:      "Total login bonus claims by omikuji rank.",
}, []string{"rank"})

// ─── Status ─────────────────────────────────────────────────────────────────

// StatusChanges tracks status mutations by reason.
var StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "status_changes_total",
	Help:      "Total status mutations by change reason.",
}, []string{"reason"})

// ─── Jobs ───────────────────────────────────────────────────────────────────

// JobDuration tracks batch job duration in seconds.
var JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ganbari",
	Name:      "job_duration_seconds",
	Help:      "Batch job duration in seconds.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
}, []string{"job"})

// JobRuns tracks batch job outcomes (ok, failed, skipped).
var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "job_runs_total",
	Help:      "Total batch job runs by outcome.",
}, []string{"job", "outcome"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// RequestsThrottled tracks requests rejected by the rate limiter.
var RequestsThrottled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "requests_throttled_total",
	Help:      "Total API requests rejected by the rate limiter.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ganbari",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ganbari",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
