package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ads97/Veritas/internal/model"
)

// Verification and provider Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "provider_requests_total",
			Help:      "Total number of outbound provider calls",
		},
		[]string{"provider", "op", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veritas",
			Name:      "provider_request_duration_seconds",
			Help:      "Outbound provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "op"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "cache_total",
			Help:      "Provider cache hits and misses",
		},
		[]string{"namespace", "result"}, // "hit" / "miss"
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "claims_total",
			Help:      "Extracted claims by dimension and polarity",
		},
		[]string{"dimension", "polarity"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "runs_total",
			Help:      "Verification runs by outcome",
		},
		[]string{"outcome"}, // "clear" / "unclear" / "failed" / "canceled"
	)

	ScamLikelihood = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "veritas",
			Name:      "scam_likelihood",
			Help:      "Distribution of verdict scam likelihood",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ProviderRequestsTotal,
			ProviderRequestDuration,
			CacheTotal,
			ClaimsTotal,
			RunsTotal,
			ScamLikelihood,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveProvider records one provider call
func ObserveProvider(provider, op string, start time.Time, err error) {
	ProviderRequestsTotal.WithLabelValues(provider, op, Status(err)).Inc()
	ProviderRequestDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

// Status maps an error onto a low-cardinality label
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrProviderSchema):
		return "schema_error"
	case errors.Is(err, model.ErrProviderTransport):
		return "transport_error"
	case errors.Is(err, model.ErrAmbiguousAddress), errors.Is(err, model.ErrAmbiguousParcel):
		return "ambiguous"
	default:
		return "error"
	}
}

// ObserveCache records a cache lookup
func ObserveCache(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheTotal.WithLabelValues(namespace, result).Inc()
}

// ObserveClaims counts claims by dimension and polarity
func ObserveClaims(claims []model.Claim) {
	for _, c := range claims {
		ClaimsTotal.WithLabelValues(string(c.Dimension), string(c.Polarity)).Inc()
	}
}

// ObserveVerdict records a finished run
func ObserveVerdict(v *model.Verdict) {
	outcome := "unclear"
	if v.ClearOutcome {
		outcome = "clear"
	}
	RunsTotal.WithLabelValues(outcome).Inc()
	ScamLikelihood.Observe(v.ScamLikelihood)
}

// ObserveRunFailure records a run that produced no verdict
func ObserveRunFailure(canceled bool) {
	if canceled {
		RunsTotal.WithLabelValues("canceled").Inc()
		return
	}
	RunsTotal.WithLabelValues("failed").Inc()
}
