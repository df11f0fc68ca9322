package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	RecordsIssued      prometheus.Counter
	RecordsRevoked     prometheus.Counter
	RequestsSubmitted  prometheus.Counter
	RequestsApproved   prometheus.Counter
	RequestsDenied     prometheus.Counter
	GrantsIssued       prometheus.Counter
	PredicatesVerified *prometheus.CounterVec
	RequestLatency     *prometheus.HistogramVec
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registry. Tests use a fresh
// registry per suite to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_records_issued_total",
			Help: "Total number of identity records issued.",
		}),
		RecordsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_records_revoked_total",
			Help: "Total number of identity records revoked.",
		}),
		RequestsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_verification_requests_submitted_total",
			Help: "Total number of verification requests submitted.",
		}),
		RequestsApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_verification_requests_approved_total",
			Help: "Total number of verification requests approved by owners.",
		}),
		RequestsDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_verification_requests_denied_total",
			Help: "Total number of verification requests denied by owners.",
		}),
		GrantsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_field_grants_issued_total",
			Help: "Total number of field grant instructions sent to the confidential capability.",
		}),
		PredicatesVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_predicates_verified_total",
			Help: "Total number of encrypted predicate verifications, by kind.",
		}, []string{"kind"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passport_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
