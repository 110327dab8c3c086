package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// OTPIssued counts send-token issuances by result (issued|blocked|denied).
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_otp_issued_total",
			Help: "Total number of OTP issuance attempts",
		},
		[]string{"result"},
	)

	// OTPConfirmations counts confirm calls by outcome
	// (confirmed|invalid_code|expired|blocked|invalid_state|not_found).
	OTPConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_otp_confirmations_total",
			Help: "Total number of OTP confirmation attempts",
		},
		[]string{"result"},
	)

	// DispatchLatency measures reply delivery latency by result (sent|failed).
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_dispatch_latency_seconds",
			Help:    "Outbound reply dispatch latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// EmailsIngested counts messages pulled from the inbox and persisted.
	EmailsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailtriage_emails_ingested_total",
			Help: "Total number of ingested emails",
		},
	)
)
