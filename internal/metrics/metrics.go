// Package metrics exposes the gateway's Prometheus counters. Collection and
// shipping are external; the gateway only serves /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingested counts accepted webhooks per provider.
	Ingested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_ingested_total",
		Help: "Webhooks accepted by the ingestion pipeline.",
	}, []string{"provider"})

	// Rejected counts pipeline rejections by reason.
	Rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_rejected_total",
		Help: "Webhooks rejected by the ingestion pipeline.",
	}, []string{"reason"})

	// ForwardAttempts counts forwarder attempts by outcome
	// (success, retryable, error).
	ForwardAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_forward_attempts_total",
		Help: "Outbound forwarding attempts by outcome.",
	}, []string{"outcome"})
)
