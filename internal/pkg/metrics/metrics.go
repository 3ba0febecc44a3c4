package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsInitiated counts initiated payments by provider and type.
	TransactionsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Total payment transactions initiated",
	}, []string{"provider", "type"})

	// TransactionsFinalized counts finalized (completed) transactions.
	TransactionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_finalized_total",
		Help: "Total payment transactions transitioned to completed",
	}, []string{"provider", "type"})

	// TransactionsFailed counts transactions transitioned to failed.
	TransactionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total payment transactions transitioned to failed",
	}, []string{"provider"})

	// DuplicateFinalizes counts finalize attempts that lost the CAS or hit an
	// already-completed transaction (expected under webhook retries).
	DuplicateFinalizes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_duplicate_finalizes_total",
		Help: "Finalize attempts that found the transaction already processed",
	})

	// WebhookRejected counts webhooks rejected by signature verification.
	WebhookRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_rejected_total",
		Help: "Inbound webhooks rejected due to invalid signature",
	}, []string{"provider"})

	// ProviderInitFailures counts failed charge initializations per provider.
	ProviderInitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_init_failures_total",
		Help: "Failed charge initializations against external processors",
	}, []string{"provider"})
)
