package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/pkg/metrics"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
)

// LedgerService is the routing target for validated events
type LedgerService interface {
	Finalize(ctx context.Context, reference string, event ledger.FinalizeEvent) (*ledger.Transaction, ledger.FinalizeOutcome, error)
	FailTransaction(ctx context.Context, reference string, reason string) (*ledger.Transaction, error)
}

// Service ingests inbound processor callbacks: audit first, authenticate
// second, route third.
type Service struct {
	repo     Repository
	registry *provider.Registry
	ledger   LedgerService
}

// NewService creates webhook ingestion service
func NewService(repo Repository, registry *provider.Registry, ledgerSvc LedgerService) *Service {
	return &Service{repo: repo, registry: registry, ledger: ledgerSvc}
}

// Ingest handles one inbound callback. The audit log row is written before
// any trust decision; signature failures record a security event and return
// ErrSignatureInvalid without touching any transaction. Processing errors
// after a valid signature are absorbed into the audit log so the processor
// receives an acknowledgment and stops retrying.
func (s *Service) Ingest(ctx context.Context, providerName string, headers http.Header, body []byte, sourceIP string) error {
	adapter, adapterErr := s.registry.ByName(providerName)

	var reference *string
	var event *provider.WebhookEvent
	if adapterErr == nil {
		// Best-effort extraction for the audit row; the payload is not
		// trusted until the signature checks out.
		if ev, err := adapter.ParseWebhookEvent(body); err == nil {
			event = ev
			if ref := eventReference(ev); ref != "" {
				reference = &ref
			}
		}
	}

	logRow := &Log{
		ID:        uuid.New(),
		Provider:  providerName,
		Reference: reference,
		Payload:   normalizePayload(body),
		Headers:   FlattenHeaders(headers),
	}
	if err := s.repo.CreateLog(ctx, logRow); err != nil {
		log.Error().Err(err).Str("provider", providerName).Msg("failed to persist webhook log")
	}

	if adapterErr != nil {
		s.recordSecurityEvent(ctx, EventUnknownProvider, providerName, reference, sourceIP)
		s.markProcessed(ctx, logRow.ID, "unknown provider")
		return provider.ErrUnknownProvider
	}

	if !adapter.VerifyWebhookSignature(headers, body) {
		metrics.WebhookRejected.WithLabelValues(providerName).Inc()
		s.recordSecurityEvent(ctx, EventInvalidSignature, providerName, reference, sourceIP)
		s.markProcessed(ctx, logRow.ID, "invalid signature")
		log.Warn().
			Str("provider", providerName).
			Str("source_ip", sourceIP).
			Msg("webhook signature rejected")
		return ErrSignatureInvalid
	}

	if event == nil {
		ev, err := adapter.ParseWebhookEvent(body)
		if err != nil {
			s.markProcessed(ctx, logRow.ID, err.Error())
			return nil
		}
		event = ev
	}

	if err := s.route(ctx, event); err != nil {
		s.markProcessed(ctx, logRow.ID, err.Error())
		log.Error().Err(err).
			Str("provider", providerName).
			Str("reference", eventReference(event)).
			Msg("webhook routing failed")
		return nil
	}

	s.markProcessed(ctx, logRow.ID, "")
	return nil
}

func (s *Service) route(ctx context.Context, event *provider.WebhookEvent) error {
	target := eventReference(event)
	if target == "" {
		return ledger.ErrTransactionNotFound
	}

	switch event.Status {
	case provider.StatusSuccess:
		_, outcome, err := s.ledger.Finalize(ctx, target, ledger.FinalizeEvent{
			ExternalHash: externalHash(event),
		})
		if err != nil {
			return err
		}
		log.Info().
			Str("reference", target).
			Str("outcome", string(outcome)).
			Msg("webhook finalize routed")
		return nil
	case provider.StatusFailed:
		_, err := s.ledger.FailTransaction(ctx, target, "provider reported failure via webhook")
		return err
	default:
		// Intermediate states are audit-only
		return nil
	}
}

func (s *Service) recordSecurityEvent(ctx context.Context, eventType, providerName string, reference *string, sourceIP string) {
	event := &SecurityEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Provider:  providerName,
		Reference: reference,
		SourceIP:  sourceIP,
	}
	if err := s.repo.CreateSecurityEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("provider", providerName).Msg("failed to persist security audit event")
	}
}

func (s *Service) markProcessed(ctx context.Context, id uuid.UUID, processingError string) {
	if err := s.repo.MarkProcessed(ctx, id, processingError); err != nil {
		log.Error().Err(err).Str("webhook_log_id", id.String()).Msg("failed to update webhook log")
	}
}

func eventReference(event *provider.WebhookEvent) string {
	if event.Reference != "" {
		return event.Reference
	}
	return event.ProviderReference
}

func externalHash(event *provider.WebhookEvent) string {
	if event.ExternalHash != "" {
		return event.ExternalHash
	}
	return event.ProviderReference
}

// normalizePayload keeps the audit column valid JSONB even when the body is
// not parseable JSON.
func normalizePayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(quoted)
}
