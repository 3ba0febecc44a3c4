package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/domain/wallet"
	"github.com/inkwell/inkwell-api/internal/pkg/metrics"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
)

// WalletStore is the wallet collaborator boundary. Credit must be an atomic
// increment in the storage layer, never read-modify-write.
type WalletStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*wallet.Wallet, error)
	Credit(ctx context.Context, id uuid.UUID, amount float64) error
}

// Effects applies type-specific consequences of a completed payment. Failures
// are logged and independently retryable; they never roll back the ledger.
type Effects interface {
	ActivateSubscription(ctx context.Context, userID uuid.UUID, tx *Transaction) error
	UnlockAd(ctx context.Context, userID uuid.UUID, tx *Transaction) error
}

// Notifier dispatches a receipt, fire-and-forget
type Notifier interface {
	PaymentCompleted(userID uuid.UUID, email, reference string, amount float64, currency, providerName string)
}

// Archiver stores a copy of the completed transaction, best-effort
type Archiver interface {
	ArchiveReceipt(ctx context.Context, reference string, payload []byte) error
}

// ServiceConfig carries the URLs handed to processors at initiation
type ServiceConfig struct {
	FrontendURL string
	BackendURL  string
}

// Service orchestrates payment initiation, verification and finalization.
// It holds no in-memory transaction state; every operation is a
// read-check-write against the repository, so replicas need no coordination.
type Service struct {
	repo     Repository
	wallets  WalletStore
	registry *provider.Registry
	effects  Effects
	notifier Notifier
	archiver Archiver
	cfg      ServiceConfig
}

// NewService creates the ledger service. effects, notifier and archiver may
// be nil; the corresponding side effects are then skipped.
func NewService(repo Repository, wallets WalletStore, registry *provider.Registry, effects Effects, notifier Notifier, archiver Archiver, cfg ServiceConfig) *Service {
	return &Service{
		repo:     repo,
		wallets:  wallets,
		registry: registry,
		effects:  effects,
		notifier: notifier,
		archiver: archiver,
		cfg:      cfg,
	}
}

// InitiateParams describes a payment the user wants to make
type InitiateParams struct {
	UserID   uuid.UUID
	Email    string
	Amount   float64
	Currency string
	Type     Type
	Region   string
	IsCrypto bool
	Metadata map[string]interface{}
}

// InitiateResult is what the client needs to send the payer onward
type InitiateResult struct {
	Transaction *Transaction `json:"transaction"`
	CheckoutURL string       `json:"checkout_url,omitempty"`
	PayAddress  string       `json:"pay_address,omitempty"`
}

// Initiate starts a payment. The pending row is persisted before the
// processor is contacted, so a crash mid-call leaves a reconcilable record
// rather than untracked funds.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error) {
	if params.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if params.Type == "" {
		params.Type = TypeDeposit
	}
	currency := strings.ToUpper(params.Currency)

	// Duplicate client submissions carry the same idempotency key; resolve
	// to the existing transaction's current state instead of charging twice.
	if key := Metadata(params.Metadata).IdempotencyKey(); key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, params.UserID, key)
		if err == nil {
			tx, err := s.Verify(ctx, existing.Reference)
			if err != nil {
				return nil, err
			}
			return resultFromExisting(tx), nil
		}
		if err != ErrTransactionNotFound {
			return nil, err
		}
	}

	w, err := s.wallets.GetOrCreate(ctx, params.UserID, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletCreation, err)
	}

	adapter := s.registry.SelectForPayment(currency, params.Region, params.IsCrypto)
	reference := newReference()

	meta := Metadata{}
	for k, v := range params.Metadata {
		meta[k] = v
	}
	meta["email"] = params.Email

	tx := &Transaction{
		ID:        uuid.New(),
		UserID:    params.UserID,
		WalletID:  &w.ID,
		Reference: reference,
		Amount:    params.Amount,
		Currency:  currency,
		Provider:  adapter.Name(),
		Type:      params.Type,
		Status:    StatusPending,
		Metadata:  meta,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	resp, err := provider.InitializeWithRetry(ctx, adapter, provider.InitRequest{
		Email:       params.Email,
		Amount:      params.Amount,
		Currency:    currency,
		Reference:   reference,
		CallbackURL: s.callbackURL(adapter.Name(), reference),
		Metadata: map[string]string{
			"userId": params.UserID.String(),
			"type":   string(params.Type),
		},
	})
	if err != nil {
		metrics.ProviderInitFailures.WithLabelValues(adapter.Name()).Inc()
		if markErr := s.repo.MarkFailed(ctx, tx.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("reference", reference).Msg("failed to record init failure")
		}
		return nil, err
	}

	if resp.ProviderReference != "" {
		if err := s.repo.SetProviderReference(ctx, tx.ID, resp.ProviderReference); err != nil {
			log.Error().Err(err).Str("reference", reference).Msg("failed to persist provider reference")
		}
		tx.ProviderReference = &resp.ProviderReference
	}

	// Persist redirect info so an idempotency-key replay can return it
	checkout := Metadata{}
	if resp.CheckoutURL != "" {
		checkout["checkoutUrl"] = resp.CheckoutURL
	}
	if resp.PayAddress != "" {
		checkout["payAddress"] = resp.PayAddress
	}
	if len(checkout) > 0 {
		if err := s.repo.MergeMetadata(ctx, tx.ID, checkout); err != nil {
			log.Error().Err(err).Str("reference", reference).Msg("failed to persist checkout info")
		}
		for k, v := range checkout {
			tx.Metadata[k] = v
		}
	}

	metrics.TransactionsInitiated.WithLabelValues(adapter.Name(), string(params.Type)).Inc()
	log.Info().
		Str("reference", reference).
		Str("provider", adapter.Name()).
		Str("currency", currency).
		Float64("amount", params.Amount).
		Msg("payment initiated")

	return &InitiateResult{
		Transaction: tx,
		CheckoutURL: resp.CheckoutURL,
		PayAddress:  resp.PayAddress,
	}, nil
}

// Verify polls the processor for a pending transaction's state. Transactions
// already in a terminal state are returned unchanged. Transport errors on the
// poll are swallowed in favor of the last known state; a transient verify
// failure must not look like a failed payment.
func (s *Service) Verify(ctx context.Context, reference string) (*Transaction, error) {
	tx, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusPending {
		return tx, nil
	}

	adapter, err := s.registry.ByName(tx.Provider)
	if err != nil {
		return nil, err
	}

	res, err := provider.VerifyWithRetry(ctx, adapter, tx.verifyReference())
	if err != nil {
		log.Warn().Err(err).Str("reference", reference).Msg("verify poll failed, returning last known state")
		return tx, nil
	}

	switch res.Status {
	case provider.StatusSuccess:
		finalized, _, err := s.Finalize(ctx, tx.Reference, FinalizeEvent{})
		if err != nil {
			return nil, err
		}
		return finalized, nil
	case provider.StatusFailed:
		return s.FailTransaction(ctx, tx.Reference, "provider reported failure")
	default:
		return tx, nil
	}
}

// FinalizeOutcome tells the caller whether this attempt won the transition
type FinalizeOutcome string

const (
	OutcomeCompleted        FinalizeOutcome = "completed"
	OutcomeAlreadyCompleted FinalizeOutcome = "already_completed"
	OutcomeAlreadyProcessed FinalizeOutcome = "already_processed"
)

// FinalizeEvent carries processor-side settlement details, all optional
type FinalizeEvent struct {
	ExternalHash string
}

// Finalize atomically transitions a pending transaction to completed and,
// for the single caller that wins the conditional update, applies the wallet
// credit and type-specific effects. Webhook delivery and client polling race
// here without coordination; the conditional update is the only arbiter.
func (s *Service) Finalize(ctx context.Context, reference string, event FinalizeEvent) (*Transaction, FinalizeOutcome, error) {
	tx, err := s.repo.GetByAnyReference(ctx, reference)
	if err != nil {
		return nil, "", err
	}

	if tx.Status == StatusCompleted {
		metrics.DuplicateFinalizes.Inc()
		return tx, OutcomeAlreadyCompleted, nil
	}

	won, err := s.repo.CompleteIfPending(ctx, tx.ID, event.ExternalHash)
	if err != nil {
		return nil, "", err
	}
	if !won {
		metrics.DuplicateFinalizes.Inc()
		log.Info().Str("reference", tx.Reference).Msg("finalize lost the race, no side effects applied")
		current, err := s.repo.GetByReference(ctx, tx.Reference)
		if err != nil {
			return nil, "", err
		}
		return current, OutcomeAlreadyProcessed, nil
	}

	tx.Status = StatusCompleted
	if event.ExternalHash != "" {
		tx.ExternalHash = &event.ExternalHash
	}

	s.applySideEffects(ctx, tx)

	metrics.TransactionsFinalized.WithLabelValues(tx.Provider, string(tx.Type)).Inc()
	log.Info().
		Str("reference", tx.Reference).
		Str("provider", tx.Provider).
		Str("type", string(tx.Type)).
		Msg("payment completed")

	return tx, OutcomeCompleted, nil
}

// applySideEffects runs only for the finalize caller that won the race.
// Each failure is logged and retryable later; the completed status stands.
func (s *Service) applySideEffects(ctx context.Context, tx *Transaction) {
	if creditsWallet(tx.Type) {
		walletID := tx.WalletID
		if walletID == nil {
			w, err := s.wallets.GetOrCreate(ctx, tx.UserID, tx.Currency)
			if err != nil {
				log.Error().Err(err).Str("reference", tx.Reference).Msg("wallet resolution failed during finalize")
			} else {
				walletID = &w.ID
			}
		}
		if walletID != nil {
			if err := s.wallets.Credit(ctx, *walletID, tx.Amount); err != nil {
				log.Error().Err(err).Str("reference", tx.Reference).Msg("wallet credit failed")
			}
		}
	}

	if s.effects != nil {
		var err error
		switch tx.Type {
		case TypeSubscriptionPayment:
			err = s.effects.ActivateSubscription(ctx, tx.UserID, tx)
		case TypeAdPayment:
			err = s.effects.UnlockAd(ctx, tx.UserID, tx)
		}
		if err != nil {
			log.Error().Err(err).Str("reference", tx.Reference).Str("type", string(tx.Type)).Msg("post-completion effect failed")
		}
	}

	if s.notifier != nil {
		email, _ := tx.Metadata["email"].(string)
		s.notifier.PaymentCompleted(tx.UserID, email, tx.Reference, tx.Amount, tx.Currency, tx.Provider)
	}

	if s.archiver != nil {
		payload, err := json.Marshal(tx)
		if err == nil {
			go func(reference string, payload []byte) {
				actx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := s.archiver.ArchiveReceipt(actx, reference, payload); err != nil {
					log.Warn().Err(err).Str("reference", reference).Msg("receipt archival failed")
				}
			}(tx.Reference, payload)
		}
	}
}

// FailTransaction moves a pending transaction to failed with the reason
// recorded in metadata. Transactions already terminal are left untouched,
// so repeated calls are safe.
func (s *Service) FailTransaction(ctx context.Context, reference string, reason string) (*Transaction, error) {
	tx, err := s.repo.GetByAnyReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return tx, nil
	}

	if err := s.repo.MarkFailed(ctx, tx.ID, reason); err != nil {
		return nil, err
	}

	metrics.TransactionsFailed.WithLabelValues(tx.Provider).Inc()
	log.Info().Str("reference", tx.Reference).Str("reason", reason).Msg("payment failed")

	return s.repo.GetByReference(ctx, tx.Reference)
}

// History lists the user's transactions, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) callbackURL(providerName, reference string) string {
	// NOWPayments uses the callback as its IPN target; hosted flows use it
	// as the browser return URL.
	if providerName == provider.NameNowPayments {
		return strings.TrimRight(s.cfg.BackendURL, "/") + "/webhooks/nowpayments"
	}
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/payments/return?reference=" + reference
}

func creditsWallet(t Type) bool {
	return t == TypeDeposit || t == TypeSwap
}

func newReference() string {
	return "inkw_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func resultFromExisting(tx *Transaction) *InitiateResult {
	res := &InitiateResult{Transaction: tx}
	if url, ok := tx.Metadata["checkoutUrl"].(string); ok {
		res.CheckoutURL = url
	}
	if addr, ok := tx.Metadata["payAddress"].(string); ok {
		res.PayAddress = addr
	}
	return res
}
