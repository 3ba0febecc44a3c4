package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel is the redis channel the notes product's notification service
// subscribes to for payment receipts.
const Channel = "payments:receipts"

// Receipt is the event published after a payment completes
type Receipt struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Reference   string    `json:"reference"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Provider    string    `json:"provider"`
	CompletedAt time.Time `json:"completed_at"`
}

// Config holds email sender settings
type Config struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// Service fans receipts out to email and redis from a background worker.
// Enqueueing never blocks; a full queue drops the receipt with a warning,
// since notification delivery must not affect ledger correctness.
type Service struct {
	queue chan Receipt
	mail  *sendgridClient
	redis *redis.Client
	wg    sync.WaitGroup
}

// NewService creates the notification service and starts its worker.
// rdb may be nil (no redis configured); email is skipped without an API key.
func NewService(cfg Config, rdb *redis.Client) *Service {
	s := &Service{
		queue: make(chan Receipt, 256),
		redis: rdb,
	}
	if cfg.SendGridAPIKey != "" {
		s.mail = newSendgridClient(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// PaymentCompleted enqueues a receipt, fire-and-forget
func (s *Service) PaymentCompleted(userID uuid.UUID, email, reference string, amount float64, currency, providerName string) {
	receipt := Receipt{
		UserID:      userID.String(),
		Email:       email,
		Reference:   reference,
		Amount:      amount,
		Currency:    currency,
		Provider:    providerName,
		CompletedAt: time.Now().UTC(),
	}

	select {
	case s.queue <- receipt:
	default:
		log.Warn().Str("reference", reference).Msg("receipt queue full, dropping notification")
	}
}

// Close drains the queue and stops the worker
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}

func (s *Service) worker() {
	defer s.wg.Done()

	for receipt := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		s.publish(ctx, receipt)
		s.email(ctx, receipt)
		cancel()
	}
}

func (s *Service) publish(ctx context.Context, receipt Receipt) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, Channel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("reference", receipt.Reference).Msg("failed to publish receipt event")
	}
}

func (s *Service) email(ctx context.Context, receipt Receipt) {
	if s.mail == nil || receipt.Email == "" {
		return
	}

	subject := fmt.Sprintf("Payment received: %s %.2f", receipt.Currency, receipt.Amount)
	body := fmt.Sprintf(
		"Your payment of %.2f %s via %s was completed.\nReference: %s\n",
		receipt.Amount, receipt.Currency, receipt.Provider, receipt.Reference,
	)

	if err := s.mail.send(ctx, receipt.Email, subject, body); err != nil {
		log.Warn().Err(err).Str("reference", receipt.Reference).Msg("failed to send receipt email")
	}
}
