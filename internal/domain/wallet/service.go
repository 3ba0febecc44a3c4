package wallet

import (
	"context"

	"github.com/google/uuid"
)

// Service provides wallet business logic
type Service struct {
	repo Repository
}

// NewService creates wallet service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreate resolves the user's wallet for a currency, creating it lazily
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	return s.repo.GetOrCreate(ctx, userID, currency)
}

// Credit applies an atomic balance increment
func (s *Service) Credit(ctx context.Context, id uuid.UUID, amount float64) error {
	return s.repo.Credit(ctx, id, amount)
}

// ListByUser returns all wallets belonging to a user
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error) {
	return s.repo.ListByUser(ctx, userID)
}
