package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines wallet storage operations
type Repository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	Credit(ctx context.Context, id uuid.UUID, amount float64) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates PostgreSQL wallet repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// GetOrCreate resolves the wallet for (user, currency), creating it lazily.
// The unique index on (user_id, currency) makes concurrent creation safe;
// the loser of the insert race reads the winner's row.
func (r *postgresRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	currency = strings.ToUpper(currency)

	insert := `
		INSERT INTO wallets (id, user_id, currency, balance, address, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (user_id, currency) DO NOTHING`

	address := "inkw_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := r.db.ExecContext(ctx, insert, uuid.New(), userID, currency, address); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	var w Wallet
	query := `SELECT * FROM wallets WHERE user_id = $1 AND currency = $2`
	if err := r.db.GetContext(ctx, &w, query, userID, currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCreationFailed
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	var w Wallet
	query := `SELECT * FROM wallets WHERE id = $1`
	if err := r.db.GetContext(ctx, &w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

// Credit increments the balance in a single atomic update. Balance is never
// read back and rewritten, so concurrent credits cannot lose updates.
func (r *postgresRepository) Credit(ctx context.Context, id uuid.UUID, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	if rows == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error) {
	wallets := []Wallet{}
	query := `SELECT * FROM wallets WHERE user_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &wallets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
