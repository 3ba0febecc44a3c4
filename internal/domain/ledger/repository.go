package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines transaction storage operations
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	GetByAnyReference(ctx context.Context, reference string) (*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*Transaction, error)
	SetProviderReference(ctx context.Context, id uuid.UUID, providerRef string) error
	MergeMetadata(ctx context.Context, id uuid.UUID, patch Metadata) error
	CompleteIfPending(ctx context.Context, id uuid.UUID, externalHash string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates PostgreSQL transaction repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, wallet_id, reference, amount, currency, provider, type, status, metadata, created_at, updated_at)
		VALUES (:id, :user_id, :wallet_id, :reference, :amount, :currency, :provider, :type, :status, :metadata, NOW(), NOW())`

	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	var tx Transaction
	query := `SELECT * FROM transactions WHERE reference = $1`
	if err := r.db.GetContext(ctx, &tx, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// GetByAnyReference looks a transaction up by our reference or the
// processor's. Webhooks sometimes carry only the processor's own id.
func (r *postgresRepository) GetByAnyReference(ctx context.Context, reference string) (*Transaction, error) {
	var tx Transaction
	query := `SELECT * FROM transactions WHERE reference = $1 OR provider_reference = $1`
	if err := r.db.GetContext(ctx, &tx, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *postgresRepository) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*Transaction, error) {
	var tx Transaction
	query := `
		SELECT * FROM transactions
		WHERE user_id = $1 AND metadata->>'idempotencyKey' = $2
		ORDER BY created_at DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &tx, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *postgresRepository) SetProviderReference(ctx context.Context, id uuid.UUID, providerRef string) error {
	query := `UPDATE transactions SET provider_reference = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, providerRef, id); err != nil {
		return fmt.Errorf("failed to set provider reference: %w", err)
	}
	return nil
}

// MergeMetadata shallow-merges the patch into the row's metadata
func (r *postgresRepository) MergeMetadata(ctx context.Context, id uuid.UUID, patch Metadata) error {
	query := `
		UPDATE transactions
		SET metadata = COALESCE(metadata, '{}'::jsonb) || $1::jsonb, updated_at = NOW()
		WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, patch, id); err != nil {
		return fmt.Errorf("failed to merge transaction metadata: %w", err)
	}
	return nil
}

// CompleteIfPending performs the single atomic conditional update that
// decides which finalize attempt wins. Returns false when another caller
// already moved the row out of pending.
func (r *postgresRepository) CompleteIfPending(ctx context.Context, id uuid.UUID, externalHash string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1, external_hash = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, StatusCompleted, externalHash, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to complete transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete transaction: %w", err)
	}
	return rows == 1, nil
}

// MarkFailed records the failure reason in metadata and moves the row to
// failed, but only from pending. Terminal states are never overwritten, so
// repeated calls are safe.
func (r *postgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE transactions
		SET status = $1,
		    metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{error}', to_jsonb($2::text)),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4`

	if _, err := r.db.ExecContext(ctx, query, StatusFailed, reason, id, StatusPending); err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	txs := []Transaction{}
	query := `SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &txs, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
