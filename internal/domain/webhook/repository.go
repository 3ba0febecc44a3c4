package webhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines webhook audit storage operations
type Repository interface {
	CreateLog(ctx context.Context, log *Log) error
	MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error
	CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates PostgreSQL webhook audit repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateLog(ctx context.Context, log *Log) error {
	query := `
		INSERT INTO webhook_logs (id, provider, reference, payload, headers, processed, created_at)
		VALUES (:id, :provider, :reference, :payload, :headers, false, NOW())`

	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}

func (r *postgresRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	query := `
		UPDATE webhook_logs
		SET processed = true, processing_error = NULLIF($1, '')
		WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, processingError, id); err != nil {
		return fmt.Errorf("failed to mark webhook log processed: %w", err)
	}
	return nil
}

func (r *postgresRepository) CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	query := `
		INSERT INTO security_audit_logs (id, event_type, provider, reference, source_ip, created_at)
		VALUES (:id, :event_type, :provider, :reference, :source_ip, NOW())`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("failed to create security audit log: %w", err)
	}
	return nil
}
