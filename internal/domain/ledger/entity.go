package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a transaction lifecycle state. Transitions are monotonic:
// pending is the sole initial state, completed/failed/cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Type classifies what the payment is for
type Type string

const (
	TypeDeposit             Type = "deposit"
	TypeAdPayment           Type = "ad_payment"
	TypeSubscriptionPayment Type = "subscription_payment"
	TypeSwap                Type = "swap"
	TypeWithdrawal          Type = "withdrawal"
)

// Metadata is an open JSONB map. Two keys are load-bearing:
// "idempotencyKey" deduplicates repeated initiate requests and "error"
// records the failure reason on a failed transaction.
type Metadata map[string]interface{}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type: %T", src)
	}

	return json.Unmarshal(data, m)
}

// IdempotencyKey returns the client-supplied dedup token, if any
func (m Metadata) IdempotencyKey() string {
	if m == nil {
		return ""
	}
	key, _ := m["idempotencyKey"].(string)
	return key
}

// Transaction is the unit of financial intent. Rows are never deleted;
// failed and cancelled transactions remain for audit.
type Transaction struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	WalletID          *uuid.UUID `db:"wallet_id" json:"wallet_id,omitempty"`
	Reference         string     `db:"reference" json:"reference"`
	ProviderReference *string    `db:"provider_reference" json:"provider_reference,omitempty"`
	Amount            float64    `db:"amount" json:"amount"`
	Currency          string     `db:"currency" json:"currency"`
	Provider          string     `db:"provider" json:"provider"`
	Type              Type       `db:"type" json:"type"`
	Status            Status     `db:"status" json:"status"`
	Metadata          Metadata   `db:"metadata" json:"metadata,omitempty"`
	ExternalHash      *string    `db:"external_hash" json:"external_hash,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change state
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCancelled
}

// verifyReference picks the identifier an adapter should be polled with:
// the processor's own reference when captured, otherwise ours.
func (t *Transaction) verifyReference() string {
	if t.ProviderReference != nil && *t.ProviderReference != "" {
		return *t.ProviderReference
	}
	return t.Reference
}
