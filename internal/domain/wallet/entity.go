package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's balance in a single currency. At most one wallet
// exists per (user, currency) pair, created lazily on first need.
type Wallet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Currency  string    `db:"currency" json:"currency"`
	Balance   float64   `db:"balance" json:"balance"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
