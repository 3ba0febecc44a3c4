package ledger

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrWalletCreation      = errors.New("wallet creation failed")
)
