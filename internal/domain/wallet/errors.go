package wallet

import "errors"

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrCreationFailed = errors.New("wallet creation failed")
	ErrInvalidAmount  = errors.New("credit amount must be greater than zero")
)
