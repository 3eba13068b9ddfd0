package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Ledger errors
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInconsistentLedger is returned when running balances disagree with the lots.
	ErrInconsistentLedger = errors.New("ledger is inconsistent")
)

// InsufficientFundsError reports how much was available against how much a spend required.
type InsufficientFundsError struct {
	Currency  string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s in %s: available %s, required %s",
		ErrInsufficientFunds, e.Currency, e.Available.String(), e.Required.String())
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
