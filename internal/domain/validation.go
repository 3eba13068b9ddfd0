package domain

import (
	"fmt"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxCurrencyCodeLength = 16
	MaxSourceIDLength     = 255
)

// ValidateCurrency validates a currency code. Codes are opaque to the ledger,
// so anything printable without whitespace is accepted.
func ValidateCurrency(currency string) error {
	if currency == "" {
		return fmt.Errorf("%w: currency code cannot be empty", ErrInvalidOperation)
	}

	if len(currency) > MaxCurrencyCodeLength {
		return fmt.Errorf("%w: currency code exceeds %d characters", ErrInvalidOperation, MaxCurrencyCodeLength)
	}

	for _, r := range currency {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: currency code %q contains invalid characters", ErrInvalidOperation, currency)
		}
	}

	return nil
}

// ValidateSourceID bounds the length of a caller supplied source identifier.
// Its content is opaque and only ever compared for equality.
func ValidateSourceID(sourceID string) error {
	if len(sourceID) > MaxSourceIDLength {
		return fmt.Errorf("%w: source id exceeds %d characters", ErrInvalidOperation, MaxSourceIDLength)
	}

	return nil
}

// ValidateNonNegative rejects negative amounts. name is used in the error message.
func ValidateNonNegative(name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidOperation, name, amount.String())
	}

	return nil
}

// ValidateFee rejects a fee larger than the amount it is deducted from.
func ValidateFee(fee, amount decimal.Decimal) error {
	if err := ValidateNonNegative("fee", fee); err != nil {
		return err
	}

	if fee.GreaterThan(amount) {
		return fmt.Errorf("%w: fee %s exceeds amount %s", ErrInvalidOperation, fee.String(), amount.String())
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
