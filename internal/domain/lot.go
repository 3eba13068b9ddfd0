package domain

import (
	"github.com/shopspring/decimal"
)

// Lot is one funding batch held in a currency queue.
// CurrentAmount and OriginalAmount shrink by the same fraction on every spend.
type Lot struct {
	SourceID         string
	CurrentAmount    decimal.Decimal
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
}

// Snapshot returns a read-only copy of the lot.
func (l *Lot) Snapshot() LotSnapshot {
	return LotSnapshot{
		SourceID:         l.SourceID,
		CurrentAmount:    l.CurrentAmount,
		OriginalAmount:   l.OriginalAmount,
		OriginalCurrency: l.OriginalCurrency,
	}
}

// LotSnapshot is a point-in-time view of a lot, at full precision.
type LotSnapshot struct {
	Currency         string
	SourceID         string
	CurrentAmount    decimal.Decimal
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
}

// SpendRecord attributes part of a spend to a single lot.
type SpendRecord struct {
	SourceID         string
	AmountTaken      decimal.Decimal
	FeeTaken         decimal.Decimal
	OriginalUsed     decimal.Decimal
	OriginalCurrency string
}

// Withdrawal is the caller-facing view of a SpendRecord, rounded for reporting.
type Withdrawal struct {
	SourceID         string
	AmountWithdrawn  decimal.Decimal
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
}
