package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// LotResponse represents a lot in API responses. Amounts are unrounded.
type LotResponse struct {
	Currency         string          `json:"currency"`
	SourceID         string          `json:"source_id"`
	CurrentAmount    decimal.Decimal `json:"current_amount"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
}

// LotFromDomain converts a lot snapshot to response.
func LotFromDomain(l domain.LotSnapshot) *LotResponse {
	return &LotResponse{
		Currency:         l.Currency,
		SourceID:         l.SourceID,
		CurrentAmount:    l.CurrentAmount,
		OriginalAmount:   l.OriginalAmount,
		OriginalCurrency: l.OriginalCurrency,
	}
}

// LotsFromDomain converts lot snapshots to responses.
func LotsFromDomain(lots []domain.LotSnapshot) []*LotResponse {
	result := make([]*LotResponse, len(lots))
	for i, l := range lots {
		result[i] = LotFromDomain(l)
	}
	return result
}

// WithdrawalResponse reports one lot's contribution to a withdrawal.
type WithdrawalResponse struct {
	SourceID         string          `json:"source_id"`
	AmountWithdrawn  decimal.Decimal `json:"amount_withdrawn"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
}

// WithdrawalsFromDomain converts withdrawal records to responses.
func WithdrawalsFromDomain(withdrawals []domain.Withdrawal) []*WithdrawalResponse {
	result := make([]*WithdrawalResponse, len(withdrawals))
	for i, w := range withdrawals {
		result[i] = &WithdrawalResponse{
			SourceID:         w.SourceID,
			AmountWithdrawn:  w.AmountWithdrawn,
			OriginalAmount:   w.OriginalAmount,
			OriginalCurrency: w.OriginalCurrency,
		}
	}
	return result
}

// WithdrawResponse is returned by POST /withdrawals.
type WithdrawResponse struct {
	Withdrawals []*WithdrawalResponse `json:"withdrawals"`
}

// ConversionResponse is returned by POST /conversions.
type ConversionResponse struct {
	Lots     []*LotResponse             `json:"lots"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// BalancesResponse is returned by GET /balances.
type BalancesResponse struct {
	Balances       map[string]decimal.Decimal `json:"balances"`
	TotalDeposited map[string]decimal.Decimal `json:"total_deposited"`
}

// LotsResponse is returned by GET /lots.
type LotsResponse struct {
	Lots []*LotResponse `json:"lots"`
}

// ConsistencyResponse is returned by GET /ledger/consistency.
type ConsistencyResponse struct {
	Status     string `json:"status"`
	Consistent bool   `json:"consistent"`
	Message    string `json:"message,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
