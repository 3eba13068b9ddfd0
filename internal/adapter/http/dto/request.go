package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// Amounts travel as strings so no precision is lost to JSON numbers.

// DepositRequest represents a request to deposit a lot.
type DepositRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	SourceID string `json:"source_id,omitempty"`
	Fee      string `json:"fee,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput() (usecase.DepositInput, error) {
	amount, err := parseAmount("amount", r.Amount, true)
	if err != nil {
		return usecase.DepositInput{}, err
	}

	fee, err := parseAmount("fee", r.Fee, false)
	if err != nil {
		return usecase.DepositInput{}, err
	}

	return usecase.DepositInput{
		SourceID: r.SourceID,
		Currency: r.Currency,
		Amount:   amount,
		Fee:      fee,
	}, nil
}

// WithdrawalRequest represents a request to withdraw funds.
type WithdrawalRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Fee      string `json:"fee,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawalRequest) ToUseCaseInput() (usecase.WithdrawInput, error) {
	amount, err := parseAmount("amount", r.Amount, true)
	if err != nil {
		return usecase.WithdrawInput{}, err
	}

	fee, err := parseAmount("fee", r.Fee, false)
	if err != nil {
		return usecase.WithdrawInput{}, err
	}

	return usecase.WithdrawInput{
		Currency: r.Currency,
		Amount:   amount,
		Fee:      fee,
	}, nil
}

// ConversionRequest represents a request to convert funds between currencies.
// AmountTo is the already-priced amount in CurrencyTo.
type ConversionRequest struct {
	AmountFrom   string `json:"amount_from"`
	CurrencyFrom string `json:"currency_from"`
	AmountTo     string `json:"amount_to"`
	CurrencyTo   string `json:"currency_to"`
	Fee          string `json:"fee,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ConversionRequest) ToUseCaseInput() (usecase.ConvertInput, error) {
	amountFrom, err := parseAmount("amount_from", r.AmountFrom, true)
	if err != nil {
		return usecase.ConvertInput{}, err
	}

	amountTo, err := parseAmount("amount_to", r.AmountTo, true)
	if err != nil {
		return usecase.ConvertInput{}, err
	}

	fee, err := parseAmount("fee", r.Fee, false)
	if err != nil {
		return usecase.ConvertInput{}, err
	}

	return usecase.ConvertInput{
		CurrencyFrom: r.CurrencyFrom,
		AmountFrom:   amountFrom,
		CurrencyTo:   r.CurrencyTo,
		AmountTo:     amountTo,
		Fee:          fee,
	}, nil
}

func parseAmount(field, value string, required bool) (decimal.Decimal, error) {
	if value == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%w: %s is required", domain.ErrInvalidOperation, field)
		}
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a decimal: %q", domain.ErrInvalidOperation, field, value)
	}

	return amount, nil
}
