package dto

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

func TestDepositRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name        string
		request     *DepositRequest
		wantAmount  string
		wantFee     string
		expectError bool
	}{
		{
			name:       "with fee and source",
			request:    &DepositRequest{Amount: "100", Currency: "USDT", SourceID: "wire-1", Fee: "10"},
			wantAmount: "100",
			wantFee:    "10",
		},
		{
			name:       "fee defaults to zero",
			request:    &DepositRequest{Amount: "0.000001", Currency: "USDT"},
			wantAmount: "0.000001",
			wantFee:    "0",
		},
		{
			name:        "missing amount",
			request:     &DepositRequest{Currency: "USDT"},
			expectError: true,
		},
		{
			name:        "invalid fee",
			request:     &DepositRequest{Amount: "1", Currency: "USDT", Fee: "ten"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput()

			if tt.expectError {
				if !errors.Is(err, domain.ErrInvalidOperation) {
					t.Fatalf("expected invalid operation error, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) || !got.Fee.Equal(decimal.RequireFromString(tt.wantFee)) {
				t.Fatalf("ToUseCaseInput() = %+v", got)
			}
			if got.Currency != tt.request.Currency || got.SourceID != tt.request.SourceID {
				t.Fatalf("ToUseCaseInput() = %+v, want currency/source from %+v", got, tt.request)
			}
		})
	}
}

func TestWithdrawalRequest_ToUseCaseInput(t *testing.T) {
	req := &WithdrawalRequest{Amount: "140", Currency: "USDT", Fee: "10"}

	got, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Currency != "USDT" || !got.Amount.Equal(decimal.NewFromInt(140)) || !got.Fee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("ToUseCaseInput() = %+v", got)
	}

	if _, err := (&WithdrawalRequest{Amount: "1e", Currency: "USDT"}).ToUseCaseInput(); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
}

func TestConversionRequest_ToUseCaseInput(t *testing.T) {
	req := &ConversionRequest{
		AmountFrom:   "140",
		CurrencyFrom: "USDT",
		AmountTo:     "300",
		CurrencyTo:   "ABC",
		Fee:          "10",
	}

	got, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CurrencyFrom != "USDT" || got.CurrencyTo != "ABC" {
		t.Fatalf("unexpected currencies: %+v", got)
	}
	if !got.AmountFrom.Equal(decimal.NewFromInt(140)) || !got.AmountTo.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected amounts: %+v", got)
	}

	req.AmountTo = ""
	if _, err := req.ToUseCaseInput(); !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("expected amount_to to be required, got %v", err)
	}
}
