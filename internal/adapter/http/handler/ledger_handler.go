package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// LedgerService is the ledger surface the HTTP layer depends on.
type LedgerService interface {
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.LotSnapshot, error)
	Withdraw(ctx context.Context, input usecase.WithdrawInput) ([]domain.Withdrawal, error)
	Convert(ctx context.Context, input usecase.ConvertInput) ([]domain.LotSnapshot, error)
	Balance(ctx context.Context) map[string]decimal.Decimal
	TotalDeposited(ctx context.Context) map[string]decimal.Decimal
	History(ctx context.Context, input usecase.HistoryInput) ([]domain.LotSnapshot, error)
	CheckConsistency(ctx context.Context) (bool, error)
}

// LedgerHandler handles lot ledger HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// Deposit adds a lot.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	lot, err := h.ledgerUC.Deposit(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to deposit", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.LotFromDomain(*lot))
}

// Withdraw removes funds in FIFO order.
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	withdrawals, err := h.ledgerUC.Withdraw(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to withdraw", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawResponse{
		Withdrawals: dto.WithdrawalsFromDomain(withdrawals),
	})
}

// Convert moves funds from one currency into another.
func (h *LedgerHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	lots, err := h.ledgerUC.Convert(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to convert", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConversionResponse{
		Lots:     dto.LotsFromDomain(lots),
		Balances: h.ledgerUC.Balance(r.Context()),
	})
}

// Balances returns the rounded balance and gross deposits per currency.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.BalancesResponse{
		Balances:       h.ledgerUC.Balance(r.Context()),
		TotalDeposited: h.ledgerUC.TotalDeposited(r.Context()),
	})
}

// Lots lists lots oldest first, optionally filtered by currency.
func (h *LedgerHandler) Lots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.ledgerUC.History(r.Context(), usecase.HistoryInput{
		Currency: r.URL.Query().Get("currency"),
		Limit:    parseIntQuery(r, "limit", 0),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list lots", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LotsResponse{Lots: dto.LotsFromDomain(lots)})
}

// CheckConsistency checks if the running balances agree with the lots.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{
				Status:     "inconsistent",
				Consistent: false,
				Message:    err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyResponse{
		Status:     "consistent",
		Consistent: consistent,
	})
}
