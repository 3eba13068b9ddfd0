package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// LedgerUseCase serializes access to one in-memory ledger and fans its
// mutations out to the outbox, metrics and the audit log.
type LedgerUseCase struct {
	mu      sync.Mutex
	ledger  *domain.Ledger
	idGen   IDGenerator
	outbox  OutboxRepository
	metrics MetricsRecorder
	logger  zerolog.Logger

	// events observed during the current operation, guarded by mu
	events []domain.LedgerEvent
}

// NewLedgerUseCase creates a new LedgerUseCase. outbox and metrics may be nil.
func NewLedgerUseCase(idGen IDGenerator, outbox OutboxRepository, metrics MetricsRecorder, logger zerolog.Logger) *LedgerUseCase {
	uc := &LedgerUseCase{
		idGen:   idGen,
		outbox:  outbox,
		metrics: metrics,
		logger:  logger.With().Str("component", "ledger").Logger(),
	}
	uc.ledger = domain.NewLedger(domain.WithObserver(domain.ObserverFunc(uc.observe)))

	return uc
}

// DepositInput represents input for a deposit. An empty SourceID is replaced by a generated one.
type DepositInput struct {
	SourceID string
	Currency string
	Amount   decimal.Decimal
	Fee      decimal.Decimal
}

// WithdrawInput represents input for a withdrawal.
type WithdrawInput struct {
	Currency string
	Amount   decimal.Decimal
	Fee      decimal.Decimal
}

// ConvertInput represents input for a conversion. AmountTo is already expressed in CurrencyTo.
type ConvertInput struct {
	CurrencyFrom string
	AmountFrom   decimal.Decimal
	CurrencyTo   string
	AmountTo     decimal.Decimal
	Fee          decimal.Decimal
}

// HistoryInput represents input for listing lots. An empty Currency lists every currency.
type HistoryInput struct {
	Currency string
	Limit    int
	Offset   int
}

// Deposit adds a lot and returns it.
func (uc *LedgerUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.LotSnapshot, error) {
	sourceID := input.SourceID
	if sourceID == "" {
		sourceID = uc.idGen.Generate()
	} else if err := domain.ValidateSourceID(sourceID); err != nil {
		return nil, uc.fail(OperationDeposit, err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := uc.ledger.Deposit(input.Amount, input.Currency, sourceID, input.Fee); err != nil {
		return nil, uc.fail(OperationDeposit, err)
	}

	lots := uc.ledger.History(input.Currency)
	lot := lots[len(lots)-1]

	uc.flush(ctx)

	return &lot, nil
}

// Withdraw removes funds in FIFO order and reports the lots that funded them.
func (uc *LedgerUseCase) Withdraw(ctx context.Context, input WithdrawInput) ([]domain.Withdrawal, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	withdrawals, err := uc.ledger.Withdraw(input.Amount, input.Currency, input.Fee)
	if err != nil {
		return nil, uc.fail(OperationWithdrawal, err)
	}

	uc.flush(ctx)

	return withdrawals, nil
}

// Convert moves funds between currencies and returns the lots created in CurrencyTo.
func (uc *LedgerUseCase) Convert(ctx context.Context, input ConvertInput) ([]domain.LotSnapshot, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := uc.ledger.Convert(input.AmountFrom, input.CurrencyFrom, input.AmountTo, input.CurrencyTo, input.Fee)
	if err != nil {
		return nil, uc.fail(OperationConversion, err)
	}

	// New lots sit at the tail of CurrencyTo, one per record that moved principal.
	lots := uc.ledger.History(input.CurrencyTo)
	created := lots[len(lots)-convertedLots(uc.events):]

	uc.flush(ctx)

	return created, nil
}

// Balance returns the rounded balance per currency.
func (uc *LedgerUseCase) Balance(ctx context.Context) map[string]decimal.Decimal {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.ledger.Balance()
}

// TotalDeposited returns the gross amount ever deposited per currency.
func (uc *LedgerUseCase) TotalDeposited(ctx context.Context) map[string]decimal.Decimal {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.ledger.TotalDeposited()
}

// History lists lots oldest first, paginated.
func (uc *LedgerUseCase) History(ctx context.Context, input HistoryInput) ([]domain.LotSnapshot, error) {
	if input.Currency != "" {
		if err := domain.ValidateCurrency(input.Currency); err != nil {
			return nil, err
		}
	}

	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	lots := uc.ledger.History(input.Currency)
	uc.mu.Unlock()

	if offset >= len(lots) {
		return []domain.LotSnapshot{}, nil
	}

	end := offset + limit
	if end > len(lots) {
		end = len(lots)
	}

	return lots[offset:end], nil
}

// CheckConsistency verifies that running balances agree with the lots.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.ledger.CheckConsistency(); err != nil {
		return false, err
	}

	return true, nil
}

// observe runs inside a ledger mutation, with mu held.
func (uc *LedgerUseCase) observe(event domain.LedgerEvent) {
	uc.events = append(uc.events, event)

	entry := uc.logger.Info().
		Str("event", event.Type).
		Str("currency", event.Currency).
		Str("amount", event.Amount.String()).
		Str("fee", event.Fee.String())

	switch event.Type {
	case domain.EventTypeDeposit:
		entry = entry.Str("source_id", event.SourceID)
	case domain.EventTypeConversion:
		entry = entry.
			Str("currency_to", event.CurrencyTo).
			Str("amount_to", event.AmountTo.String())
	}

	entry.Int("sources", len(event.Records)).Msg("ledger mutation applied")
}

// flush hands observed events to metrics and the outbox. Must be called with mu held.
// The ledger has already changed, so a cancelled request does not drop its events.
func (uc *LedgerUseCase) flush(ctx context.Context) {
	events := uc.events
	uc.events = nil

	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), OutboxWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	for _, event := range events {
		if uc.metrics != nil {
			uc.metrics.RecordEvent(event)
		}

		if uc.outbox == nil {
			continue
		}

		outboxEvent := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   event.Currency,
			AggregateType: domain.AggregateTypeCurrency,
			EventType:     event.Type,
			Payload:       event.Payload(),
			CreatedAt:     now,
		}

		if err := uc.outbox.Create(ctx, outboxEvent); err != nil {
			uc.logger.Error().Err(err).
				Str("event_type", event.Type).
				Msg("failed to write event to outbox")
		}
	}

	if uc.metrics != nil {
		uc.metrics.SetBalances(uc.ledger.Balance())
	}
}

// convertedLots counts the lots the last conversion in events appended.
func convertedLots(events []domain.LedgerEvent) int {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != domain.EventTypeConversion {
			continue
		}

		n := 0
		for _, record := range events[i].Records {
			if record.AmountTaken.IsPositive() {
				n++
			}
		}
		return n
	}

	return 0
}

func (uc *LedgerUseCase) fail(operation string, err error) error {
	if uc.metrics != nil {
		uc.metrics.RecordError(operation, err)
	}

	uc.logger.Warn().Err(err).Str("operation", operation).Msg("ledger operation rejected")

	return err
}
