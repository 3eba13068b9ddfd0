package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeDeposit    = "ledger.deposit"
	EventTypeWithdrawal = "ledger.withdrawal"
	EventTypeConversion = "ledger.conversion"
)

// Aggregate types
const (
	AggregateTypeCurrency = "currency"
)

// LedgerEvent describes a mutation that has been applied to a Ledger.
type LedgerEvent struct {
	Type       string
	Currency   string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	SourceID   string
	CurrencyTo string
	AmountTo   decimal.Decimal
	Records    []SpendRecord
}

// Observer is notified after every successful ledger mutation.
type Observer interface {
	Observe(event LedgerEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event LedgerEvent)

// Observe calls f(event).
func (f ObserverFunc) Observe(event LedgerEvent) {
	f(event)
}

// Payload flattens the event into a JSON friendly map. Amounts are rendered as strings.
func (e LedgerEvent) Payload() map[string]any {
	payload := map[string]any{
		"currency": e.Currency,
		"amount":   e.Amount.String(),
		"fee":      e.Fee.String(),
	}

	switch e.Type {
	case EventTypeDeposit:
		payload["source_id"] = e.SourceID
	case EventTypeConversion:
		payload["currency_to"] = e.CurrencyTo
		payload["amount_to"] = e.AmountTo.String()
	}

	if len(e.Records) > 0 {
		sources := make([]map[string]any, len(e.Records))
		for i, r := range e.Records {
			sources[i] = map[string]any{
				"source_id":         r.SourceID,
				"amount_taken":      r.AmountTaken.String(),
				"fee_taken":         r.FeeTaken.String(),
				"original_used":     r.OriginalUsed.String(),
				"original_currency": r.OriginalCurrency,
			}
		}
		payload["sources"] = sources
	}

	return payload
}

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
