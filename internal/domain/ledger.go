package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// ReportingPlaces is the number of fractional digits kept at reporting boundaries.
	ReportingPlaces = 6

	// divisionPrecision bounds the fractional digits of every internal division.
	divisionPrecision = 28
)

// Ledger holds per-currency FIFO queues of lots.
//
// A Ledger is not safe for concurrent use. It owns every Lot it holds;
// callers only ever see copies.
type Ledger struct {
	queues         map[string][]Lot
	balances       map[string]decimal.Decimal
	totalDeposited map[string]decimal.Decimal
	currencies     []string
	observer       Observer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithObserver registers an observer notified after each successful mutation.
func WithObserver(observer Observer) Option {
	return func(l *Ledger) {
		l.observer = observer
	}
}

// NewLedger creates an empty Ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		queues:         make(map[string][]Lot),
		balances:       make(map[string]decimal.Decimal),
		totalDeposited: make(map[string]decimal.Decimal),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Deposit appends a lot of amount-fee to the currency queue.
// The fee is deducted up front and never becomes spendable.
func (l *Ledger) Deposit(amount decimal.Decimal, currency, sourceID string, fee decimal.Decimal) error {
	if err := ValidateCurrency(currency); err != nil {
		return err
	}
	if err := ValidateNonNegative("amount", amount); err != nil {
		return err
	}
	if err := ValidateFee(fee, amount); err != nil {
		return err
	}

	net := amount.Sub(fee)

	l.register(currency)
	l.queues[currency] = append(l.queues[currency], Lot{
		SourceID:         sourceID,
		CurrentAmount:    net,
		OriginalAmount:   amount,
		OriginalCurrency: currency,
	})
	l.balances[currency] = l.balances[currency].Add(net)
	l.totalDeposited[currency] = l.totalDeposited[currency].Add(amount)

	l.notify(LedgerEvent{
		Type:     EventTypeDeposit,
		Currency: currency,
		Amount:   amount,
		Fee:      fee,
		SourceID: sourceID,
	})

	return nil
}

// Withdraw removes amount+fee from the currency and reports which lots funded the amount.
func (l *Ledger) Withdraw(amount decimal.Decimal, currency string, fee decimal.Decimal) ([]Withdrawal, error) {
	records, err := l.spend(currency, amount, fee)
	if err != nil {
		return nil, err
	}

	l.notify(LedgerEvent{
		Type:     EventTypeWithdrawal,
		Currency: currency,
		Amount:   amount,
		Fee:      fee,
		Records:  records,
	})

	withdrawals := make([]Withdrawal, len(records))
	for i, r := range records {
		withdrawals[i] = Withdrawal{
			SourceID:         r.SourceID,
			AmountWithdrawn:  r.AmountTaken.RoundBank(ReportingPlaces),
			OriginalAmount:   r.OriginalUsed.RoundBank(ReportingPlaces),
			OriginalCurrency: r.OriginalCurrency,
		}
	}

	return withdrawals, nil
}

// Convert spends amountFrom+fee of currencyFrom and deposits amountTo of currencyTo,
// split across new lots in proportion to the principal each source lot contributed.
// Provenance of every source lot is carried over; the fee leaves the ledger.
func (l *Ledger) Convert(amountFrom decimal.Decimal, currencyFrom string, amountTo decimal.Decimal, currencyTo string, fee decimal.Decimal) error {
	if err := ValidateCurrency(currencyTo); err != nil {
		return err
	}
	if err := ValidateNonNegative("amount_to", amountTo); err != nil {
		return err
	}

	records, err := l.spend(currencyFrom, amountFrom, fee)
	if err != nil {
		return err
	}

	l.register(currencyTo)
	for _, r := range records {
		if !r.AmountTaken.IsPositive() {
			continue
		}

		converted := decimal.Zero
		if amountFrom.IsPositive() {
			converted = proportion(r.AmountTaken, amountTo, amountFrom)
		}

		l.queues[currencyTo] = append(l.queues[currencyTo], Lot{
			SourceID:         r.SourceID,
			CurrentAmount:    converted,
			OriginalAmount:   r.OriginalUsed,
			OriginalCurrency: r.OriginalCurrency,
		})
		l.balances[currencyTo] = l.balances[currencyTo].Add(converted)
	}

	l.notify(LedgerEvent{
		Type:       EventTypeConversion,
		Currency:   currencyFrom,
		Amount:     amountFrom,
		Fee:        fee,
		CurrencyTo: currencyTo,
		AmountTo:   amountTo,
		Records:    records,
	})

	return nil
}

// Balance returns the rounded balance of every currency the ledger has seen.
func (l *Ledger) Balance() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(l.currencies))
	for _, currency := range l.currencies {
		result[currency] = l.balances[currency].RoundBank(ReportingPlaces)
	}
	return result
}

// History returns the lots of currency, oldest first. An empty currency
// returns the lots of every currency in the order currencies were first seen.
func (l *Ledger) History(currency string) []LotSnapshot {
	currencies := l.currencies
	if currency != "" {
		currencies = []string{currency}
	}

	var snapshots []LotSnapshot
	for _, c := range currencies {
		for i := range l.queues[c] {
			s := l.queues[c][i].Snapshot()
			s.Currency = c
			snapshots = append(snapshots, s)
		}
	}

	return snapshots
}

// TotalDeposited returns the gross amount ever deposited per currency.
// Conversions do not count as deposits.
func (l *Ledger) TotalDeposited() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(l.totalDeposited))
	for currency, total := range l.totalDeposited {
		result[currency] = total
	}
	return result
}

// Currencies returns every currency the ledger has seen, in first-seen order.
func (l *Ledger) Currencies() []string {
	return append([]string(nil), l.currencies...)
}

// CheckConsistency verifies that the running balances match the lots and
// that no lot holds a negative amount.
func (l *Ledger) CheckConsistency() error {
	for _, currency := range l.currencies {
		sum := decimal.Zero
		for _, lot := range l.queues[currency] {
			if lot.CurrentAmount.IsNegative() || lot.OriginalAmount.IsNegative() {
				return fmt.Errorf("%w: lot %s in %s has a negative amount", ErrInconsistentLedger, lot.SourceID, currency)
			}
			sum = sum.Add(lot.CurrentAmount)
		}

		if !sum.Equal(l.balances[currency]) {
			return fmt.Errorf("%w: %s lots sum to %s, balance is %s",
				ErrInconsistentLedger, currency, sum.String(), l.balances[currency].String())
		}
	}

	return nil
}

// spend drains principal+fee from the front of the currency queue. Each
// lot contributes principal and fee in the same ratio as the remaining request.
func (l *Ledger) spend(currency string, principal, fee decimal.Decimal) ([]SpendRecord, error) {
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	if err := ValidateNonNegative("amount", principal); err != nil {
		return nil, err
	}
	if err := ValidateNonNegative("fee", fee); err != nil {
		return nil, err
	}

	required := principal.Add(fee)
	available := l.balances[currency].RoundBank(ReportingPlaces)
	if available.LessThan(required) {
		return nil, &InsufficientFundsError{
			Currency:  currency,
			Available: available,
			Required:  required,
		}
	}

	var records []SpendRecord
	remainingPrincipal, remainingFee := principal, fee
	drained := decimal.Zero
	queue := l.queues[currency]

	for len(queue) > 0 {
		remaining := remainingPrincipal.Add(remainingFee)
		if !remaining.IsPositive() {
			break
		}

		lot := &queue[0]
		lotAvailable := lot.CurrentAmount

		var take, amountTaken, feeTaken decimal.Decimal
		if lotAvailable.GreaterThanOrEqual(remaining) {
			take = remaining
			amountTaken = remainingPrincipal
			feeTaken = remainingFee
			remainingPrincipal = decimal.Zero
			remainingFee = decimal.Zero
		} else {
			take = lotAvailable
			amountTaken = proportion(remainingPrincipal, take, remaining)
			feeTaken = take.Sub(amountTaken)
			remainingPrincipal = remainingPrincipal.Sub(amountTaken)
			remainingFee = remainingFee.Sub(feeTaken)
		}

		originalUsed := decimal.Zero
		if lotAvailable.IsPositive() {
			originalUsed = proportion(lot.OriginalAmount, take, lotAvailable)
		}

		if take.IsPositive() {
			records = append(records, SpendRecord{
				SourceID:         lot.SourceID,
				AmountTaken:      amountTaken,
				FeeTaken:         feeTaken,
				OriginalUsed:     originalUsed,
				OriginalCurrency: lot.OriginalCurrency,
			})
		}

		lot.CurrentAmount = lot.CurrentAmount.Sub(take)
		lot.OriginalAmount = lot.OriginalAmount.Sub(originalUsed)
		drained = drained.Add(take)

		if !lot.CurrentAmount.IsPositive() {
			queue[0] = Lot{}
			queue = queue[1:]
		}
	}

	if _, ok := l.queues[currency]; ok {
		l.queues[currency] = queue
		l.balances[currency] = l.balances[currency].Sub(drained)
	}

	return records, nil
}

func (l *Ledger) register(currency string) {
	if _, ok := l.queues[currency]; ok {
		return
	}
	l.queues[currency] = nil
	l.currencies = append(l.currencies, currency)
}

func (l *Ledger) notify(event LedgerEvent) {
	if l.observer != nil {
		l.observer.Observe(event)
	}
}

// proportion returns a*b/c. c must not be zero.
func proportion(a, b, c decimal.Decimal) decimal.Decimal {
	return a.Mul(b).DivRound(c, divisionPrecision)
}
