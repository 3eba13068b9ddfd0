package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	Operations      *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	Amount          *prometheus.CounterVec
	FeesCollected   *prometheus.CounterVec
	SpendRecords    *prometheus.HistogramVec
	Balance         *prometheus.GaugeVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Idempotency metrics
	IdempotentReplays prometheus.Counter

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all Prometheus metrics and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_operations_total",
				Help: "Total applied ledger operations",
			},
			[]string{"operation", "currency"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_operation_errors_total",
				Help: "Total rejected ledger operations by reason",
			},
			[]string{"operation", "reason"},
		),
		Amount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_amount_total",
				Help: "Principal moved by ledger operations",
			},
			[]string{"operation", "currency"},
		),
		FeesCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_fees_total",
				Help: "Fees charged by ledger operations",
			},
			[]string{"currency"},
		),
		SpendRecords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lotledger_spend_lots",
				Help:    "Number of lots touched by one withdrawal or conversion",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"operation"},
		),
		Balance: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lotledger_balance",
				Help: "Current rounded balance per currency",
			},
			[]string{"currency"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lotledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lotledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		}),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "lotledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// RecordEvent counts an applied ledger mutation.
func (m *Metrics) RecordEvent(event domain.LedgerEvent) {
	operation := operationName(event.Type)

	m.Operations.WithLabelValues(operation, event.Currency).Inc()
	m.Amount.WithLabelValues(operation, event.Currency).Add(event.Amount.InexactFloat64())

	if event.Fee.IsPositive() {
		m.FeesCollected.WithLabelValues(event.Currency).Add(event.Fee.InexactFloat64())
	}

	if event.Type != domain.EventTypeDeposit {
		m.SpendRecords.WithLabelValues(operation).Observe(float64(len(event.Records)))
	}
}

// RecordError counts a rejected ledger operation.
func (m *Metrics) RecordError(operation string, err error) {
	m.OperationErrors.WithLabelValues(operation, errorReason(err)).Inc()
}

// SetBalances publishes the current balance of every currency.
func (m *Metrics) SetBalances(balances map[string]decimal.Decimal) {
	for currency, amount := range balances {
		m.Balance.WithLabelValues(currency).Set(amount.InexactFloat64())
	}
}

func operationName(eventType string) string {
	return strings.TrimPrefix(eventType, "ledger.")
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, domain.ErrInconsistentLedger):
		return "inconsistent_ledger"
	default:
		return "other"
	}
}
