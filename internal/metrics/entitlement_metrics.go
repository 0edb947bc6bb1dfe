package metrics

import (
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome значения метки outcome
const (
	OutcomeOK        = "ok"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
	OutcomeRejected  = "rejected"
	OutcomeNoop      = "noop"
)

// EntitlementMetrics интерфейс для метрик мест, платежей и каталога
type EntitlementMetrics interface {
	IncSeatCheck(outcome string)
	IncRedemption(method, outcome string)
	ObservePaymentMerge(local, remote, merged int)
	IncOfferOperation(operation, outcome string)
	IncPartialInconsistency()
	IncReconciled(outcome string)
}

type entitlementMetrics struct {
	log                  *logger.Logger
	seatChecks           *prometheus.CounterVec
	redemptions          *prometheus.CounterVec
	paymentRows          *prometheus.HistogramVec
	offerOperations      *prometheus.CounterVec
	partialInconsistency prometheus.Counter
	reconciled           *prometheus.CounterVec
}

// NewEntitlementMetrics регистрирует метрики в переданном реестре
func NewEntitlementMetrics(registry *prometheus.Registry, log *logger.Logger) EntitlementMetrics {
	factory := promauto.With(registry)

	return &entitlementMetrics{
		log: log,
		seatChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_seat_checks_total",
				Help: "Seat balance checks by outcome",
			},
			[]string{"outcome"},
		),
		redemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_redemptions_total",
				Help: "Profile creation attempts by redemption method and outcome",
			},
			[]string{"method", "outcome"},
		),
		paymentRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_history_rows",
				Help:    "Rows seen per payment history request by source",
				Buckets: prometheus.LinearBuckets(0, 10, 6),
			},
			[]string{"source"},
		),
		offerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offer_operations_total",
				Help: "Priced offer lifecycle operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		partialInconsistency: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "offer_partial_inconsistency_total",
				Help: "Replacements that left the previous offer active",
			},
		),
		reconciled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_orphan_reconciliations_total",
				Help: "Pending profiles processed by the reconciler",
			},
			[]string{"outcome"},
		),
	}
}

func (m *entitlementMetrics) IncSeatCheck(outcome string) {
	m.seatChecks.WithLabelValues(outcome).Inc()
}

func (m *entitlementMetrics) IncRedemption(method, outcome string) {
	m.redemptions.WithLabelValues(method, outcome).Inc()
}

// ObservePaymentMerge записывает размеры обоих источников и результата
func (m *entitlementMetrics) ObservePaymentMerge(local, remote, merged int) {
	m.paymentRows.WithLabelValues("local").Observe(float64(local))
	m.paymentRows.WithLabelValues("remote").Observe(float64(remote))
	m.paymentRows.WithLabelValues("merged").Observe(float64(merged))
}

func (m *entitlementMetrics) IncOfferOperation(operation, outcome string) {
	m.offerOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *entitlementMetrics) IncPartialInconsistency() {
	m.partialInconsistency.Inc()
}

func (m *entitlementMetrics) IncReconciled(outcome string) {
	m.reconciled.WithLabelValues(outcome).Inc()
}
