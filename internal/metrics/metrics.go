package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rewards"

// Metrics wraps collectors of the coin economy
// A nil *Metrics is valid and records nothing
type Metrics struct {
	ledgerEntries       *prometheus.CounterVec
	ledgerCoins         *prometheus.CounterVec
	invariantViolations *prometheus.CounterVec
	redemptions         *prometheus.CounterVec
	payoutTransitions   *prometheus.CounterVec
	moderationActions   *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpLatency         *prometheus.HistogramVec
}

// New creates collectors and registers them in reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Coin transactions appended to the journal.",
		}, []string{"account_type", "type"}),
		ledgerCoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_total",
			Help:      "Coins moved by journal entries.",
		}, []string{"account_type", "type"}),
		invariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "invariant_violations_total",
			Help:      "Accounts whose stored balance disagrees with the journal.",
		}, []string{"account_type"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redemption",
			Name:      "redemptions_total",
			Help:      "Confirmed tuition redemptions by kind.",
		}, []string{"kind"}),
		payoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "transitions_total",
			Help:      "Payout requests entering a status.",
		}, []string{"status"}),
		moderationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Moderation actions applied to users and universities.",
		}, []string{"action"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	collectors := []prometheus.Collector{
		m.ledgerEntries,
		m.ledgerCoins,
		m.invariantViolations,
		m.redemptions,
		m.payoutTransitions,
		m.moderationActions,
		m.httpRequests,
		m.httpLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// LedgerEntry records one journal append
func (m *Metrics) LedgerEntry(accountType, txType string, amount int64) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(accountType, txType).Inc()
	m.ledgerCoins.WithLabelValues(accountType, txType).Add(float64(amount))
}

func (m *Metrics) InvariantViolation(accountType string) {
	if m == nil {
		return
	}
	m.invariantViolations.WithLabelValues(accountType).Inc()
}

// Redemption records a confirmed redemption, kind is catalog or custom
func (m *Metrics) Redemption(kind string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(kind).Inc()
}

func (m *Metrics) PayoutTransition(status string) {
	if m == nil {
		return
	}
	m.payoutTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ModerationAction(action string) {
	if m == nil {
		return
	}
	m.moderationActions.WithLabelValues(action).Inc()
}

// ObserveHTTP records a served request. Route is the matched mux pattern
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}
