package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BotMetrics records the dispatch pipeline's operational counters.
type BotMetrics struct {
	updates          *prometheus.CounterVec
	acknowledgments  prometheus.Counter
	signingDuration  prometheus.Histogram
	signingFailures  prometheus.Counter
	storeFailures    prometheus.Counter
	handlerApologies prometheus.Counter
}

// NewBotMetrics registers the bot metrics on the provided registerer. A nil
// registerer yields a no-op instance (used by tests).
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	if reg == nil {
		return &BotMetrics{}
	}
	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Inbound updates processed, by routed kind.",
	}, []string{"kind"})
	acknowledgments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_acknowledgments_total",
		Help: "Gratitude acknowledgments dispatched to the signing service.",
	})
	signingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_signing_duration_seconds",
		Help:    "Signing service round-trip duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	signingFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_signing_failures_total",
		Help: "Signing service calls that failed or timed out.",
	})
	storeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_store_failures_total",
		Help: "Directory store operations that failed.",
	})
	handlerApologies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_handler_apologies_total",
		Help: "Handler errors converted into apology replies.",
	})
	reg.MustRegister(updates, acknowledgments, signingDuration, signingFailures, storeFailures, handlerApologies)
	return &BotMetrics{
		updates:          updates,
		acknowledgments:  acknowledgments,
		signingDuration:  signingDuration,
		signingFailures:  signingFailures,
		storeFailures:    storeFailures,
		handlerApologies: handlerApologies,
	}
}

// IncUpdate counts one routed inbound update.
func (m *BotMetrics) IncUpdate(kind string) {
	if m == nil || m.updates == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.updates.WithLabelValues(kind).Inc()
}

// IncAcknowledgment counts one dispatched acknowledgment.
func (m *BotMetrics) IncAcknowledgment() {
	if m == nil || m.acknowledgments == nil {
		return
	}
	m.acknowledgments.Inc()
}

// ObserveSigning records one signing round trip.
func (m *BotMetrics) ObserveSigning(duration time.Duration) {
	if m == nil || m.signingDuration == nil {
		return
	}
	m.signingDuration.Observe(duration.Seconds())
}

// IncSigningFailure counts one failed signing call.
func (m *BotMetrics) IncSigningFailure() {
	if m == nil || m.signingFailures == nil {
		return
	}
	m.signingFailures.Inc()
}

// IncStoreFailure counts one failed directory operation.
func (m *BotMetrics) IncStoreFailure() {
	if m == nil || m.storeFailures == nil {
		return
	}
	m.storeFailures.Inc()
}

// IncApology counts one handler error surfaced as an apology.
func (m *BotMetrics) IncApology() {
	if m == nil || m.handlerApologies == nil {
		return
	}
	m.handlerApologies.Inc()
}
