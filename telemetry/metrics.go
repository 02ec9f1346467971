// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesParsed   *prometheus.CounterVec
	MessagesDropped  prometheus.Counter
	MessagesIgnored  prometheus.Counter
	MessagesSent     *prometheus.CounterVec
	MessagesEvicted  prometheus.Counter
	MentionsRecorded prometheus.Counter
	Disconnects      prometheus.Counter
	RewardsMatched   prometheus.Counter
	RewardsTimedOut  prometheus.Counter

	// Histograms (seconds)
	HistoryLoadDuration prometheus.Observer

	// Gauges
	JoinedChannelsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_messages_parsed_total", Help: "Inbound IRC messages parsed, by kind"}, []string{"kind"})
		MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_dropped_total", Help: "Inbound IRC messages dropped as unparseable"})
		MessagesIgnored = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_ignored_total", Help: "Messages removed by the ignore filter"})
		MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_messages_sent_total", Help: "Outgoing messages, by kind"}, []string{"kind"})
		MessagesEvicted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_evicted_total", Help: "Messages evicted from channel buffers"})
		MentionsRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_mentions_total", Help: "Highlighted messages counted in background channels"})
		Disconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_disconnects_total", Help: "Read-connection transport losses"})
		RewardsMatched = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_rewards_matched_total", Help: "Reward redemptions merged with their chat message"})
		RewardsTimedOut = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_rewards_timed_out_total", Help: "Reward waits that expired without an event"})
		HistoryLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_history_load_duration_seconds", Help: "Recent-message history fetch duration seconds", Buckets: prometheus.DefBuckets})
		JoinedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_joined_channels", Help: "Currently joined channels"})
	})
}

// IncParsed counts one parsed inbound message of the given kind.
func IncParsed(kind string) {
	if MessagesParsed != nil {
		MessagesParsed.WithLabelValues(kind).Inc()
	}
}

// IncParseDropped counts one unparseable inbound message.
func IncParseDropped() {
	if MessagesDropped != nil {
		MessagesDropped.Inc()
	}
}

// IncIgnored counts one message removed by the ignore filter.
func IncIgnored() {
	if MessagesIgnored != nil {
		MessagesIgnored.Inc()
	}
}

// IncSent counts one outgoing message of the given kind.
func IncSent(kind string) {
	if MessagesSent != nil {
		MessagesSent.WithLabelValues(kind).Inc()
	}
}

// IncEvicted counts one buffer eviction.
func IncEvicted() {
	if MessagesEvicted != nil {
		MessagesEvicted.Inc()
	}
}

// IncMention counts one background-channel highlight.
func IncMention() {
	if MentionsRecorded != nil {
		MentionsRecorded.Inc()
	}
}

// IncDisconnects counts one transport loss on the read connection.
func IncDisconnects() {
	if Disconnects != nil {
		Disconnects.Inc()
	}
}

// IncRewardCorrelated counts one successful reward merge.
func IncRewardCorrelated() {
	if RewardsMatched != nil {
		RewardsMatched.Inc()
	}
}

// IncRewardTimeout counts one expired reward wait.
func IncRewardTimeout() {
	if RewardsTimedOut != nil {
		RewardsTimedOut.Inc()
	}
}

// ObserveHistoryLoad records one history fetch duration.
func ObserveHistoryLoad(d time.Duration) {
	if HistoryLoadDuration != nil {
		HistoryLoadDuration.Observe(d.Seconds())
	}
}

// SetJoinedChannels records the current joined-channel count.
func SetJoinedChannels(n int) {
	if JoinedChannelsGauge != nil {
		JoinedChannelsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
