package natsjobs

import (
	"strings"
	"time"
)

// Defaults mirror the documented configuration surface in the external
// interface contract: namespace "apalis", five delivery attempts, a 30s
// processing lease, single-replica streams, DLQ enabled, 100 in-flight
// messages per consumer, and a 75ms bounded fetch per priority.
const (
	DefaultNamespace       = "apalis"
	DefaultMaxDeliver      = 5
	DefaultAckWait         = 30 * time.Second
	DefaultNumReplicas     = 1
	DefaultMaxAckPending   = 100
	DefaultFetchExpiry     = 75 * time.Millisecond
	DefaultIdleSleep       = 20 * time.Millisecond
	DefaultDuplicateWindow = 2 * time.Minute
	// DefaultConsumerInactiveThreshold reclaims a shared consumer left idle by
	// every worker of a priority, mirroring the original implementation.
	DefaultConsumerInactiveThreshold = 5 * time.Minute
	// DefaultDLQMaxAge bounds how long dead-letter records are retained.
	DefaultDLQMaxAge = 30 * 24 * time.Hour
	// DefaultStreamMaxAge bounds how long undelivered job-stream messages live.
	DefaultStreamMaxAge = 7 * 24 * time.Hour
	// DefaultPublishCircuitBreakerThreshold is the number of consecutive
	// publish failures that trip the breaker open.
	DefaultPublishCircuitBreakerThreshold = 5
	// DefaultPublishCircuitBreakerTimeout is how long the breaker stays open
	// before allowing a half-open probe publish.
	DefaultPublishCircuitBreakerTimeout = 10 * time.Second
	// DefaultPublishTimeout bounds a single Push/PushWithPriority call.
	DefaultPublishTimeout = 5 * time.Second

	defaultDecisionBufferSize = 64
	defaultAckDecisionTimeout = 5 * time.Second
)

// DefaultNakBackoff is the ordered per-attempt retry delay, indexed by
// min(attempt-1, len-1).
func DefaultNakBackoff() []time.Duration {
	return []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, 30 * time.Second, time.Minute}
}

// Config configures a Storage instance. Zero-value string, numeric and
// duration fields are normalized to the documented defaults on construction;
// the EnableDLQ and EnableTracing switches are taken as given (DefaultConfig
// sets both to true).
type Config struct {
	// Namespace prefixes every stream and subject name.
	Namespace string
	// MaxDeliver caps delivery attempts before a message is routed to the DLQ
	// (or term'd, if DLQ is disabled).
	MaxDeliver int
	// AckWait is the broker processing lease per delivery.
	AckWait time.Duration
	// NumReplicas is the stream replication factor.
	NumReplicas int
	// EnableDLQ controls whether exhausted/abort messages are routed to a
	// dead-letter stream instead of being term'd outright.
	EnableDLQ bool
	// MaxAckPending caps outstanding unacked deliveries per consumer.
	MaxAckPending int
	// FetchExpiry bounds how long a single priority fetch may wait.
	FetchExpiry time.Duration
	// NakBackoff is the ordered per-delivery-attempt Nak delay.
	NakBackoff []time.Duration
	// EnableTracing controls W3C trace-context injection/extraction.
	EnableTracing bool
	// DuplicateWindow is JetStream's own best-effort de-dup window; it does
	// not substitute for business-level idempotency, which remains a
	// Non-goal of this backend.
	DuplicateWindow time.Duration
	// ConsumerInactiveThreshold reclaims an abandoned shared consumer.
	ConsumerInactiveThreshold time.Duration
	// IdleSleep is the pause between sweeps once all three priorities yield
	// zero messages.
	IdleSleep time.Duration
	// PublishCircuitBreakerThreshold is the consecutive-failure count that
	// trips Push/PushWithPriority's circuit breaker open, shedding load onto
	// the caller instead of queuing every publish behind a stalled backend.
	PublishCircuitBreakerThreshold int
	// PublishCircuitBreakerTimeout is how long the publish breaker stays open
	// before probing with a single half-open publish.
	PublishCircuitBreakerTimeout time.Duration
	// PublishTimeout bounds a single Push/PushWithPriority call end to end.
	PublishTimeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	cfg := Config{EnableDLQ: true, EnableTracing: true}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Namespace) == "" {
		c.Namespace = DefaultNamespace
	}
	c.Namespace = strings.TrimSpace(c.Namespace)
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = DefaultMaxDeliver
	}
	if c.AckWait <= 0 {
		c.AckWait = DefaultAckWait
	}
	if c.NumReplicas <= 0 {
		c.NumReplicas = DefaultNumReplicas
	}
	if c.MaxAckPending <= 0 {
		c.MaxAckPending = DefaultMaxAckPending
	}
	if c.FetchExpiry <= 0 {
		c.FetchExpiry = DefaultFetchExpiry
	}
	if len(c.NakBackoff) == 0 {
		c.NakBackoff = DefaultNakBackoff()
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = DefaultDuplicateWindow
	}
	if c.ConsumerInactiveThreshold <= 0 {
		c.ConsumerInactiveThreshold = DefaultConsumerInactiveThreshold
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = DefaultIdleSleep
	}
	if c.PublishCircuitBreakerThreshold <= 0 {
		c.PublishCircuitBreakerThreshold = DefaultPublishCircuitBreakerThreshold
	}
	if c.PublishCircuitBreakerTimeout <= 0 {
		c.PublishCircuitBreakerTimeout = DefaultPublishCircuitBreakerTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
}

// nakDelayFor returns nak_backoff[min(attempt-1, len-1)], per §4.4.
func (c Config) nakDelayFor(attempt int) time.Duration {
	if len(c.NakBackoff) == 0 {
		return DefaultNakBackoff()[0]
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.NakBackoff) {
		idx = len(c.NakBackoff) - 1
	}
	return c.NakBackoff[idx]
}
