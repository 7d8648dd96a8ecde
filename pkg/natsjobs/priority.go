package natsjobs

import "fmt"

// Priority totally orders jobs into three durable streams. Medium is the
// default for push(). Priorities are swept strictly High, Medium, Low by the
// poller; there is no cross-priority FIFO.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// sweepOrder is the fixed strict-priority sweep order used by the poller.
var sweepOrder = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// String returns the lowercase name used in stream/subject identity.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalText renders Priority as its lowercase name, so it serializes
// cleanly both as a JSON string value and as a JSON object key (e.g. in
// QueueInfo.Pending).
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority parses the lowercase names accepted in Config and the CLI.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityMedium, wrapError(ErrValidation, fmt.Sprintf("unknown priority %q", s))
	}
}

// subject returns the publish subject for this priority under namespace.
func (p Priority) subject(namespace string) string {
	return fmt.Sprintf("%s.%s", namespace, p)
}

// streamName returns the provisioned stream name for this priority.
func (p Priority) streamName(namespace string) string {
	return fmt.Sprintf("%s_%s", namespace, p)
}

// consumerName is the shared durable pull consumer name for this priority.
func (p Priority) consumerName(namespace string) string {
	return fmt.Sprintf("%s_%s_worker", namespace, p)
}

func dlqSubject(namespace string) string {
	return fmt.Sprintf("%s.dlq", namespace)
}

func dlqStreamName(namespace string) string {
	return fmt.Sprintf("%s_dlq", namespace)
}
