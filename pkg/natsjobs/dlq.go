package natsjobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DLQReason classifies why a message was routed to the dead-letter stream.
type DLQReason string

const (
	DLQReasonAbortError         DLQReason = "abort_error"
	DLQReasonMaxDeliverExceeded DLQReason = "max_deliver_exceeded"
)

// dlqRecord is the JSON object published on the dlq subject. Payload carries
// the raw envelope bytes so an operator can replay by re-publishing to the
// appropriate priority subject.
type dlqRecord struct {
	OriginalTaskID string    `json:"original_task_id"`
	Error          string    `json:"error"`
	Attempts       string    `json:"attempts"`
	DeliveredCount int       `json:"delivered_count"`
	Timestamp      time.Time `json:"timestamp"`
	DLQReason      DLQReason `json:"dlq_reason"`
	Payload        []byte    `json:"payload"`
}

// dlqPublisher is the narrow interface the ack coordinator depends on, so
// tests can substitute a fake instead of a real JetStream connection.
type dlqPublisher interface {
	publish(ctx context.Context, originalTaskID string, handlerErr error, deliveredCount int, reason DLQReason, rawEnvelope []byte) error
}

// dlqWriter builds and durably publishes DLQ records. Payload bytes are
// base64-encoded by encoding/json's native []byte marshaling.
type dlqWriter struct {
	js        jetstream.JetStream
	namespace string
	logger    Logger
}

func newDLQWriter(js jetstream.JetStream, namespace string, logger Logger) *dlqWriter {
	return &dlqWriter{js: js, namespace: namespace, logger: logger}
}

// publish builds the record and awaits the broker's durable publish ack.
// Returning an error here means the caller must NOT ack the source message:
// the DLQ invariant is publish-before-ack.
func (w *dlqWriter) publish(ctx context.Context, originalTaskID string, handlerErr error, deliveredCount int, reason DLQReason, rawEnvelope []byte) error {
	errText := ""
	if handlerErr != nil {
		errText = handlerErr.Error()
	}
	rec := dlqRecord{
		OriginalTaskID: originalTaskID,
		Error:          errText,
		Attempts:       fmt.Sprintf("%d delivery attempt(s)", deliveredCount),
		DeliveredCount: deliveredCount,
		Timestamp:      time.Now().UTC(),
		DLQReason:      reason,
		Payload:        rawEnvelope,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return wrapError(ErrCodec, fmt.Sprintf("marshal dlq record for %s: %v", originalTaskID, err))
	}
	if _, err := w.js.Publish(ctx, dlqSubject(w.namespace), data); err != nil {
		return wrapError(ErrJetStream, fmt.Sprintf("publish dlq record for %s: %v", originalTaskID, err))
	}
	w.logger.Info("dlq record published",
		"task_id", originalTaskID,
		"dlq_reason", string(reason),
		"delivered_count", deliveredCount,
	)
	return nil
}

// decodeDLQPayload base64-decodes the embedded envelope bytes for operators
// building their own replay tooling against a raw DLQ message.
func decodeDLQPayload(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, wrapError(ErrCodec, err.Error())
	}
	return data, nil
}
