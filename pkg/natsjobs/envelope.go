package natsjobs

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the backend-owned wrapper around a user payload, decoded from
// the wire. Payload is the caller's job value, opaque to the backend.
type Envelope[T any] struct {
	ID           string            `json:"id"`
	Payload      T                 `json:"payload"`
	Attempt      int               `json:"attempt"`
	TraceContext map[string]string `json:"trace_context,omitempty"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
}

// wireEnvelope mirrors Envelope but keeps the payload undecoded, so the
// poller can Term a message whose id/attempt/enqueued_at decode fine but
// whose payload type no longer matches the caller's T.
type wireEnvelope struct {
	ID           string            `json:"id"`
	Payload      json.RawMessage   `json:"payload"`
	Attempt      int               `json:"attempt"`
	TraceContext map[string]string `json:"trace_context,omitempty"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
}

// newTaskID generates a time-sortable, lexicographically unique identifier:
// a millisecond-resolution timestamp prefix (zero-padded hex, sorts
// lexicographically in timestamp order) followed by random suffix bytes.
// Grounded on the teacher's randomToken() crypto/rand+hex helper, extended
// with a sortable prefix since no ULID library is available in this tree.
func newTaskID() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", wrapError(ErrClient, fmt.Sprintf("generate task id: %v", err))
	}
	ts := time.Now().UTC().UnixMilli()
	return fmt.Sprintf("%012x%s", ts, hex.EncodeToString(buf)), nil
}

func encodeEnvelope[T any](id string, payload T, attempt int, traceContext map[string]string) ([]byte, error) {
	env := Envelope[T]{
		ID:           id,
		Payload:      payload,
		Attempt:      attempt,
		TraceContext: traceContext,
		EnqueuedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, wrapError(ErrCodec, err.Error())
	}
	return data, nil
}

func decodeWireEnvelope(data []byte) (*wireEnvelope, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, wrapError(ErrCodec, err.Error())
	}
	return &env, nil
}

func decodePayload[T any](env *wireEnvelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, wrapError(ErrCodec, err.Error())
	}
	return payload, nil
}
