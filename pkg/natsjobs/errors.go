package natsjobs

import (
	"errors"
	"fmt"
)

var (
	// ErrClient classifies broker connectivity/transport failures.
	ErrClient = errors.New("natsjobs client error")
	// ErrJetStream classifies stream/consumer provisioning or publish-ack failures.
	ErrJetStream = errors.New("natsjobs jetstream error")
	// ErrCodec classifies JSON encode/decode failures.
	ErrCodec = errors.New("natsjobs codec error")
	// ErrStorage classifies ack/nack/term operation failures against the broker.
	ErrStorage = errors.New("natsjobs storage error")
	// ErrUnsupported is returned by scheduling operations; pull consumers have no
	// native per-message delay.
	ErrUnsupported = errors.New("natsjobs unsupported operation")
	// ErrAlreadyFinalized is returned by ack/nack/term after a terminal decision
	// has already been recorded for a message context.
	ErrAlreadyFinalized = errors.New("natsjobs context already finalized")
	// ErrValidation classifies input/config validation failures.
	ErrValidation = errors.New("natsjobs validation error")
	// ErrNotInitialized classifies use of a storage/context value before setup.
	ErrNotInitialized = errors.New("natsjobs not initialized")
	// ErrClosed classifies operations attempted after Close.
	ErrClosed = errors.New("natsjobs closed")
)

func wrapError(kind error, message string) error {
	if message == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, message)
}
