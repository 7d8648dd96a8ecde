package natsjobs

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// fakeMsg is a hand-rolled jetstream.Msg fake, in the style of the teacher's
// fakeDelivery/fakeNack test doubles — no mocking library in the core
// package's test suite.
type fakeMsg struct {
	mu sync.Mutex

	data           []byte
	headers        nats.Header
	numDelivered   uint64
	acked          bool
	nakedDelay     time.Duration
	nakedNoDelay   bool
	termed         bool
	termReason     string
	inProgress     int
	ackErr         error
	nakErr         error
	termErr        error
	inProgressErr  error
}

func newFakeMsg(data []byte, delivered uint64) *fakeMsg {
	return &fakeMsg{data: data, numDelivered: delivered}
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: m.numDelivered}, nil
}

func (m *fakeMsg) Data() []byte { return m.data }

func (m *fakeMsg) Headers() nats.Header { return m.headers }

func (m *fakeMsg) Subject() string { return "test.high" }

func (m *fakeMsg) Reply() string { return "" }

func (m *fakeMsg) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = true
	return nil
}

func (m *fakeMsg) DoubleAck(ctx context.Context) error {
	return m.Ack()
}

func (m *fakeMsg) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nakErr != nil {
		return m.nakErr
	}
	m.nakedNoDelay = true
	return nil
}

func (m *fakeMsg) NakWithDelay(delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nakErr != nil {
		return m.nakErr
	}
	m.nakedDelay = delay
	return nil
}

func (m *fakeMsg) InProgress() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inProgressErr != nil {
		return m.inProgressErr
	}
	m.inProgress++
	return nil
}

func (m *fakeMsg) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.termErr != nil {
		return m.termErr
	}
	m.termed = true
	return nil
}

func (m *fakeMsg) TermWithReason(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.termErr != nil {
		return m.termErr
	}
	m.termed = true
	m.termReason = reason
	return nil
}

func (m *fakeMsg) snapshot() (acked, nakedNoDelay, termed bool, nakedDelay time.Duration, inProgress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked, m.nakedNoDelay, m.termed, m.nakedDelay, m.inProgress
}

// fakeDLQPublisher records calls instead of talking to a broker, letting
// tests assert the DLQ-before-ack ordering without a real JetStream.
type fakeDLQPublisher struct {
	mu       sync.Mutex
	calls    int
	failNext bool
}

func (f *fakeDLQPublisher) publish(ctx context.Context, originalTaskID string, handlerErr error, deliveredCount int, reason DLQReason, rawEnvelope []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failNext {
		f.failNext = false
		return wrapError(ErrJetStream, "injected dlq publish failure")
	}
	return nil
}

// testLogger discards everything, matching the teacher's plain-testing
// texture for the jobs package (no assertion library in core tests).
type testLogger struct{}

func (testLogger) Debug(msg string, args ...any)      {}
func (testLogger) Info(msg string, args ...any)       {}
func (testLogger) Warn(msg string, args ...any)       {}
func (testLogger) Error(msg string, args ...any)      {}
func (t testLogger) With(args ...any) Logger          { return t }
func (t testLogger) WithContext(ctx context.Context) Logger { return t }
