package natsjobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ackDecisionKind is the terminal outcome a handler, via Context, hands to
// the ack coordinator. Progress is not a decision: it goes straight to the
// broker from Context.Progress.
type ackDecisionKind int

const (
	decisionAck ackDecisionKind = iota
	decisionNak
	decisionTerm
	decisionAbort
)

// ackDecision is what flows over the bounded decision channel from handler
// goroutines to the dedicated ack coordinator. Exactly one is ever emitted
// per Context.
type ackDecision struct {
	ctx  *Context
	kind ackDecisionKind
	err  error
}

// Context is the per-message handle a worker holds for the lifetime of one
// delivery. It is created when the poller decodes a message and destroyed
// the instant an ack decision is emitted; exactly one terminal decision
// (Ack/Nack/Term) may ever complete.
type Context struct {
	namespace   string
	priority    Priority
	taskID      string
	attempt     int
	deliveredCount int
	rawEnvelope []byte
	traceContext map[string]string

	msg jetstream.Msg
	ch  chan<- ackDecision

	mu         sync.Mutex
	finalized  bool
}

func newContext(namespace string, priority Priority, taskID string, attempt, deliveredCount int, rawEnvelope []byte, traceContext map[string]string, msg jetstream.Msg, ch chan<- ackDecision) *Context {
	return &Context{
		namespace:      namespace,
		priority:       priority,
		taskID:         taskID,
		attempt:        attempt,
		deliveredCount: deliveredCount,
		rawEnvelope:    rawEnvelope,
		traceContext:   traceContext,
		msg:            msg,
		ch:             ch,
	}
}

// TaskID returns the envelope id this context was created for.
func (c *Context) TaskID() string { return c.taskID }

// Priority returns the priority stream this message was fetched from.
func (c *Context) Priority() Priority { return c.priority }

// Attempt returns the envelope's informational attempt counter.
func (c *Context) Attempt() int { return c.attempt }

// DeliveredCount returns the broker-reported delivery count, authoritative
// for retry/DLQ decisions.
func (c *Context) DeliveredCount() int { return c.deliveredCount }

// TraceContext returns the propagation headers captured at enqueue time, if
// any were present either on the message headers or the envelope field.
func (c *Context) TraceContext() map[string]string { return c.traceContext }

// Progress extends the processing lease by ack_wait. It is idempotent and
// may be called any number of times before a terminal decision.
func (c *Context) Progress(ctx context.Context) error {
	c.mu.Lock()
	finalized := c.finalized
	c.mu.Unlock()
	if finalized {
		return wrapError(ErrAlreadyFinalized, c.taskID)
	}
	if err := c.msg.InProgress(); err != nil {
		return wrapError(ErrStorage, fmt.Sprintf("progress %s: %v", c.taskID, err))
	}
	return nil
}

// Ack records a successful terminal decision.
func (c *Context) Ack(ctx context.Context) error {
	return c.finalize(ctx, decisionAck, nil)
}

// Nack records a transient-failure terminal decision; err is the handler
// error that caused it.
func (c *Context) Nack(ctx context.Context, err error) error {
	return c.finalize(ctx, decisionNak, err)
}

// Term records a non-recoverable terminal decision with no redelivery.
func (c *Context) Term(ctx context.Context, err error) error {
	return c.finalize(ctx, decisionTerm, err)
}

// Abort records a non-transient handler failure, routed to the DLQ (or
// Term'd, if the DLQ is disabled) by the ack coordinator.
func (c *Context) Abort(ctx context.Context, err error) error {
	return c.finalize(ctx, decisionAbort, err)
}

// InvokeHandler runs fn with the same panic-to-abort-error conversion
// RuntimeWorker.executeHandler applies in the teacher: a recovered panic is
// wrapped into an error (with a captured stack) and the Context is finalized
// with Abort so the ack coordinator routes it to the DLQ like any other
// non-transient handler failure. A non-panic error from fn is returned as-is;
// the caller remains responsible for its own Ack/Nack/Term/Abort decision.
// fn runs under a consumer span whose parent is the trace context captured
// at enqueue, when one was captured.
func (c *Context) InvokeHandler(ctx context.Context, fn func(context.Context) error) (err error) {
	ctx = extractTraceContext(ctx, nil, c.traceContext)
	ctx, span := startConsumeSpan(ctx, c.namespace, c.priority, c.taskID)
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			handlerErr := fmt.Errorf("handler panic: %v; stack=%s", rec, string(debug.Stack()))
			_ = c.Abort(ctx, handlerErr)
			err = handlerErr
		}
	}()
	return fn(ctx)
}

func (c *Context) finalize(ctx context.Context, kind ackDecisionKind, err error) error {
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return wrapError(ErrAlreadyFinalized, c.taskID)
	}
	c.finalized = true
	c.mu.Unlock()

	select {
	case c.ch <- ackDecision{ctx: c, kind: kind, err: err}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// heartbeat is the scoped progress-heartbeat resource returned by
// StartProgressHeartbeat. Stopping it guarantees the background ticker
// goroutine exits; callers must Stop on every handler exit path (success,
// error, panic).
type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the heartbeat ticker and waits for the goroutine to exit.
func (h *heartbeat) Stop() {
	h.cancel()
	<-h.done
}

// StartProgressHeartbeat returns a scoped resource that calls Progress every
// interval until Stop is called. interval must be strictly less than
// ack_wait; a ratio of about 1:3 is recommended to tolerate transient
// broker hiccups.
func (c *Context) StartProgressHeartbeat(ctx context.Context, interval time.Duration, logger Logger) *heartbeat {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := c.Progress(hbCtx); err != nil {
					if logger != nil {
						logger.Warn("heartbeat progress failed", "task_id", c.taskID, "error", err)
					}
					return
				}
			}
		}
	}()

	return &heartbeat{cancel: cancel, done: done}
}
