package natsjobs

import (
	"context"
	"fmt"
)

// ackCoordinator is the dedicated task consuming ack decisions from a
// bounded channel fed by the worker framework's response path. It runs
// independently of the poller so a slow broker ack cannot starve fetches
// and vice versa; merging the two into one select loop is exactly the
// anti-pattern this separation avoids.
//
// The coordinator never panics on a decision: ack/nak/term failures are
// logged and left for the broker's redelivery loop after ack_wait.
type ackCoordinator struct {
	cfg    Config
	dlq    dlqPublisher
	logger Logger
}

func newAckCoordinator(cfg Config, dlq dlqPublisher, logger Logger) *ackCoordinator {
	return &ackCoordinator{cfg: cfg, dlq: dlq, logger: logger}
}

// run drains decisions until ch is closed, applying each. It never returns
// early on a single decision's failure.
func (a *ackCoordinator) run(ctx context.Context, ch <-chan ackDecision) {
	for {
		select {
		case <-ctx.Done():
			a.drain(ctx, ch)
			return
		case decision, ok := <-ch:
			if !ok {
				return
			}
			a.apply(ctx, decision)
		}
	}
}

// drain empties remaining buffered decisions after shutdown so messages
// already finalized by handlers are not silently dropped.
func (a *ackCoordinator) drain(ctx context.Context, ch <-chan ackDecision) {
	bg := context.Background()
	for {
		select {
		case decision, ok := <-ch:
			if !ok {
				return
			}
			a.apply(bg, decision)
		default:
			return
		}
	}
}

func (a *ackCoordinator) apply(ctx context.Context, decision ackDecision) {
	msgCtx := decision.ctx
	defer decrementJobInFlight(msgCtx.namespace, msgCtx.priority)

	switch decision.kind {
	case decisionAck:
		a.ack(msgCtx)
		recordJobProcessed(msgCtx.namespace, msgCtx.priority, "ack")

	case decisionTerm:
		a.term(msgCtx, decision.err)
		recordJobProcessed(msgCtx.namespace, msgCtx.priority, "term")

	case decisionAbort:
		a.routeTerminal(ctx, msgCtx, decision.err, DLQReasonAbortError)
		recordJobProcessed(msgCtx.namespace, msgCtx.priority, "abort")

	case decisionNak:
		if msgCtx.deliveredCount < a.cfg.MaxDeliver {
			a.nak(msgCtx, decision.err)
			recordJobRetry(msgCtx.namespace, msgCtx.priority)
			recordJobProcessed(msgCtx.namespace, msgCtx.priority, "nak")
		} else {
			a.routeTerminal(ctx, msgCtx, decision.err, DLQReasonMaxDeliverExceeded)
			recordJobProcessed(msgCtx.namespace, msgCtx.priority, "exhausted")
		}
	}
}

// routeTerminal implements the DLQ-before-ack invariant: if the DLQ is
// enabled, the record must be published and durably acknowledged by the
// broker before the source message is acked. If publish fails, the source
// message is left un-acked on purpose so broker redelivery re-enters this
// path; the routing itself is at-least-once and idempotent on
// original_task_id from the consumer's perspective.
func (a *ackCoordinator) routeTerminal(ctx context.Context, msgCtx *Context, handlerErr error, reason DLQReason) {
	if !a.cfg.EnableDLQ {
		a.term(msgCtx, handlerErr)
		return
	}

	if err := a.dlq.publish(ctx, msgCtx.taskID, handlerErr, msgCtx.deliveredCount, reason, msgCtx.rawEnvelope); err != nil {
		a.logger.Error("dlq publish failed, leaving source unacked for redelivery",
			"task_id", msgCtx.taskID, "dlq_reason", string(reason), "error", err)
		return
	}
	recordJobDLQ(msgCtx.namespace, reason)
	a.ack(msgCtx)
}

func (a *ackCoordinator) ack(msgCtx *Context) {
	if err := msgCtx.msg.Ack(); err != nil {
		a.logger.Error("ack failed, broker will redeliver after ack_wait", "task_id", msgCtx.taskID, "error", err)
	}
}

func (a *ackCoordinator) term(msgCtx *Context, handlerErr error) {
	if err := msgCtx.msg.Term(); err != nil {
		a.logger.Error("term failed, broker will redeliver after ack_wait", "task_id", msgCtx.taskID, "error", err)
	}
	if handlerErr != nil {
		a.logger.Info("message term'd", "task_id", msgCtx.taskID, "error", handlerErr)
	}
}

func (a *ackCoordinator) nak(msgCtx *Context, handlerErr error) {
	delay := a.cfg.nakDelayFor(msgCtx.deliveredCount)
	if err := msgCtx.msg.NakWithDelay(delay); err != nil {
		a.logger.Error("nak failed, broker will redeliver after ack_wait", "task_id", msgCtx.taskID,
			"error", fmt.Errorf("nak with delay %s: %w", delay, err))
	}
}
