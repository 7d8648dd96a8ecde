package natsjobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const pollerBatchSize = 1

// rawDelivery is one decoded-envelope-plus-context pair emitted downstream
// by the poller, before the generic Storage wrapper decodes the payload
// into the caller's T.
type rawDelivery struct {
	ctx      *Context
	envelope *wireEnvelope
}

// poller is the single long-running activity that sweeps High, Medium, Low
// in strict priority order with a bounded wait per priority. Strict priority
// is enforced purely by the order of attempts: a late-arriving High message
// is visible within at most 2*FetchExpiry even while Medium/Low are being
// polled.
type poller struct {
	cfg         Config
	provisioner *provisioner
	ackCh       chan ackDecision
	logger      Logger
	namespace   string

	consumers map[Priority]jetstream.Consumer
}

func newPoller(cfg Config, provisioner *provisioner, ackCh chan ackDecision, logger Logger) *poller {
	return &poller{
		cfg:         cfg,
		provisioner: provisioner,
		ackCh:       ackCh,
		logger:      logger,
		namespace:   cfg.Namespace,
		consumers:   make(map[Priority]jetstream.Consumer),
	}
}

func (p *poller) prepare(ctx context.Context) error {
	for _, priority := range sweepOrder {
		cons, err := p.provisioner.consumerFor(ctx, priority)
		if err != nil {
			return err
		}
		p.consumers[priority] = cons
	}
	return nil
}

// run sweeps until ctx is cancelled. Emitted deliveries are sent on out;
// run closes out when it returns so downstream ranges terminate cleanly.
// In-flight messages already emitted are allowed to complete by the caller;
// run itself only stops issuing new fetches once ctx is done.
func (p *poller) run(ctx context.Context, out chan<- rawDelivery) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sawAny := false
		for _, priority := range sweepOrder {
			n, err := p.sweepOne(ctx, priority, out)
			if err != nil {
				p.logger.Warn("priority fetch failed", "priority", priority.String(), "error", err)
				continue
			}
			if n > 0 {
				// Restart the sweep from High so a lower priority is only
				// fetched once every higher one came back empty.
				sawAny = true
				break
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		if !sawAny {
			recordEmptySweep(p.namespace)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.IdleSleep):
			}
		}
	}
}

// sweepOne fetches up to pollerBatchSize messages for one priority, bounded
// by FetchExpiry, decoding and emitting each in delivery order. It returns
// the number of messages emitted.
func (p *poller) sweepOne(ctx context.Context, priority Priority, out chan<- rawDelivery) (int, error) {
	cons := p.consumers[priority]
	batch, err := cons.Fetch(pollerBatchSize, jetstream.FetchMaxWait(p.cfg.FetchExpiry))
	if err != nil {
		return 0, wrapError(ErrJetStream, fmt.Sprintf("fetch %s: %v", priority, err))
	}

	count := 0
	for msg := range batch.Messages() {
		count++
		p.handleMessage(ctx, priority, msg, out)
	}
	if err := batch.Error(); err != nil {
		if !isFetchTimeout(err) {
			return count, wrapError(ErrJetStream, fmt.Sprintf("fetch batch %s: %v", priority, err))
		}
	}
	return count, nil
}

func isFetchTimeout(err error) bool {
	return err == nil || err == jetstream.ErrNoMessages || err == context.DeadlineExceeded
}

// handleMessage decodes one message. A malformed payload must not block the
// consumer: on decode failure the message is Term'd as poison and recorded,
// and polling continues with the next message.
func (p *poller) handleMessage(ctx context.Context, priority Priority, msg jetstream.Msg, out chan<- rawDelivery) {
	raw := msg.Data()
	envelope, err := decodeWireEnvelope(raw)
	if err != nil {
		p.logger.Error("poison message term'd", "priority", priority.String(), "error", err)
		if termErr := msg.Term(); termErr != nil {
			p.logger.Error("term poison message failed", "priority", priority.String(), "error", termErr)
		}
		return
	}

	deliveredCount := 1
	if meta, err := msg.Metadata(); err == nil && meta != nil {
		deliveredCount = int(meta.NumDelivered)
	}

	var traceContext map[string]string
	if p.cfg.EnableTracing {
		traceContext = mergeTraceContext(headersToMap(msg.Headers()), envelope.TraceContext)
	}
	msgCtx := newContext(p.namespace, priority, envelope.ID, envelope.Attempt, deliveredCount, raw, traceContext, msg, p.ackCh)

	incrementJobInFlight(p.namespace, priority)

	select {
	case out <- rawDelivery{ctx: msgCtx, envelope: envelope}:
	case <-ctx.Done():
	}
}

func headersToMap(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// mergeTraceContext prefers headers (they survive replay and intermediary
// inspection) and falls back to the envelope's captured field.
func mergeTraceContext(headers, envelopeField map[string]string) map[string]string {
	tc := map[string]string{}
	for k, v := range envelopeField {
		tc[k] = v
	}
	for k, v := range headers {
		if k == "traceparent" || k == "tracestate" {
			tc[k] = v
		}
	}
	if len(tc) == 0 {
		return nil
	}
	return tc
}
