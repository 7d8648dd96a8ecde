package natsjobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nimburion/natsjobs/pkg/observability/tracing"
	"github.com/nimburion/natsjobs/pkg/resilience"
)

// QueueInfo is a best-effort, non-transactional snapshot of queue depth.
// Counts are derived from broker-reported consumer/stream info, never
// persisted locally.
type QueueInfo struct {
	Namespace string
	Pending   map[Priority]int
	DLQDepth  int
}

// ConsumerInfo snapshots one priority's shared pull consumer for
// operational dashboards: a Go analogue of the original implementation's
// list_workers() stats surface.
type ConsumerInfo struct {
	Priority       Priority
	NumPending     int
	NumAckPending  int
	NumRedelivered int
}

// Delivery pairs a decoded job payload with the context used to progress,
// ack, nack, or term the underlying message.
type Delivery[T any] struct {
	Payload T
	Context *Context
}

// Storage is the priority-aware durable job backend over NATS JetStream. It
// exclusively owns the broker connection handle; in-flight message contexts
// borrow individual messages and are the only writers to their own ack
// state.
type Storage[T any] struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg Config

	provisioner *provisioner
	dlq         *dlqWriter
	logger      Logger
	publishCB   *resilience.CircuitBreaker

	ackCh chan ackDecision

	mu     sync.Mutex
	closed bool
}

// Connect dials url with the given nats.Options (credentials, TLS, retry
// policy) and constructs a Storage for T, provisioning all streams and
// consumers idempotently before returning.
func Connect[T any](ctx context.Context, url string, cfg Config, logger Logger, opts ...nats.Option) (*Storage[T], error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, wrapError(ErrClient, fmt.Sprintf("connect %s: %v", url, err))
	}
	return newStorageFromConn[T](ctx, nc, cfg, logger)
}

// ConnectWithUserPass is a thin convenience wrapper over Connect using
// username/password authentication, mirroring the original crate's
// connect_with_user_pass helper.
func ConnectWithUserPass[T any](ctx context.Context, url, user, pass string, cfg Config, logger Logger) (*Storage[T], error) {
	return Connect[T](ctx, url, cfg, logger, nats.UserInfo(user, pass))
}

// ConnectWithToken mirrors connect_with_credentials for token auth.
func ConnectWithToken[T any](ctx context.Context, url, token string, cfg Config, logger Logger) (*Storage[T], error) {
	return Connect[T](ctx, url, cfg, logger, nats.Token(token))
}

// NewStorage wraps an already-established *nats.Conn, for callers that own
// connection lifecycle themselves (the external-collaborator boundary this
// backend draws around authentication).
func NewStorage[T any](ctx context.Context, nc *nats.Conn, cfg Config, logger Logger) (*Storage[T], error) {
	return newStorageFromConn[T](ctx, nc, cfg, logger)
}

func newStorageFromConn[T any](ctx context.Context, nc *nats.Conn, cfg Config, logger Logger) (*Storage[T], error) {
	cfg.normalize()
	if logger == nil {
		logger = noopLogger{}
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, wrapError(ErrJetStream, err.Error())
	}

	prov := newProvisioner(js, cfg, logger)
	if err := prov.provisionAll(ctx); err != nil {
		return nil, err
	}

	s := &Storage[T]{
		nc:          nc,
		js:          js,
		cfg:         cfg,
		provisioner: prov,
		dlq:         newDLQWriter(js, cfg.Namespace, logger),
		logger:      logger,
		publishCB:   resilience.NewCircuitBreaker(cfg.PublishCircuitBreakerThreshold, cfg.PublishCircuitBreakerTimeout),
		ackCh:       make(chan ackDecision, defaultDecisionBufferSize),
	}
	return s, nil
}

// Push enqueues job at the default priority (Medium), injecting the current
// trace context if tracing is enabled. It returns the assigned task id.
func (s *Storage[T]) Push(ctx context.Context, job T) (string, error) {
	return s.PushWithPriority(ctx, job, PriorityMedium)
}

// PushWithPriority is Push targeting an explicit priority subject.
func (s *Storage[T]) PushWithPriority(ctx context.Context, job T, priority Priority) (string, error) {
	var traceContext map[string]string
	if s.cfg.EnableTracing {
		traceContext = injectTraceContext(ctx)
	}
	return s.pushInternal(ctx, job, priority, traceContext)
}

// PushWithPriorityAndContext accepts an explicit trace context rather than
// the ambient one, for callers bridging a trace that started outside the
// current goroutine.
func (s *Storage[T]) PushWithPriorityAndContext(ctx context.Context, job T, priority Priority, traceContext map[string]string) (string, error) {
	return s.pushInternal(ctx, job, priority, traceContext)
}

func (s *Storage[T]) pushInternal(ctx context.Context, job T, priority Priority, traceContext map[string]string) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}

	id, err := newTaskID()
	if err != nil {
		return "", err
	}

	data, err := encodeEnvelope(id, job, 0, traceContext)
	if err != nil {
		return "", err
	}

	ctx, span := startPublishSpan(ctx, s.cfg.Namespace, priority, id, len(data))
	defer span.End()

	var pubOpts []jetstream.PublishOpt
	msg := &nats.Msg{
		Subject: priority.subject(s.cfg.Namespace),
		Data:    data,
	}
	if s.cfg.EnableTracing && len(traceContext) > 0 {
		msg.Header = nats.Header{}
		for k, v := range traceContext {
			msg.Header.Set(k, v)
		}
	}

	pubErr := resilience.WithTimeout(ctx, s.cfg.PublishTimeout, func(timeoutCtx context.Context) error {
		return s.publishCB.Execute(func() error {
			_, err := s.js.PublishMsg(timeoutCtx, msg, pubOpts...)
			return err
		})
	})
	if pubErr != nil {
		tracing.RecordError(span, pubErr)
		return "", wrapError(ErrClient, fmt.Sprintf("publish %s: %v", id, pubErr))
	}

	tracing.RecordSuccess(span)
	recordJobEnqueued(s.cfg.Namespace, priority)
	return id, nil
}

// QueueInfo returns a best-effort snapshot of pending counts per priority
// plus DLQ depth.
func (s *Storage[T]) QueueInfo(ctx context.Context) (QueueInfo, error) {
	info := QueueInfo{Namespace: s.cfg.Namespace, Pending: make(map[Priority]int, len(sweepOrder))}
	for _, priority := range sweepOrder {
		stream, err := s.js.Stream(ctx, priority.streamName(s.cfg.Namespace))
		if err != nil {
			return QueueInfo{}, wrapError(ErrJetStream, fmt.Sprintf("stream info %s: %v", priority, err))
		}
		streamInfo, err := stream.Info(ctx)
		if err != nil {
			return QueueInfo{}, wrapError(ErrJetStream, fmt.Sprintf("stream info %s: %v", priority, err))
		}
		info.Pending[priority] = int(streamInfo.State.Msgs)
	}

	if s.cfg.EnableDLQ {
		dlqStream, err := s.js.Stream(ctx, dlqStreamName(s.cfg.Namespace))
		if err == nil {
			if streamInfo, err := dlqStream.Info(ctx); err == nil {
				info.DLQDepth = int(streamInfo.State.Msgs)
			}
		}
	}
	return info, nil
}

// ConsumerInfo snapshots the shared pull consumer's delivered/ack-pending/
// redelivered counters for one priority, the Go analogue of the original
// implementation's list_workers() surface.
func (s *Storage[T]) ConsumerInfo(ctx context.Context, priority Priority) (ConsumerInfo, error) {
	cons, err := s.provisioner.consumerFor(ctx, priority)
	if err != nil {
		return ConsumerInfo{}, err
	}
	info, err := cons.Info(ctx)
	if err != nil {
		return ConsumerInfo{}, wrapError(ErrJetStream, fmt.Sprintf("consumer info %s: %v", priority, err))
	}
	return ConsumerInfo{
		Priority:       priority,
		NumPending:     int(info.NumPending),
		NumAckPending:  info.NumAckPending,
		NumRedelivered: info.NumRedelivered,
	}, nil
}

// ScheduleRequest is documented as unsupported: JetStream pull consumers
// have no native per-message delay. A future durable scheduler (a delayed
// subject plus forwarder) is out of scope for this backend.
func (s *Storage[T]) ScheduleRequest(ctx context.Context, job T, priority Priority) (string, error) {
	return "", wrapError(ErrUnsupported, "schedule_request: pull consumers have no per-message delay")
}

// Reschedule is documented as unsupported for the same reason as
// ScheduleRequest.
func (s *Storage[T]) Reschedule(ctx context.Context, taskID string) error {
	return wrapError(ErrUnsupported, "reschedule: pull consumers have no per-message delay")
}

// Poll is the entry point the worker framework invokes to obtain a stream
// of (job, context) pairs. It spawns the ack coordinator and the poller,
// both independent concurrent activities communicating through a bounded
// decision channel, and returns the decoded-message channel. Poll must be
// called at most once per Storage instance.
func (s *Storage[T]) Poll(ctx context.Context, workerID string) (<-chan Delivery[T], error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	pl := newPoller(s.cfg, s.provisioner, s.ackCh, s.logger)
	if err := pl.prepare(ctx); err != nil {
		return nil, err
	}

	coord := newAckCoordinator(s.cfg, s.dlq, s.logger)
	go coord.run(ctx, s.ackCh)

	rawOut := make(chan rawDelivery)
	go pl.run(ctx, rawOut)

	out := make(chan Delivery[T])
	go func() {
		defer close(out)
		for raw := range rawOut {
			payload, err := decodePayload[T](raw.envelope)
			if err != nil {
				s.logger.Error("payload decode failed, term'd as poison", "task_id", raw.ctx.taskID, "error", err)
				_ = raw.ctx.Term(ctx, err)
				continue
			}
			select {
			case out <- Delivery[T]{Payload: payload, Context: raw.ctx}:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("poll started", "worker_id", workerID, "namespace", s.cfg.Namespace)
	return out, nil
}

// HealthCheck reports whether the broker connection is usable and the
// publish circuit breaker is not open. It satisfies health.Checkable so a
// hosting application can register this Storage directly with
// health.NewAdapterChecker.
func (s *Storage[T]) HealthCheck(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.nc.Status() != nats.CONNECTED {
		return wrapError(ErrClient, fmt.Sprintf("connection status %s", s.nc.Status()))
	}
	if s.publishCB.GetState() == resilience.StateOpen {
		return wrapError(ErrClient, "publish circuit breaker open")
	}
	return nil
}

// Close drains and closes the broker connection. It is safe to call more
// than once.
func (s *Storage[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.nc.Drain()
}

func (s *Storage[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
