package natsjobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// provisioner idempotently ensures the three priority streams, their shared
// durable pull consumers, and the DLQ stream exist with the configured
// settings. It is invoked once during Storage construction; constructing a
// second Storage with the same namespace must not corrupt the first's
// stream/consumer configuration.
type provisioner struct {
	js     jetstream.JetStream
	cfg    Config
	logger Logger
}

func newProvisioner(js jetstream.JetStream, cfg Config, logger Logger) *provisioner {
	return &provisioner{js: js, cfg: cfg, logger: logger}
}

func (p *provisioner) provisionAll(ctx context.Context) error {
	for _, priority := range sweepOrder {
		if err := p.provisionPriorityStream(ctx, priority); err != nil {
			return err
		}
		if err := p.provisionConsumer(ctx, priority); err != nil {
			return err
		}
	}
	if p.cfg.EnableDLQ {
		if err := p.provisionDLQStream(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *provisioner) provisionPriorityStream(ctx context.Context, priority Priority) error {
	name := priority.streamName(p.cfg.Namespace)
	streamCfg := jetstream.StreamConfig{
		Name:            name,
		Subjects:        []string{priority.subject(p.cfg.Namespace)},
		Retention:       jetstream.WorkQueuePolicy,
		Discard:         jetstream.DiscardOld,
		Storage:         jetstream.FileStorage,
		Replicas:        p.cfg.NumReplicas,
		MaxAge:          DefaultStreamMaxAge,
		Duplicates:      p.cfg.DuplicateWindow,
	}
	if _, err := p.js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return wrapError(ErrJetStream, fmt.Sprintf("provision stream %s: %v", name, err))
	}
	p.logger.Info("stream provisioned", "stream", name, "priority", priority.String())
	return nil
}

func (p *provisioner) provisionDLQStream(ctx context.Context) error {
	name := dlqStreamName(p.cfg.Namespace)
	streamCfg := jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{dlqSubject(p.cfg.Namespace)},
		Retention: jetstream.LimitsPolicy,
		Discard:   jetstream.DiscardOld,
		Storage:   jetstream.FileStorage,
		Replicas:  p.cfg.NumReplicas,
		MaxAge:    DefaultDLQMaxAge,
	}
	if _, err := p.js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return wrapError(ErrJetStream, fmt.Sprintf("provision dlq stream %s: %v", name, err))
	}
	p.logger.Info("dlq stream provisioned", "stream", name)
	return nil
}

func (p *provisioner) provisionConsumer(ctx context.Context, priority Priority) error {
	name := priority.consumerName(p.cfg.Namespace)
	consumerCfg := jetstream.ConsumerConfig{
		Durable:           name,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		AckWait:           p.cfg.AckWait,
		MaxDeliver:        p.cfg.MaxDeliver,
		MaxAckPending:     p.cfg.MaxAckPending,
		InactiveThreshold: p.cfg.ConsumerInactiveThreshold,
	}
	streamName := priority.streamName(p.cfg.Namespace)
	if _, err := p.js.CreateOrUpdateConsumer(ctx, streamName, consumerCfg); err != nil {
		return wrapError(ErrJetStream, fmt.Sprintf("provision consumer %s: %v", name, err))
	}
	p.logger.Info("consumer provisioned", "consumer", name, "stream", streamName)
	return nil
}

// consumerFor looks up the already-provisioned shared pull consumer for a
// priority.
func (p *provisioner) consumerFor(ctx context.Context, priority Priority) (jetstream.Consumer, error) {
	streamName := priority.streamName(p.cfg.Namespace)
	cons, err := p.js.Consumer(ctx, streamName, priority.consumerName(p.cfg.Namespace))
	if err != nil {
		if errors.Is(err, jetstream.ErrConsumerNotFound) {
			return nil, wrapError(ErrNotInitialized, fmt.Sprintf("consumer for %s not provisioned", priority))
		}
		return nil, wrapError(ErrJetStream, fmt.Sprintf("lookup consumer for %s: %v", priority, err))
	}
	return cons, nil
}
