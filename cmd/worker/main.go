// Command worker demonstrates pushing and polling jobs against a real NATS
// JetStream deployment, with a TracerProvider wired end to end so the trace
// context active at push becomes the parent of the handler span at receive.
package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimburion/natsjobs/pkg/health"
	"github.com/nimburion/natsjobs/pkg/natsjobs"
	"github.com/nimburion/natsjobs/pkg/observability/logger"
	"github.com/nimburion/natsjobs/pkg/observability/metrics"
	"github.com/nimburion/natsjobs/pkg/observability/tracing"
)

type emailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	tracerCfg := tracing.TracerConfig{
		ServiceName: "natsjobs-worker",
		Environment: "dev",
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRate:  1.0,
		Enabled:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
	}
	tp, err := tracing.NewTracerProvider(ctx, tracerCfg)
	if err != nil {
		stdlog.Fatalf("tracer provider: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	log, err := logger.NewZapLogger(logger.DefaultConfig())
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}

	cfg := natsjobs.DefaultConfig()
	cfg.Namespace = "demo"

	storage, err := natsjobs.Connect[emailJob](ctx, url, cfg, log)
	if err != nil {
		log.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	healthRegistry := health.NewRegistry()
	healthRegistry.RegisterFunc("natsjobs", health.NewAdapterChecker("natsjobs", storage, 5*time.Second).Check)
	go runHealthLoop(ctx, healthRegistry, log)

	metricsRegistry := metrics.NewRegistry()
	for _, collector := range natsjobs.MetricsCollectors() {
		if err := metricsRegistry.Register(collector); err != nil {
			log.Warn("metrics collector registration failed", "error", err)
		}
	}
	go serveObservability(ctx, ":9090", healthRegistry, metricsRegistry, log)

	if _, err := storage.Push(ctx, emailJob{To: "ops@example.com", Subject: "hello"}); err != nil {
		log.Error("push failed", "error", err)
	}

	deliveries, err := storage.Poll(ctx, "worker-1")
	if err != nil {
		log.Error("poll failed", "error", err)
		os.Exit(1)
	}

	for delivery := range deliveries {
		handle(ctx, delivery, log)
	}
}

func handle(ctx context.Context, d natsjobs.Delivery[emailJob], log logger.Logger) {
	hb := d.Context.StartProgressHeartbeat(ctx, 10*time.Second, log)
	defer hb.Stop()

	err := d.Context.InvokeHandler(ctx, func(ctx context.Context) error {
		log.Info("handling job", "task_id", d.Context.TaskID(), "to", d.Payload.To)
		return nil
	})
	if err != nil {
		// InvokeHandler already finalized the Context with Abort if the
		// handler panicked; for a plain returned error we still owe the
		// coordinator a decision, so Nack it (the redundant call on an
		// already-aborted Context is a harmless no-op).
		log.Error("handler failed", "task_id", d.Context.TaskID(), "error", err)
		_ = d.Context.Nack(ctx, err)
		return
	}

	if err := d.Context.Ack(ctx); err != nil {
		log.Error("ack failed", "task_id", d.Context.TaskID(), "error", err)
	}
}

// runHealthLoop periodically aggregates registered checks and logs any
// non-healthy status, the way a sidecar /healthz poller would.
func runHealthLoop(ctx context.Context, registry *health.Registry, log logger.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := registry.Check(ctx)
			if !result.IsHealthy() {
				log.Warn("health check degraded", "status", result.Status)
			}
		}
	}
}

// serveObservability mounts /healthz and /metrics on a standalone management
// port, mirroring the teacher's ManagementServer split between public and
// admin traffic without pulling in its full router stack.
func serveObservability(ctx context.Context, addr string, healthRegistry *health.Registry, metricsRegistry *metrics.Registry, log logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		result := healthRegistry.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !result.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	})
	mux.Handle("/metrics", metricsRegistry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("observability server failed", "error", err)
	}
}
