package natsjobs

import (
	"context"

	"github.com/nimburion/natsjobs/pkg/observability/logger"
)

// Logger is the structured logging interface this package depends on. It is
// an alias of the shared logger package so callers can pass a zap-backed
// logger.Logger (or the async wrapper) straight through without adapters.
type Logger = logger.Logger

// noopLogger discards everything; used when a caller constructs a Storage
// without providing a logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}
func (n noopLogger) With(args ...any) logger.Logger                 { return n }
func (n noopLogger) WithContext(ctx context.Context) logger.Logger { return n }
