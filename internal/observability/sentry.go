package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/quantfold/equilens-ai-go/internal/config"
)

const defaultFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry client. Disabled config or an
// empty DSN is a no-op so local development needs no Sentry account.
func InitSentry(cfg config.SentryConfig, fallbackRelease, fallbackEnv string) error {
	if !cfg.Enabled || cfg.DSN == "" {
		return nil
	}

	opts := sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	}
	if opts.Release == "" {
		opts.Release = fallbackRelease
	}
	if opts.Environment == "" {
		opts.Environment = fallbackEnv
	}

	return sentry.Init(opts)
}

// CaptureException reports an error, preferring the request-scoped hub.
func CaptureException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// Flush drains buffered events, respecting the context deadline.
func Flush(ctx context.Context) {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
		if timeout < 0 {
			timeout = 0
		}
	}
	sentry.Flush(timeout)
}
