// Package telemetry wires background error reporting. Reporting is opt-in:
// without a DSN every capture call is a no-op, so callers never need to
// check whether it is enabled.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/config"
)

var enabled bool

// Init configures the Sentry SDK when a DSN is present
func Init(cfg config.TelemetryConfig, version string) error {
	if cfg.SentryDSN == "" {
		logrus.Info("Error reporting is disabled (no DSN configured)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          fmt.Sprintf("content-moderation-go@%s", version),
		SampleRate:       1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	enabled = true
	logrus.Info("Error reporting initialized")
	return nil
}

// CaptureError reports a background failure. Errors already absorbed into
// request state still surface here so they are visible outside the database.
func CaptureError(err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush drains buffered events during shutdown
func Flush() {
	if !enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
