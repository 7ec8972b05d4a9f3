// Package telemetry wires optional Sentry error reporting into the
// application. When disabled in settings the package does nothing and the
// rest of the system never touches Sentry.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/errors"
)

const flushTimeout = 2 * time.Second

// Init initializes Sentry and installs the error reporter hook. Returns
// without side effects when telemetry is disabled.
func Init(settings *conf.Settings, version string) error {
	if !settings.Sentry.Enabled {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Release:          version,
		AttachStacktrace: true,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}

// Flush drains pending Sentry events, called on shutdown.
func Flush() {
	sentry.Flush(flushTimeout)
}
