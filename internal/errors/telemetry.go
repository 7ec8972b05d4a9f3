// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var activeReporter atomic.Pointer[TelemetryReporter]

// SetTelemetryReporter installs the reporter used by Build. Passing nil
// disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		activeReporter.Store(nil)
		return
	}
	activeReporter.Store(&reporter)
}

func reportToTelemetry(ee *EnhancedError) {
	ptr := activeReporter.Load()
	if ptr == nil {
		return
	}
	reporter := *ptr
	if reporter == nil || !reporter.IsEnabled() {
		return
	}
	reporter.ReportError(ee)
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.Context {
			scope.SetContext(key, map[string]any{"value": value})
		}

		// Fingerprint by component and category so provider hiccups group
		// together instead of flooding the issue list.
		scope.SetFingerprint([]string{ee.Component, string(ee.Category)})

		sentry.CaptureMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	})
}
