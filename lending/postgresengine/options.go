package postgresengine

import (
	"github.com/liblend/lending-engine-go/lending"
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithTableNames overrides the default table names. Empty fields keep their
// defaults; explicitly supplying only whitespace-free non-empty names is the
// caller's responsibility.
func WithTableNames(tables TableNames) Option {
	return func(e *Engine) error {
		if tables.Loans != "" {
			e.tables.Loans = tables.Loans
		}
		if tables.Copies != "" {
			e.tables.Copies = tables.Copies
		}
		if tables.Patrons != "" {
			e.tables.Patrons = tables.Patrons
		}
		if tables.Titles != "" {
			e.tables.Titles = tables.Titles
		}

		if e.tables.Loans == "" || e.tables.Copies == "" || e.tables.Patrons == "" || e.tables.Titles == "" {
			return lending.ErrEmptyTableName
		}

		return nil
	}
}

// WithLoanLimit sets the maximum number of concurrently open loans per patron.
// The default is lending.DefaultLoanLimit.
func WithLoanLimit(limit int) Option {
	return func(e *Engine) error {
		if limit < 1 {
			return lending.ErrInvalidLoanLimit
		}

		e.loanLimit = limit

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Operation outcomes, durations, conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// When configured it is preferred over the plain logger, enabling automatic
// trace/span correlation from the call context.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// The collector receives operation durations, copy conflicts, and limit rejections.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// The collector receives one span per engine operation with outcome status.
func WithTracing(collector lending.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
