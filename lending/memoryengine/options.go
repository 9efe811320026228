package memoryengine

import (
	"time"

	"github.com/liblend/lending-engine-go/lending"
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

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

// WithLockTimeout sets how long lock acquisition may wait before the
// operation fails with lending.ErrBusy.
func WithLockTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return lending.ErrInvalidLockTimeout
		}

		e.lockTimeout = timeout

		return nil
	}
}

// WithLogger sets the logger for the Engine.
func WithLogger(logger lending.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}
