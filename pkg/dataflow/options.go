package dataflow

import (
	"time"
)

// Option configures a stage.
type Option func(*config)

type config struct {
	workers    int
	maxRetries int
	backoff    func(int) time.Duration
	retryIf    func(error) bool
	bufferSize int
	// errorHandler returns true when the error is handled and the item may be skipped.
	errorHandler func(error) bool
}

func defaultConfig() *config {
	return &config{
		workers:    1,
		maxRetries: 0,
		bufferSize: 0,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithWorkers sets the number of concurrent workers for a stage.
// Default is 1 (sequential).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBufferSize sets the buffer size for the output channel of a stage.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.bufferSize = n
		}
	}
}

// WithRetry retries a failed item up to maxRetries times, waiting backoff(attempt)
// before each retry.
func WithRetry(maxRetries int, backoff func(attempt int) time.Duration) Option {
	return func(c *config) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		c.backoff = backoff
	}
}

// WithRetryIf limits retries to errors for which retryable returns true. Other
// errors fail the item on the first attempt.
func WithRetryIf(retryable func(error) bool) Option {
	return func(c *config) {
		c.retryIf = retryable
	}
}

// WithErrorHandler sets a custom error handler.
// If the handler returns true, the error is considered handled and the item is skipped.
func WithErrorHandler(h func(error) bool) Option {
	return func(c *config) {
		c.errorHandler = h
	}
}

// ExponentialBackoff returns base, 2*base, 4*base, ... for attempts 1, 2, 3, ...
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << uint(attempt-1)
	}
}
