package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Strategy selects how the wait interval grows between attempts.
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
)

// Config controls a retried operation.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Strategy        Strategy
	Jitter          bool          // randomize each wait by ±25%
	Timeout         time.Duration // overall deadline, 0 = none
	Logger          *logrus.Logger
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Strategy:        StrategyExponential,
		Jitter:          true,
		Timeout:         5 * time.Minute,
		Logger:          logrus.New(),
	}
}

// RetryableError lets an operation mark its own failures as retryable or not.
type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	error
	retryable bool
}

func (e *retryableError) IsRetryable() bool {
	return e.retryable
}

func NewRetryableError(err error) error {
	return &retryableError{error: err, retryable: true}
}

func NewNonRetryableError(err error) error {
	return &retryableError{error: err, retryable: false}
}

// IsRetryable reports whether err should be retried. Context cancellation
// and deadline expiry are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.IsRetryable()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// Func is an operation that can be retried.
type Func func(ctx context.Context) error

// Do runs fn until it succeeds, a non-retryable error occurs, the attempt
// budget is spent, or ctx is done.
func Do(ctx context.Context, config *Config, fn Func) error {
	if config == nil {
		config = DefaultConfig()
	}

	var cancel context.CancelFunc
	if config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var lastErr error
	interval := config.InitialInterval

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		default:
		}

		startTime := time.Now()
		err := fn(ctx)
		duration := time.Since(startTime)

		if err == nil {
			if attempt > 1 {
				config.Logger.WithFields(logrus.Fields{
					"attempt":  attempt,
					"duration": duration,
				}).Info("Operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		config.Logger.WithFields(logrus.Fields{
			"attempt":  attempt,
			"max":      config.MaxAttempts,
			"duration": duration,
			"error":    err.Error(),
		}).Warn("Operation failed")

		if !IsRetryable(err) {
			config.Logger.WithError(err).Warn("Error is not retryable, aborting")
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt >= config.MaxAttempts {
			break
		}

		interval = nextInterval(config, interval, attempt)

		config.Logger.WithFields(logrus.Fields{
			"next_attempt": attempt + 1,
			"wait":         interval,
		}).Info("Waiting before retry")

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry canceled during wait: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("max attempts (%d) reached: %w", config.MaxAttempts, lastErr)
}

func nextInterval(config *Config, current time.Duration, attempt int) time.Duration {
	var next time.Duration

	switch config.Strategy {
	case StrategyFixed:
		next = config.InitialInterval
	case StrategyLinear:
		next = config.InitialInterval * time.Duration(attempt)
	case StrategyExponential:
		multiplier := 1 << (attempt - 1)
		next = config.InitialInterval * time.Duration(multiplier)
	default:
		next = config.InitialInterval
	}

	if next > config.MaxInterval {
		next = config.MaxInterval
	}

	if config.Jitter && next > 0 {
		// ±25% keeps concurrent callers from re-hitting a target in lockstep.
		delta := time.Duration(rand.Int63n(int64(next) / 2))
		next = next - next/4 + delta
	}

	return next
}

// DoWithResult retries fn and returns its result once it succeeds.
func DoWithResult[T any](ctx context.Context, config *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := Do(ctx, config, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	return result, err
}

// Retry runs fn with the default configuration.
func Retry(ctx context.Context, fn Func) error {
	return Do(ctx, DefaultConfig(), fn)
}

// RetryWithAttempts runs fn with a specific attempt budget.
func RetryWithAttempts(ctx context.Context, attempts int, fn Func) error {
	config := DefaultConfig()
	config.MaxAttempts = attempts
	return Do(ctx, config, fn)
}

// Sleep waits for a random duration in [min, max), aborting early when ctx
// is done. Used for cooldowns after bot-detection-like failures.
func Sleep(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
