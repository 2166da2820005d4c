// Package retry runs an operation repeatedly according to the retry strategy of
// the classified error it returns. The strategy table in pkg/errors decides
// whether and how often a failure is worth retrying; this package only supplies
// the loop, the backoff sleep, and the jitter.
package retry

import (
	"context"
	cryptorand "crypto/rand"
	"math/big"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/logging"
)

// DefaultMaxDelay caps a single backoff sleep regardless of how fast the
// multiplier grows.
const DefaultMaxDelay = 30 * time.Second

// Option configures a retry loop.
type Option func(*options)

type options struct {
	maxDelay time.Duration
	jitter   bool
	onRetry  func(attempt int, delay time.Duration, err error)
}

// WithMaxDelay caps the delay between attempts. Zero disables the cap.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxDelay = d
	}
}

// WithJitter enables or disables the ±10% randomization of each delay. Jitter
// is on by default; tests turn it off for deterministic timing.
func WithJitter(enabled bool) Option {
	return func(o *options) {
		o.jitter = enabled
	}
}

// WithOnRetry installs a callback invoked before each sleep, with the attempt
// number (1 = first retry), the delay about to be taken, and the error that
// triggered it.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// Do runs op until it succeeds, its error classifies as non-retryable, or the
// category's retry budget is exhausted. The returned error is the classified
// form of the last failure. Context cancellation interrupts both the operation
// and the backoff sleeps.
func Do(ctx context.Context, logger logging.Logger, op func(ctx context.Context) error, opts ...Option) error {
	if logger == nil {
		logger = logging.Nop()
	}

	o := options{
		maxDelay: DefaultMaxDelay,
		jitter:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	for {
		if ctx.Err() != nil {
			return mcperrors.Classify(ctx.Err())
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		attempt++
		ce := mcperrors.Classify(err)

		if !ce.Retry.ShouldRetry || attempt > ce.Retry.MaxRetries {
			if attempt > 1 {
				logger.Log(logging.LevelForSeverity(ce.Severity), "Retries exhausted",
					logging.Int("attempts", attempt),
					logging.String("category", string(ce.Category)),
					logging.ErrorField(ce))
			}
			return ce
		}

		delay := ce.Retry.DelayFor(attempt)
		if o.maxDelay > 0 && delay > o.maxDelay {
			delay = o.maxDelay
		}
		if o.jitter {
			delay = addJitter(delay)
		}

		if o.onRetry != nil {
			o.onRetry(attempt, delay, ce)
		}
		logger.Debug("Retrying after failure",
			logging.Int("attempt", attempt),
			logging.Int("max_retries", ce.Retry.MaxRetries),
			logging.Duration("delay", delay),
			logging.String("category", string(ce.Category)),
			logging.ErrorField(ce))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return mcperrors.Classify(ctx.Err())
		}
	}
}

// addJitter spreads a delay by ±10% so synchronized clients do not retry in
// lockstep.
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	f, err := secureRandFloat64()
	if err != nil {
		return d
	}
	jitter := float64(d) * 0.1 * (f*2 - 1)
	return time.Duration(float64(d) + jitter)
}

// secureRandFloat64 generates a cryptographically secure random float64 in [0, 1)
func secureRandFloat64() (float64, error) {
	// Generate a random integer in [0, 2^53)
	max := big.NewInt(1 << 53)
	n, err := cryptorand.Int(cryptorand.Reader, max)
	if err != nil {
		return 0, err
	}
	// Convert to float64 in [0, 1)
	return float64(n.Int64()) / float64(1<<53), nil
}
