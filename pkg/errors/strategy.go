package errors

import (
	"math"
	"time"
)

// RetryStrategy describes whether and how failures of a category should be
// retried. The zero value means "do not retry".
type RetryStrategy struct {
	ShouldRetry       bool
	MaxRetries        int
	Delay             time.Duration
	BackoffMultiplier float64
}

// strategyTable fixes one strategy per category. Categories absent from the
// table (auth, capability, protocol, resource, configuration) are not retried:
// their failures need a changed input, not another attempt.
var strategyTable = map[Category]RetryStrategy{
	CategoryTransport:     {ShouldRetry: true, MaxRetries: 2, Delay: time.Second, BackoffMultiplier: 2},
	CategoryTimeout:       {ShouldRetry: true, MaxRetries: 2, Delay: 2 * time.Second, BackoffMultiplier: 1.5},
	CategoryToolExecution: {ShouldRetry: true, MaxRetries: 1, Delay: 500 * time.Millisecond, BackoffMultiplier: 1},
	CategoryUnknown:       {ShouldRetry: true, MaxRetries: 1, Delay: time.Second, BackoffMultiplier: 2},
}

// StrategyFor returns the category's strategy by value; callers own their copy.
func StrategyFor(category Category) RetryStrategy {
	return strategyTable[category]
}

// DelayFor returns the backoff delay before the given 1-indexed attempt:
// Delay * BackoffMultiplier^(attempt-1). It returns 0 when the strategy does
// not allow that attempt, which callers treat as "stop retrying".
func (s RetryStrategy) DelayFor(attempt int) time.Duration {
	if !s.ShouldRetry || attempt < 1 || attempt > s.MaxRetries {
		return 0
	}
	d := float64(s.Delay) * math.Pow(s.BackoffMultiplier, float64(attempt-1))
	return time.Duration(d)
}

// RetryDelay classifies err and returns the delay before the given attempt.
// A zero return means the error should not be retried again.
func RetryDelay(err error, attempt int) time.Duration {
	if err == nil {
		return 0
	}
	return Classify(err).Retry.DelayFor(attempt)
}

// IsRetryable reports whether err's category allows at least one retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retry.ShouldRetry
}
