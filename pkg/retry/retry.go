// Package retry wraps workflow operations with exponential backoff and jitter on top of retry-go.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

const (
	// DefaultInitialDelay is the wait before the second attempt
	DefaultInitialDelay = 1500 * time.Millisecond

	// DefaultMultiplier grows the delay after each attempt
	DefaultMultiplier = 2.0

	// DefaultMaxJitter is the upper bound of the random delay added after each attempt
	DefaultMaxJitter = time.Second
)

// Operation is a unit of work that can be retried
type Operation[T any] func(ctx context.Context) (T, error)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how an operation is retried
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxJitter    time.Duration

	// Retryable decides from the tag alone whether another attempt is made
	Retryable func(tag txerrors.Tag) bool

	Sleep   SleepFunc
	Jitter  func() float64
	Logger  logger.Logger
	OnRetry func(label string, attempt int, err error)
}

// OnlyTransient retries generic runner errors and nothing else
func OnlyTransient(tag txerrors.Tag) bool {
	return tag == txerrors.TagTransient
}

// NewPolicy returns the default policy with the given attempt ceiling
func NewPolicy(maxAttempts int, log logger.Logger) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		MaxJitter:    DefaultMaxJitter,
		Retryable:    OnlyTransient,
		Sleep:        Sleep,
		Jitter:       rand.Float64,
		Logger:       log,
	}
}

// Sleep waits for d unless ctx is cancelled first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wrap returns op guarded by the policy; see Do
func Wrap[T any](p Policy, label string, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, p, label, op)
	}
}

// Do runs op until it succeeds, fails with a non-retryable tag or runs out of attempts,
// and returns the result and error of the last attempt.
// Insufficient funds and pending errors are returned untouched, anything else is
// wrapped into a runner error labelled with label.
func Do[T any](ctx context.Context, p Policy, label string, op Operation[T]) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = OnlyTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	log := p.Logger
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		lastResult T
		lastErr    error
		attempt    int
		delay      time.Duration
		waited     bool
	)

	result, err := retrygo.DoWithData(
		func() (T, error) {
			attempt++
			result, err := op(runCtx)
			lastResult, lastErr = result, classifyErr(label, err)
			return result, lastErr
		},
		retrygo.Context(runCtx),
		retrygo.Attempts(uint(attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			return retryable(txerrors.Classify(err))
		}),
		retrygo.DelayType(func(_ uint, err error, _ *retrygo.Config) time.Duration {
			if waited {
				delay = p.nextDelay(delay)
			} else {
				delay = p.InitialDelay
				waited = true
			}
			log.Notice("%v, retrying in %.2fs (attempt %d/%d)", err, delay.Seconds(), attempt+1, attempts)
			if p.OnRetry != nil {
				p.OnRetry(label, attempt, err)
			}
			return delay
		}),
		retrygo.WithTimer(&sleepTimer{ctx: runCtx, cancel: cancel, sleep: sleep}),
	)
	if err == nil {
		return result, nil
	}
	if lastErr != nil {
		return lastResult, lastErr
	}
	return lastResult, err
}

// classifyErr wraps err into a runner error unless its tag must reach the caller as is
func classifyErr(label string, err error) error {
	if err == nil {
		return nil
	}
	switch txerrors.Classify(err) {
	case txerrors.TagInsufficientFunds, txerrors.TagPending:
		return err
	case txerrors.TagFatal:
		return txerrors.WrapFatal(label, err)
	default:
		return txerrors.Wrap(label, err)
	}
}

// sleepTimer lets retry-go wait through a SleepFunc. A failed sleep cancels
// the attempt loop instead of firing.
type sleepTimer struct {
	ctx    context.Context
	cancel context.CancelFunc
	sleep  SleepFunc
}

func (t *sleepTimer) After(d time.Duration) <-chan time.Time {
	fired := make(chan time.Time, 1)
	if err := t.sleep(t.ctx, d); err != nil {
		t.cancel()
		return fired
	}
	fired <- time.Now()
	return fired
}

// nextDelay grows the delay by the multiplier and adds jitter in [0, MaxJitter)
func (p Policy) nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * p.Multiplier)
	if p.MaxJitter > 0 && p.Jitter != nil {
		next += time.Duration(p.Jitter() * float64(p.MaxJitter))
	}
	return next
}
