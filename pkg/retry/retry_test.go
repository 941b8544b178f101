package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

type recorder struct {
	sleeps  []time.Duration
	retries []int
}

func (r *recorder) policy(maxAttempts int) Policy {
	p := NewPolicy(maxAttempts, nil)
	p.Sleep = func(_ context.Context, d time.Duration) error {
		r.sleeps = append(r.sleeps, d)
		return nil
	}
	p.Jitter = func() float64 { return 0.5 }
	p.OnRetry = func(_ string, attempt int, _ error) {
		r.retries = append(r.retries, attempt)
	}
	return p
}

// failing returns an operation failing with errs in order, then succeeding
func failing(calls *int, errs ...error) Operation[string] {
	return func(_ context.Context) (string, error) {
		*calls++
		if *calls <= len(errs) {
			return "", errs[*calls-1]
		}
		return "ok", nil
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	r := &recorder{}
	calls := 0

	result, err := Do(context.Background(), r.policy(3), "Mint", failing(&calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
	assert.Empty(t, r.sleeps)
}

func TestDoRetriesTransient(t *testing.T) {
	r := &recorder{}
	calls := 0

	result, err := Do(context.Background(), r.policy(3), "Mint", failing(&calls,
		errors.New("connection reset"),
		errors.New("connection reset"),
	))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 3500 * time.Millisecond}, r.sleeps)
	assert.Equal(t, []int{1, 2}, r.retries)
}

func TestDoGivesUp(t *testing.T) {
	r := &recorder{}
	calls := 0
	cause := errors.New("execution reverted")

	_, err := Do(context.Background(), r.policy(3), "Mint", failing(&calls, cause, cause, cause, cause))
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, r.sleeps, 2)

	var runnerErr *txerrors.Error
	require.ErrorAs(t, err, &runnerErr)
	assert.Equal(t, "Mint", runnerErr.Msg)
	assert.False(t, runnerErr.Fatal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Mint: execution reverted", err.Error())
}

func TestDoNonRetryable(t *testing.T) {
	pending := &txerrors.PendingError{Chain: "Zora", Action: "Mint ERC721"}
	funds := errors.Join(txerrors.ErrInsufficientFunds, errors.New("gas required exceeds allowance"))
	fatal := txerrors.Fatalf("Unknown mode")

	tests := []struct {
		name string
		err  error
		tag  txerrors.Tag
		same bool
	}{
		{"pending", pending, txerrors.TagPending, true},
		{"insufficient funds", funds, txerrors.TagInsufficientFunds, true},
		{"fatal", fatal, txerrors.TagFatal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			calls := 0

			_, err := Do(context.Background(), r.policy(5), "Bridge", failing(&calls, tt.err))
			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, r.sleeps)
			assert.Equal(t, tt.tag, txerrors.Classify(err))
			if tt.same {
				assert.Same(t, tt.err, err)
			}
		})
	}
}

func TestDoStopsWhenSleepFails(t *testing.T) {
	calls := 0
	p := NewPolicy(3, nil)
	p.Sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := Do(context.Background(), p, "Bridge", failing(&calls, errors.New("boom"), errors.New("boom")))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Bridge: boom", err.Error())
}

func TestDoAtLeastOneAttempt(t *testing.T) {
	calls := 0
	p := NewPolicy(0, nil)

	_, err := Do(context.Background(), p, "Mint", failing(&calls, errors.New("boom")))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWrap(t *testing.T) {
	r := &recorder{}
	calls := 0

	op := Wrap(r.policy(2), "Bridge", failing(&calls, errors.New("timeout")))
	result, err := op(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestDoKeepsLastResult(t *testing.T) {
	r := &recorder{}
	calls := 0

	status, err := Do(context.Background(), r.policy(2), "Mint", func(_ context.Context) (int, error) {
		calls++
		return 10 + calls, errors.New("execution reverted")
	})
	require.Error(t, err)
	assert.Equal(t, 12, status)
	assert.Equal(t, []int{1}, r.retries)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, NewPolicy(3, nil), "Mint", failing(&calls))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDoRealSleep(t *testing.T) {
	calls := 0
	p := NewPolicy(2, nil)
	p.InitialDelay = time.Millisecond

	result, err := Do(context.Background(), p, "Mint", failing(&calls, errors.New("timeout")))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}
