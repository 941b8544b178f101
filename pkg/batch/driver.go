// Package batch runs the workflow over every wallet of the batch, one account at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/speedrun-hq/zora-runner/pkg/circuitbreaker"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/metrics"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/results"
	"github.com/speedrun-hq/zora-runner/pkg/retry"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
	"github.com/speedrun-hq/zora-runner/pkg/wallet"
)

// Workflow is the per account run
type Workflow interface {
	Run(ctx context.Context) (models.Status, error)
}

// WorkflowFactory prepares the workflow of account. The returned release func
// closes whatever the workflow opened and is called once the run is over.
type WorkflowFactory func(ctx context.Context, account *models.Account, log logger.Logger) (Workflow, func(), error)

// Notifier receives progress messages. Implementations must never fail the run.
type Notifier interface {
	Send(ctx context.Context, text string)
	Store(line string)
	Flush(ctx context.Context)
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, string) {}
func (nopNotifier) Store(string)                 {}
func (nopNotifier) Flush(context.Context)        {}

// Options tune a Driver. Zero values fall back to sensible defaults.
type Options struct {
	Password string

	NextAddressMinWait time.Duration
	NextAddressMaxWait time.Duration

	Notifier Notifier
	Breaker  *circuitbreaker.CircuitBreaker
	Traces   *logger.TraceSink
	Logger   logger.Logger

	// Banner receives the progress box printed between accounts
	Banner   io.Writer
	Coloring bool

	Rand  *rand.Rand
	Sleep retry.SleepFunc
}

// Progress is a snapshot of the batch
type Progress struct {
	Total   int                   `json:"total"`
	Done    int                   `json:"done"`
	Skipped int                   `json:"skipped"`
	Current string                `json:"current,omitempty"`
	Counts  map[models.Status]int `json:"-"`
	Running bool                  `json:"running"`
}

// Driver processes the wallets of a batch sequentially
type Driver struct {
	entries []wallet.Entry
	factory WorkflowFactory
	writer  *results.Writer
	opts    Options

	logger   logger.Logger
	notifier Notifier
	rng      *rand.Rand
	sleep    retry.SleepFunc

	mu       sync.Mutex
	progress Progress
}

// NewDriver creates a driver over entries, recording outcomes with writer
func NewDriver(entries []wallet.Entry, factory WorkflowFactory, writer *results.Writer, opts Options) *Driver {
	d := &Driver{
		entries:  entries,
		factory:  factory,
		writer:   writer,
		opts:     opts,
		logger:   opts.Logger,
		notifier: opts.Notifier,
		rng:      opts.Rand,
		sleep:    opts.Sleep,
	}
	if d.logger == nil {
		d.logger = &logger.EmptyLogger{}
	}
	if d.notifier == nil {
		d.notifier = nopNotifier{}
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if d.sleep == nil {
		d.sleep = retry.Sleep
	}
	if d.opts.Banner == nil {
		d.opts.Banner = os.Stdout
	}
	d.progress.Total = len(entries)
	return d
}

// Progress returns a snapshot of the batch progress
func (d *Driver) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.progress
	p.Counts = d.writer.Counts()
	return p
}

// Run shuffles the queue and processes every account. Accounts whose key cannot be
// decrypted are skipped without a status. It returns early only when ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	queue := make([]wallet.Entry, len(d.entries))
	copy(queue, d.entries)
	d.rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	d.setRunning(true)
	defer d.setRunning(false)

	done := 0
	for _, entry := range queue {
		account, err := entry.Account(d.opts.Password)
		if err != nil {
			d.logger.Error("An error occurred during the decryption: %v", err)
			metrics.AccountsSkipped.WithLabelValues("decryption").Inc()
			d.mu.Lock()
			d.progress.Skipped++
			d.mu.Unlock()
			continue
		}

		if done != 0 {
			if err := d.waitNextRun(ctx, done, len(queue)); err != nil {
				account.Wipe()
				return err
			}
		}
		if err := d.waitForBreaker(ctx); err != nil {
			account.Wipe()
			return err
		}

		d.process(ctx, account)
		done++

		d.mu.Lock()
		d.progress.Done = done
		d.progress.Current = ""
		d.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	d.logger.Info("Finished")
	d.notifier.Flush(ctx)
	return nil
}

// process runs one account and records exactly one status for it
func (d *Driver) process(ctx context.Context, account *models.Account) {
	defer account.Wipe()

	start := time.Now()
	d.mu.Lock()
	d.progress.Current = account.Address.Hex()
	d.mu.Unlock()

	d.logger.Info("Account: %s", account.Address.Hex())

	status, runErr := d.runAccount(ctx, account)

	d.record(account, status, runErr)

	metrics.AccountsProcessed.WithLabelValues(status.String()).Inc()
	metrics.AccountProcessingTime.Observe(time.Since(start).Seconds())

	if d.opts.Breaker != nil {
		if status == models.StatusFailed {
			if d.opts.Breaker.RecordFailure() {
				metrics.CircuitBreakerTrips.Inc()
			}
		} else {
			d.opts.Breaker.RecordSuccess()
		}
	}

	d.notifier.Flush(ctx)
}

func (d *Driver) runAccount(ctx context.Context, account *models.Account) (models.Status, error) {
	workflow, release, err := d.factory(ctx, account, d.logger)
	if err != nil {
		d.opts.Traces.Record("Setup", err)
		return models.StatusFailed, txerrors.Wrap("Setup", err)
	}
	if release != nil {
		defer release()
	}

	status, err := workflow.Run(ctx)
	if err == nil {
		return status, nil
	}

	var pending *txerrors.PendingError
	if errors.As(err, &pending) {
		return models.StatusPending, err
	}

	d.opts.Traces.Record("Run failed", err)
	return models.StatusFailed, err
}

// record logs the summary of the run and appends the account to its outcome log
func (d *Driver) record(account *models.Account, status models.Status, runErr error) {
	switch status {
	case models.StatusAlreadyDone:
		d.logger.Success("Already minted")
	case models.StatusPending:
		d.logger.Notice("Tx in pending: %v", runErr)
	case models.StatusSuccess:
		d.logger.Success("Run success")
	default:
		status = models.StatusFailed
		d.logger.Error("Run failed: %v", runErr)
	}

	if err := d.writer.Record(status, account.Address.Hex(), account.Fields); err != nil {
		d.logger.Error("Failed to write result of %s: %v", account.Address.Hex(), err)
	}
}

// waitNextRun prints the progress banner and sleeps a random time before the next account
func (d *Driver) waitNextRun(ctx context.Context, done, total int) error {
	wait := randomSeconds(d.rng, d.opts.NextAddressMinWait, d.opts.NextAddressMaxWait)

	doneMsg := fmt.Sprintf("Done: %d/%d", done, total)
	waitingMsg := fmt.Sprintf("Waiting for next run for %.2f minutes", wait.Minutes())

	logger.Banner(d.opts.Banner, d.opts.Coloring, doneMsg, waitingMsg)
	d.notifier.Send(ctx, doneMsg+". "+waitingMsg)

	return d.sleep(ctx, wait)
}

// waitForBreaker pauses the batch while too many accounts failed recently
func (d *Driver) waitForBreaker(ctx context.Context) error {
	breaker := d.opts.Breaker
	if breaker == nil || !breaker.IsOpen() {
		return nil
	}

	msg := fmt.Sprintf("Too many failed accounts, pausing for %s", breaker.ResetTimeout())
	d.logger.Error("%s", msg)
	d.notifier.Send(ctx, msg)

	if err := d.sleep(ctx, breaker.ResetTimeout()); err != nil {
		return err
	}
	breaker.Reset()
	return nil
}

func (d *Driver) setRunning(running bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress.Running = running
}

// randomSeconds returns a whole number of seconds in [lo, hi]
func randomSeconds(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	minSec, maxSec := int64(lo.Seconds()), int64(hi.Seconds())
	if maxSec <= minSec {
		return time.Duration(minSec) * time.Second
	}
	return time.Duration(minSec+rng.Int64N(maxSec-minSec+1)) * time.Second
}
