package batch

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/zora-runner/pkg/circuitbreaker"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/results"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
	"github.com/speedrun-hq/zora-runner/pkg/wallet"
)

type outcome struct {
	status models.Status
	err    error
}

type fakeWorkflow struct {
	outcome outcome
}

func (w *fakeWorkflow) Run(_ context.Context) (models.Status, error) {
	return w.outcome.status, w.outcome.err
}

// fakeFactory answers with a canned outcome per address
type fakeFactory struct {
	mu       sync.Mutex
	outcomes map[common.Address]outcome
	setupErr map[common.Address]error
	ran      []common.Address
	released int
	keys     []*models.Account
}

func (f *fakeFactory) factory(_ context.Context, account *models.Account, _ logger.Logger) (Workflow, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, account.Address)
	f.keys = append(f.keys, account)
	if err := f.setupErr[account.Address]; err != nil {
		return nil, nil, err
	}
	return &fakeWorkflow{outcome: f.outcomes[account.Address]}, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
	}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	stored  []string
	flushes int
}

func (n *fakeNotifier) Send(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
}

func (n *fakeNotifier) Store(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stored = append(n.stored, line)
}

func (n *fakeNotifier) Flush(_ context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flushes++
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

func newEntry(t *testing.T, password string) (wallet.Entry, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	stored := hexKey
	if password != "" {
		stored, err = wallet.Encrypt(hexKey, password)
		require.NoError(t, err)
	}
	return wallet.Entry{Key: stored, Fields: []string{stored}}, crypto.PubkeyToAddress(key.PublicKey)
}

type driverFixture struct {
	factory  *fakeFactory
	notifier *fakeNotifier
	sleeps   *sleepRecorder
	writer   *results.Writer
	banner   *bytes.Buffer
}

func newDriverFixture(t *testing.T) *driverFixture {
	writer, err := results.NewWriter(t.TempDir())
	require.NoError(t, err)
	return &driverFixture{
		factory: &fakeFactory{
			outcomes: make(map[common.Address]outcome),
			setupErr: make(map[common.Address]error),
		},
		notifier: &fakeNotifier{},
		sleeps:   &sleepRecorder{},
		writer:   writer,
		banner:   &bytes.Buffer{},
	}
}

func (f *driverFixture) driver(entries []wallet.Entry, password string, breaker *circuitbreaker.CircuitBreaker) *Driver {
	return NewDriver(entries, f.factory.factory, f.writer, Options{
		Password:           password,
		NextAddressMinWait: time.Minute,
		NextAddressMaxWait: 2 * time.Minute,
		Notifier:           f.notifier,
		Breaker:            breaker,
		Banner:             f.banner,
		Rand:               rand.New(rand.NewPCG(7, 7)),
		Sleep:              f.sleeps.sleep,
	})
}

func (f *driverFixture) rows(t *testing.T, status models.Status) [][]string {
	data, err := os.ReadFile(filepath.Join(f.writer.Dir(), results.FileName(status)))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		rows = append(rows, strings.Split(line, "|"))
	}
	return rows
}

func TestDriverRecordsOneRowPerAccount(t *testing.T) {
	f := newDriverFixture(t)
	password := "secret"

	outcomes := []outcome{
		{status: models.StatusSuccess},
		{status: models.StatusAlreadyDone},
		{status: models.StatusFailed, err: &txerrors.PendingError{Chain: "Zora", Action: "Mint ERC721"}},
		{status: models.StatusFailed, err: txerrors.Wrap("Mint", errors.New("execution reverted"))},
		{status: models.StatusFailed, err: txerrors.ErrInsufficientFunds},
		{status: models.StatusSuccess},
	}

	var entries []wallet.Entry
	for _, o := range outcomes {
		entry, address := newEntry(t, password)
		entries = append(entries, entry)
		f.factory.outcomes[address] = o
	}

	// one undecryptable wallet is skipped without a status
	bad, _ := newEntry(t, "other password")
	entries = append(entries, bad)

	d := f.driver(entries, password, nil)
	require.NoError(t, d.Run(context.Background()))

	assert.Len(t, f.rows(t, models.StatusSuccess), 2)
	assert.Len(t, f.rows(t, models.StatusAlreadyDone), 1)
	assert.Len(t, f.rows(t, models.StatusPending), 1)
	assert.Len(t, f.rows(t, models.StatusFailed), 2)

	total := 0
	for _, n := range f.writer.Counts() {
		total += n
	}
	assert.Equal(t, len(outcomes), total)

	progress := d.Progress()
	assert.Equal(t, len(entries), progress.Total)
	assert.Equal(t, len(outcomes), progress.Done)
	assert.Equal(t, 1, progress.Skipped)
	assert.False(t, progress.Running)

	// every run released its connections and wiped its key
	assert.Equal(t, len(outcomes), f.factory.released)
	for _, account := range f.factory.keys {
		assert.Nil(t, account.PrivateKey)
	}

	// a wait between processed accounts only
	require.Len(t, f.sleeps.sleeps, len(outcomes)-1)
	for _, s := range f.sleeps.sleeps {
		assert.GreaterOrEqual(t, s, time.Minute)
		assert.LessOrEqual(t, s, 2*time.Minute)
		assert.Zero(t, s%time.Second)
	}
	require.Len(t, f.notifier.sent, len(outcomes)-1)
	assert.Contains(t, f.notifier.sent[0], "Done: 1/7. Waiting for next run for")
	assert.Contains(t, f.banner.String(), "Done: 1/7")
	assert.Equal(t, len(outcomes)+1, f.notifier.flushes)
}

func TestDriverRowsKeepOriginalFields(t *testing.T) {
	f := newDriverFixture(t)
	entry, address := newEntry(t, "")
	entry.Fields = append(entry.Fields, "1.2.3.4:8080")
	f.factory.outcomes[address] = outcome{status: models.StatusSuccess}

	require.NoError(t, f.driver([]wallet.Entry{entry}, "", nil).Run(context.Background()))

	rows := f.rows(t, models.StatusSuccess)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{address.Hex(), entry.Key, "1.2.3.4:8080"}, rows[0])
	assert.Empty(t, f.sleeps.sleeps)
}

func TestDriverSetupFailure(t *testing.T) {
	f := newDriverFixture(t)
	entry, address := newEntry(t, "")
	f.factory.setupErr[address] = errors.New("failed to connect to Zora")

	require.NoError(t, f.driver([]wallet.Entry{entry}, "", nil).Run(context.Background()))

	assert.Len(t, f.rows(t, models.StatusFailed), 1)
	assert.Equal(t, 0, f.factory.released)
}

func TestDriverShufflesQueue(t *testing.T) {
	f := newDriverFixture(t)

	var entries []wallet.Entry
	var order []common.Address
	for i := 0; i < 20; i++ {
		entry, address := newEntry(t, "")
		entries = append(entries, entry)
		order = append(order, address)
		f.factory.outcomes[address] = outcome{status: models.StatusSuccess}
	}

	require.NoError(t, f.driver(entries, "", nil).Run(context.Background()))

	assert.ElementsMatch(t, order, f.factory.ran)
	assert.NotEqual(t, order, f.factory.ran)
}

func TestDriverCircuitBreakerPauses(t *testing.T) {
	f := newDriverFixture(t)
	breaker := circuitbreaker.NewCircuitBreaker(true, 2, time.Hour, 10*time.Minute, nil)

	var entries []wallet.Entry
	for i := 0; i < 3; i++ {
		entry, address := newEntry(t, "")
		entries = append(entries, entry)
		f.factory.outcomes[address] = outcome{status: models.StatusFailed, err: txerrors.New("Gas price is too high")}
	}

	require.NoError(t, f.driver(entries, "", breaker).Run(context.Background()))

	assert.Len(t, f.rows(t, models.StatusFailed), 3)
	assert.Contains(t, f.sleeps.sleeps, 10*time.Minute)
	assert.False(t, breaker.IsOpen())

	var pauses int
	for _, msg := range f.notifier.sent {
		if msg == "Too many failed accounts, pausing for 10m0s" {
			pauses++
		}
	}
	assert.Equal(t, 1, pauses)
}

func TestDriverStopsOnCancel(t *testing.T) {
	f := newDriverFixture(t)
	var entries []wallet.Entry
	for i := 0; i < 3; i++ {
		entry, address := newEntry(t, "")
		entries = append(entries, entry)
		f.factory.outcomes[address] = outcome{status: models.StatusSuccess}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDriver(entries, f.factory.factory, f.writer, Options{
		Banner: f.banner,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.rows(t, models.StatusSuccess), 1)
}

func TestRandomSeconds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 100; i++ {
		d := randomSeconds(rng, time.Minute, 2*time.Minute)
		assert.GreaterOrEqual(t, d, time.Minute)
		assert.LessOrEqual(t, d, 2*time.Minute)
	}
	assert.Equal(t, 90*time.Second, randomSeconds(rng, 90*time.Second, 90*time.Second))
	assert.Equal(t, 90*time.Second, randomSeconds(rng, 90*time.Second, time.Second))
}
