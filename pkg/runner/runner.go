// Package runner drives the bridge and mint workflow of one account.
package runner

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/contracts"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/metrics"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/retry"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

const (
	labelBridge = "Bridge"
	labelMint   = "Mint"
)

// ChainClient is the chain access needed by the runner
type ChainClient interface {
	Name() string
	GasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	BuildAndSend(ctx context.Context, key *ecdsa.PrivateKey, intent models.TxIntent) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, txHash common.Hash, action string) error
}

// Minter builds mints of the configured collection
type Minter interface {
	AlreadyMinted(ctx context.Context, owner common.Address) (bool, error)
	MintIntent(ctx context.Context, recipient common.Address, count int64) (models.TxIntent, error)
}

// Settings are the workflow parameters shared by every account of a batch
type Settings struct {
	Mode config.Mode

	MaxGasPrice      *big.Int
	WaitGasTime      time.Duration
	TotalWaitGasTime time.Duration

	BridgeAmountMin    decimal.Decimal
	BridgeAmountMax    decimal.Decimal
	BridgeGasLimit     uint64
	BridgeWaitTime     time.Duration
	BridgePollInterval time.Duration

	MintCount int64

	NextTxMinWait time.Duration
	NextTxMaxWait time.Duration

	MaxTries int
}

// SettingsFromConfig extracts the runner settings of cfg
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Mode:               cfg.Mode,
		MaxGasPrice:        cfg.MaxEthGasPrice,
		WaitGasTime:        cfg.WaitGasTime,
		TotalWaitGasTime:   cfg.TotalWaitGasTime,
		BridgeAmountMin:    cfg.BridgeAmountMin,
		BridgeAmountMax:    cfg.BridgeAmountMax,
		BridgeGasLimit:     cfg.BridgeGasLimit,
		BridgeWaitTime:     cfg.BridgeWaitTime,
		BridgePollInterval: cfg.BridgePollInterval,
		MintCount:          cfg.MintCount,
		NextTxMinWait:      cfg.NextTxMinWait,
		NextTxMaxWait:      cfg.NextTxMaxWait,
		MaxTries:           cfg.MaxTries,
	}
}

// Runner runs the workflow of one account. It is not safe for concurrent use.
type Runner struct {
	account  *models.Account
	source   ChainClient
	dest     ChainClient
	portal   *contracts.Portal
	minter   Minter
	settings Settings

	bridgeOp retry.Operation[models.Status]
	mintOp   retry.Operation[models.Status]

	logger logger.Logger
	rng    *rand.Rand
	sleep  retry.SleepFunc
}

// Option customizes a Runner
type Option func(*Runner)

// WithRand sets the random source used for amounts and delays
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) {
		r.rng = rng
	}
}

// WithSleep replaces the function used for every wait of the runner
func WithSleep(sleep retry.SleepFunc) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// New creates a runner for account. source is the bridge chain and dest the mint
// chain; either may be nil when the mode does not use it.
func New(
	account *models.Account,
	source, dest ChainClient,
	portal *contracts.Portal,
	minter Minter,
	settings Settings,
	log logger.Logger,
	opts ...Option,
) *Runner {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	r := &Runner{
		account:  account,
		source:   source,
		dest:     dest,
		portal:   portal,
		minter:   minter,
		settings: settings,
		logger:   log,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		sleep:    retry.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}

	policy := retry.NewPolicy(settings.MaxTries, log)
	policy.Sleep = r.sleep
	policy.Jitter = r.rng.Float64
	policy.OnRetry = func(label string, _ int, _ error) {
		metrics.RetryCount.WithLabelValues(label).Inc()
	}
	r.bridgeOp = retry.Wrap(policy, labelBridge, r.bridge)
	r.mintOp = retry.Wrap(policy, labelMint, r.mint)
	return r
}

// Run executes the workflow selected by the mode
func (r *Runner) Run(ctx context.Context) (models.Status, error) {
	switch r.settings.Mode {
	case config.ModeBridge:
		return r.Bridge(ctx)
	case config.ModeMint:
		return r.Mint(ctx)
	case config.ModeAuto:
		return r.auto(ctx)
	}
	return models.StatusFailed, txerrors.Fatalf("unknown mode %q", r.settings.Mode)
}

// auto mints, bridging first only when the mint cannot be paid for
func (r *Runner) auto(ctx context.Context) (models.Status, error) {
	status, err := r.Mint(ctx)
	if !errors.Is(err, txerrors.ErrInsufficientFunds) {
		return status, err
	}
	r.logger.NoticeWithChain(r.dest.Name(), "Insufficient funds to mint. Let's bridge")
	metrics.BridgesStarted.Inc()

	initBalance, err := r.dest.BalanceAt(ctx, r.account.Address)
	if err != nil {
		return models.StatusFailed, txerrors.Wrap(labelBridge, err)
	}

	if _, err := r.Bridge(ctx); err != nil {
		return models.StatusFailed, err
	}
	if err := r.waitNextTx(ctx); err != nil {
		return models.StatusFailed, err
	}
	if err := r.waitForBridge(ctx, initBalance); err != nil {
		return models.StatusFailed, err
	}

	return r.Mint(ctx)
}

// Bridge deposits a random amount from the source chain to the same address on the destination chain
func (r *Runner) Bridge(ctx context.Context) (models.Status, error) {
	return r.bridgeOp(ctx)
}

func (r *Runner) bridge(ctx context.Context) (models.Status, error) {
	if r.source == nil || r.portal == nil {
		return models.StatusFailed, txerrors.Fatalf("bridge is not configured")
	}

	amount := r.bridgeAmount()
	value := amount.Shift(18).BigInt()

	if err := r.waitForGasPrice(ctx); err != nil {
		return models.StatusFailed, err
	}

	intent, err := r.portal.DepositIntent(r.account.Address, value, r.settings.BridgeGasLimit)
	if err != nil {
		return models.StatusFailed, err
	}

	r.logger.InfoWithChain(r.source.Name(), "Bridging %s ETH", amount.String())
	if err := r.sendAndConfirm(ctx, r.source, intent); err != nil {
		return models.StatusFailed, err
	}
	return models.StatusSuccess, nil
}

// Mint buys the configured NFT on the destination chain unless the account already holds it
func (r *Runner) Mint(ctx context.Context) (models.Status, error) {
	return r.mintOp(ctx)
}

func (r *Runner) mint(ctx context.Context) (models.Status, error) {
	if r.dest == nil || r.minter == nil {
		return models.StatusFailed, txerrors.Fatalf("mint is not configured")
	}

	minted, err := r.minter.AlreadyMinted(ctx, r.account.Address)
	if err != nil {
		return models.StatusFailed, err
	}
	if minted {
		r.logger.InfoWithChain(r.dest.Name(), "Already minted")
		return models.StatusAlreadyDone, nil
	}

	intent, err := r.minter.MintIntent(ctx, r.account.Address, r.settings.MintCount)
	if err != nil {
		return models.StatusFailed, err
	}

	if err := r.sendAndConfirm(ctx, r.dest, intent); err != nil {
		return models.StatusFailed, err
	}
	return models.StatusSuccess, nil
}

func (r *Runner) sendAndConfirm(ctx context.Context, client ChainClient, intent models.TxIntent) error {
	txHash, err := client.BuildAndSend(ctx, r.account.PrivateKey, intent)
	if err != nil {
		return err
	}
	r.logger.InfoWithChain(client.Name(), "%s - Tx was sent", intent.Action)
	return client.WaitForConfirmation(ctx, txHash, intent.Action)
}

// bridgeAmount returns a uniform amount in the configured range rounded to 5 to 8 decimals
func (r *Runner) bridgeAmount() decimal.Decimal {
	lo, hi := r.settings.BridgeAmountMin, r.settings.BridgeAmountMax
	amount := lo.Add(hi.Sub(lo).Mul(decimal.NewFromFloat(r.rng.Float64())))
	places := int32(5 + r.rng.IntN(4))
	return amount.Round(places)
}

// waitForGasPrice blocks until the source gas price is at most the ceiling, giving up
// after the total wait time
func (r *Runner) waitForGasPrice(ctx context.Context) error {
	var waited time.Duration
	for {
		gasPrice, err := r.source.GasPrice(ctx)
		if err != nil {
			return err
		}
		if gasPrice.Cmp(r.settings.MaxGasPrice) <= 0 {
			return nil
		}

		r.logger.NoticeWithChain(r.source.Name(), "Gas price is too high - %s. Waiting for %s",
			formatGwei(gasPrice), r.settings.WaitGasTime)

		waited += r.settings.WaitGasTime
		if waited >= r.settings.TotalWaitGasTime || r.settings.WaitGasTime <= 0 {
			break
		}
		if err := r.sleep(ctx, r.settings.WaitGasTime); err != nil {
			return err
		}
	}

	gasPrice, err := r.source.GasPrice(ctx)
	if err != nil {
		return err
	}
	if gasPrice.Cmp(r.settings.MaxGasPrice) > 0 {
		return txerrors.New("Gas price is too high")
	}
	return nil
}

// waitForBridge polls the destination balance until it grows past initBalance
func (r *Runner) waitForBridge(ctx context.Context, initBalance *big.Int) error {
	var waited time.Duration
	for {
		balance, err := r.dest.BalanceAt(ctx, r.account.Address)
		if err != nil {
			r.logger.NoticeWithChain(r.dest.Name(), "Failed to get balance: %v", err)
		} else if balance.Cmp(initBalance) > 0 {
			r.logger.SuccessWithChain(r.dest.Name(), "Assets bridged successfully")
			return nil
		}

		if waited >= r.settings.BridgeWaitTime || r.settings.BridgePollInterval <= 0 {
			return txerrors.New("Bridge takes too long")
		}

		r.logger.InfoWithChain(r.dest.Name(), "Assets not bridged")
		if err := r.sleep(ctx, r.settings.BridgePollInterval); err != nil {
			return err
		}
		waited += r.settings.BridgePollInterval
	}
}

// waitNextTx sleeps a random time between two transactions
func (r *Runner) waitNextTx(ctx context.Context) error {
	wait := r.settings.NextTxMinWait
	if spread := r.settings.NextTxMaxWait - r.settings.NextTxMinWait; spread > 0 {
		wait += time.Duration(r.rng.Int64N(int64(spread) + 1))
	}
	r.logger.Debug("Waiting %.2fs before the next transaction", wait.Seconds())
	return r.sleep(ctx, wait)
}

func formatGwei(wei *big.Int) string {
	return fmt.Sprintf("%s gwei", decimal.NewFromBigInt(wei, -9).StringFixed(2))
}
