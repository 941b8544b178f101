package chainclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/metrics"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

const rpcRequestTimeout = 30 * time.Second

// ErrReceiptTimeout is returned by WaitReceipt when no receipt showed up in time
var ErrReceiptTimeout = errors.New("receipt not found before timeout")

// Backend is the part of the node API used by the client.
// Both *ethclient.Client and the simulated backend client satisfy it.
type Backend interface {
	bind.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client is an RPC connection to one chain
type Client struct {
	cfg     config.ChainConfig
	backend Backend
	chainID *big.Int
	closeFn func()
	logger  logger.Logger

	mu       sync.RWMutex
	gasPrice *big.Int
}

// Dial connects to the chain RPC, through proxy when it is not empty
func Dial(ctx context.Context, cfg config.ChainConfig, proxy string, log logger.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: rpcRequestTimeout}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Name, err)
	}

	ethClient := ethclient.NewClient(rpcClient)
	client, err := New(ctx, cfg, ethClient, log)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	client.closeFn = ethClient.Close
	return client, nil
}

// New wraps an existing backend, resolving and caching its chain id
func New(ctx context.Context, cfg config.ChainConfig, backend Backend, log logger.Logger) (*Client, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID of %s: %w", cfg.Name, err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		return nil, fmt.Errorf("%s RPC reports chain ID %s, expected %d", cfg.Name, chainID, cfg.ChainID)
	}

	return &Client{
		cfg:     cfg,
		backend: backend,
		chainID: chainID,
		logger:  log,
	}, nil
}

// Name returns the configured chain name
func (c *Client) Name() string {
	return c.cfg.Name
}

// ChainID returns the chain id resolved on construction
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Config returns the chain configuration
func (c *Client) Config() config.ChainConfig {
	return c.cfg
}

// Caller exposes the backend for read-only contract bindings
func (c *Client) Caller() bind.ContractCaller {
	return c.backend
}

// GasPrice returns the current network gas price
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	c.mu.Lock()
	c.gasPrice = gasPrice
	c.mu.Unlock()

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(gasPrice), big.NewFloat(1e9)).Float64()
	metrics.GasPrice.WithLabelValues(c.Name()).Set(gwei)

	return gasPrice, nil
}

// LastGasPrice returns the last gas price fetched by GasPrice, nil before the first call
func (c *Client) LastGasPrice() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gasPrice
}

// BalanceAt returns the latest native balance of address
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// NonceAt returns the next nonce of address, pending transactions included
func (c *Client) NonceAt(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// BaseFee returns the base fee of the latest block
func (c *Client) BaseFee(ctx context.Context) (*big.Int, error) {
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("latest block of %s has no base fee", c.Name())
	}
	return header.BaseFee, nil
}

// WaitReceipt polls for the receipt of txHash until it is found or timeout elapses.
// It returns ErrReceiptTimeout when the timeout elapses; other RPC errors are returned as is.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	interval := c.cfg.TxPollInterval
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound), txerrors.IsPendingMessage(err.Error()):
			c.logger.DebugWithChain(c.Name(), "Receipt of %s not available yet", txHash.Hex())
		default:
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrReceiptTimeout
		case <-ticker.C:
		}
	}
}

// Close releases the RPC connection
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}
