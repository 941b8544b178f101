package chainclient

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/zora-runner/pkg/metrics"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

// WaitForConfirmation blocks until txHash is mined or the chain tx timeout elapses.
// A timeout yields a *txerrors.PendingError and a failed receipt a *txerrors.ReceiptStatusError.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash common.Hash, action string) error {
	receipt, err := c.WaitReceipt(ctx, txHash, c.cfg.TxTimeout)
	if errors.Is(err, ErrReceiptTimeout) {
		metrics.TransactionsConfirmed.WithLabelValues(c.Name(), "pending").Inc()
		return &txerrors.PendingError{Chain: c.Name(), TxHash: txHash, Action: action}
	}
	if err != nil {
		return err
	}

	metrics.GasUsed.WithLabelValues(c.Name()).Observe(float64(receipt.GasUsed))

	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.TransactionsConfirmed.WithLabelValues(c.Name(), "failed").Inc()
		return &txerrors.ReceiptStatusError{
			Status: receipt.Status,
			Chain:  c.Name(),
			TxHash: txHash,
			Action: action,
		}
	}

	metrics.TransactionsConfirmed.WithLabelValues(c.Name(), "success").Inc()
	c.logger.SuccessWithChain(c.Name(), "%s - Tx confirmed: %s", action, c.TxLink(txHash))
	return nil
}

// TxLink returns the explorer page of txHash, or the bare hash when no explorer is configured
func (c *Client) TxLink(txHash common.Hash) string {
	if c.cfg.ExplorerURL == "" {
		return txHash.Hex()
	}
	return strings.TrimRight(c.cfg.ExplorerURL, "/") + "/tx/" + txHash.Hex()
}
