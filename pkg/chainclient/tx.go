package chainclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/speedrun-hq/zora-runner/pkg/metrics"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/txerrors"
)

// fees are the gas price parameters of a transaction. GasPrice is set for legacy
// transactions, TipCap and FeeCap for dynamic fee ones.
type fees struct {
	GasPrice *big.Int
	TipCap   *big.Int
	FeeCap   *big.Int
}

// feeParams picks the gas price parameters following the chain fee model
func (c *Client) feeParams(ctx context.Context) (fees, error) {
	if !c.cfg.EIP1559 {
		gasPrice, err := c.GasPrice(ctx)
		if err != nil {
			return fees{}, err
		}
		return fees{GasPrice: gasPrice}, nil
	}

	if c.cfg.LowGas {
		return fees{GasPrice: new(big.Int).Set(c.cfg.LowGasPrice)}, nil
	}

	baseFee, err := c.BaseFee(ctx)
	if err != nil {
		return fees{}, err
	}

	tip := new(big.Int)
	if c.cfg.PriorityFee != nil {
		tip.Set(c.cfg.PriorityFee)
	}

	// maxFee = tip + 1.2 * baseFee
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(12))
	feeCap.Div(feeCap, big.NewInt(10))
	feeCap.Add(feeCap, tip)

	return fees{TipCap: tip, FeeCap: feeCap}, nil
}

// BuildAndSend fills in nonce and gas for intent, signs it with key and broadcasts it.
// It does not wait for the transaction to be mined.
func (c *Client) BuildAndSend(ctx context.Context, key *ecdsa.PrivateKey, intent models.TxIntent) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	value := intent.Value
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := c.NonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}

	fee, err := c.feeParams(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	to := intent.To
	msg := ethereum.CallMsg{
		From:      from,
		To:        &to,
		GasPrice:  fee.GasPrice,
		GasFeeCap: fee.FeeCap,
		GasTipCap: fee.TipCap,
		Value:     value,
		Data:      intent.Data,
	}

	estimated, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, classifySendError("failed to estimate gas", err)
	}
	gasLimit := estimated * 12 / 10

	var txData types.TxData
	if fee.GasPrice != nil {
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fee.GasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    value,
			Data:     intent.Data,
		}
	} else {
		txData = &types.DynamicFeeTx{
			ChainID:   c.ChainID(),
			Nonce:     nonce,
			GasTipCap: fee.TipCap,
			GasFeeCap: fee.FeeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      intent.Data,
		}
	}

	signedTx, err := types.SignTx(types.NewTx(txData), types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, classifySendError("failed to send transaction", err)
	}

	metrics.TransactionsSent.WithLabelValues(c.Name(), intent.Action).Inc()
	c.logger.DebugWithChain(c.Name(), "%s - sent tx %s (nonce %d, gas limit %d)",
		intent.Action, signedTx.Hash().Hex(), nonce, gasLimit)

	return signedTx.Hash(), nil
}

// classifySendError turns node refusals caused by a low balance into ErrInsufficientFunds
func classifySendError(msg string, err error) error {
	if txerrors.IsInsufficientFundsMessage(err.Error()) {
		return fmt.Errorf("%w: %v", txerrors.ErrInsufficientFunds, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
