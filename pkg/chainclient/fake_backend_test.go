package chainclient

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is an in-memory Backend recording sent transactions
type fakeBackend struct {
	mu sync.Mutex

	chainID     *big.Int
	gasPrice    *big.Int
	baseFee     *big.Int
	estimate    uint64
	estimateErr error
	sendErr     error
	nonce       uint64

	// receiptErrs are returned by TransactionReceipt, in order, before receipt
	receiptErrs []error
	receipt     *types.Receipt

	sent          []*types.Transaction
	receiptCalls  int
	estimatedMsgs []ethereum.CallMsg
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(7777777),
		gasPrice: big.NewInt(2000000000), // 2 Gwei
		baseFee:  big.NewInt(1000000000), // 1 Gwei
		estimate: 100000,
	}
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) ChainID(_ context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimatedMsgs = append(f.estimatedMsgs, msg)
	return f.estimate, f.estimateErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	if len(f.receiptErrs) > 0 {
		err := f.receiptErrs[0]
		f.receiptErrs = f.receiptErrs[1:]
		return nil, err
	}
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}
