package txerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	pending := &PendingError{Chain: "Zora", TxHash: common.HexToHash("0x01"), Action: "Mint ERC721"}

	tests := []struct {
		name string
		err  error
		want Tag
	}{
		{"nil", nil, TagOK},
		{"insufficient funds sentinel", ErrInsufficientFunds, TagInsufficientFunds},
		{"insufficient funds wrapped", fmt.Errorf("estimate gas: %w", ErrInsufficientFunds), TagInsufficientFunds},
		{"pending", pending, TagPending},
		{"pending inside runner error", Wrap("Mint", pending), TagPending},
		{"runner error", New("Gas price is too high"), TagTransient},
		{"plain error", errors.New("connection refused"), TagTransient},
		{"receipt status", &ReceiptStatusError{Status: 0, Chain: "Zora"}, TagTransient},
		{"fatal", Fatalf("unknown standard %s", "ERC20"), TagFatal},
		{"fatal wrapping transient", &Error{Msg: "config", Cause: errors.New("x"), Fatal: true}, TagFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	hash := common.HexToHash("0xabc")

	assert.Equal(t, "Bridge: Gas price is too high", Wrap("Bridge", New("Gas price is too high")).Error())
	assert.Equal(t, "Bridge takes too long", New("Bridge takes too long").Error())
	assert.Equal(t,
		"Mint ERC721, chain = Zora, tx_hash = "+hash.Hex(),
		(&PendingError{Chain: "Zora", TxHash: hash, Action: "Mint ERC721"}).Error())
	assert.Equal(t,
		"Bridge - Tx status = 0, chain = Ethereum, tx_hash = "+hash.Hex(),
		(&ReceiptStatusError{Status: 0, Chain: "Ethereum", TxHash: hash, Action: "Bridge"}).Error())

	cause := errors.New("boom")
	assert.ErrorIs(t, Wrap("Mint", cause), cause)
}

func TestMessageSignatures(t *testing.T) {
	assert.True(t, IsInsufficientFundsMessage("insufficient funds for gas * price + value"))
	assert.True(t, IsInsufficientFundsMessage("gas required exceeds allowance (0)"))
	assert.False(t, IsInsufficientFundsMessage("execution reverted"))

	assert.True(t, IsPendingMessage("transaction indexing is in progress"))
	assert.False(t, IsPendingMessage("connection refused"))
}

func newGasError() *Error {
	return New("Gas price is too high")
}

func TestErrorStack(t *testing.T) {
	err := newGasError()
	assert.Contains(t, string(err.Stack()), "txerrors.newGasError")

	wrapped := WrapFatal("Bridge", err)
	assert.True(t, wrapped.Fatal)
	assert.Equal(t, TagFatal, Classify(wrapped))
	assert.Contains(t, string(wrapped.Stack()), "TestErrorStack")
	assert.NotContains(t, string(wrapped.Stack()), "newGasError")

	assert.Nil(t, (&Error{Msg: "literal"}).Stack())
}
