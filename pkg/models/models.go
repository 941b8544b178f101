package models

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the terminal outcome of a single account run
type Status int

const (
	// StatusAlreadyDone means the account already holds the token, nothing was sent
	StatusAlreadyDone Status = iota + 1
	// StatusPending means a transaction was sent but not confirmed in time
	StatusPending
	// StatusSuccess means every transaction of the run was confirmed successfully
	StatusSuccess
	// StatusFailed means the run gave up after retries or hit a non-retryable error
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAlreadyDone:
		return "already"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Account is a wallet processed by one runner
type Account struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
	Proxy      string
	// Fields holds the original wallets/proxies file columns, written back to the outcome logs
	Fields []string
}

// Wipe drops the key material once the run is over
func (a *Account) Wipe() {
	if a.PrivateKey != nil && a.PrivateKey.D != nil {
		a.PrivateKey.D.SetInt64(0)
	}
	a.PrivateKey = nil
}

// TxIntent is a contract call plus value, not yet bound to nonce or gas
type TxIntent struct {
	To     common.Address
	Data   []byte
	Value  *big.Int
	Action string
}
