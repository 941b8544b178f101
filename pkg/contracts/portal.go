package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/zora-runner/pkg/models"
)

// ActionBridge labels bridge transactions in logs and errors
const ActionBridge = "Bridge"

// Portal is the L1 deposit contract of the Zora bridge
type Portal struct {
	address common.Address
}

// NewPortal binds the portal deployed at address
func NewPortal(address common.Address) *Portal {
	return &Portal{address: address}
}

// Address returns the portal address
func (p *Portal) Address() common.Address {
	return p.address
}

// DepositIntent builds a deposit of value to the same address on L2.
// The value is both the deposit amount and the transaction value.
func (p *Portal) DepositIntent(to common.Address, value *big.Int, gasLimit uint64) (models.TxIntent, error) {
	data, err := portalABI.Pack("depositTransaction", to, value, gasLimit, false, []byte{})
	if err != nil {
		return models.TxIntent{}, fmt.Errorf("failed to pack depositTransaction: %w", err)
	}
	return models.TxIntent{
		To:     p.address,
		Data:   data,
		Value:  new(big.Int).Set(value),
		Action: ActionBridge,
	}, nil
}
