package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/zora-runner/pkg/models"
)

// ActionMintERC721 labels ERC721 purchases
const ActionMintERC721 = "Mint ERC721"

// ERC721Drop is a Zora ERC721 drop collection
type ERC721Drop struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewERC721Drop binds the drop deployed at address for reads through caller
func NewERC721Drop(address common.Address, caller bind.ContractCaller) *ERC721Drop {
	return &ERC721Drop{
		address:  address,
		contract: bind.NewBoundContract(address, erc721DropABI, caller, nil, nil),
	}
}

// BalanceOf returns the number of tokens held by owner
func (d *ERC721Drop) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := d.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// PublicSalePrice returns the price of one token
func (d *ERC721Drop) PublicSalePrice(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := d.contract.Call(&bind.CallOpts{Context: ctx}, &out, "salesConfig"); err != nil {
		return nil, fmt.Errorf("failed to call salesConfig: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ZoraFeeForAmount returns the protocol fee for buying quantity tokens
func (d *ERC721Drop) ZoraFeeForAmount(ctx context.Context, quantity *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := d.contract.Call(&bind.CallOpts{Context: ctx}, &out, "zoraFeeForAmount", quantity); err != nil {
		return nil, fmt.Errorf("failed to call zoraFeeForAmount: %w", err)
	}
	return *abi.ConvertType(out[1], new(*big.Int)).(**big.Int), nil
}

// AlreadyMinted reports whether owner holds at least one token of the drop
func (d *ERC721Drop) AlreadyMinted(ctx context.Context, owner common.Address) (bool, error) {
	balance, err := d.BalanceOf(ctx, owner)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// MintIntent builds a purchase of count tokens paying fee plus price for each
func (d *ERC721Drop) MintIntent(ctx context.Context, _ common.Address, count int64) (models.TxIntent, error) {
	quantity := big.NewInt(count)

	price, err := d.PublicSalePrice(ctx)
	if err != nil {
		return models.TxIntent{}, err
	}
	fee, err := d.ZoraFeeForAmount(ctx, quantity)
	if err != nil {
		return models.TxIntent{}, err
	}

	// value = fee + price * count
	value := new(big.Int).Mul(price, quantity)
	value.Add(value, fee)

	data, err := erc721DropABI.Pack("purchase", quantity)
	if err != nil {
		return models.TxIntent{}, fmt.Errorf("failed to pack purchase: %w", err)
	}

	return models.TxIntent{
		To:     d.address,
		Data:   data,
		Value:  value,
		Action: ActionMintERC721,
	}, nil
}
