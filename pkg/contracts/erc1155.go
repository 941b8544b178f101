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

// ActionMintERC1155 labels ERC1155 mints
const ActionMintERC1155 = "Mint ERC1155"

// SalesConfig is the fixed price sale of one ERC1155 token
type SalesConfig struct {
	SaleStart           uint64
	SaleEnd             uint64
	MaxTokensPerAddress uint64
	PricePerToken       *big.Int
	FundsRecipient      common.Address
}

// ERC1155Collection is a Zora creator ERC1155 token sold through a fixed price minter
type ERC1155Collection struct {
	address common.Address
	tokenID *big.Int
	minter  common.Address

	contract    *bind.BoundContract
	minterSales *bind.BoundContract
}

// NewERC1155Collection binds token tokenID of the collection at address, sold by minter
func NewERC1155Collection(address common.Address, tokenID *big.Int, minter common.Address, caller bind.ContractCaller) *ERC1155Collection {
	return &ERC1155Collection{
		address:     address,
		tokenID:     new(big.Int).Set(tokenID),
		minter:      minter,
		contract:    bind.NewBoundContract(address, erc1155ABI, caller, nil, nil),
		minterSales: bind.NewBoundContract(minter, fixedPriceMinterABI, caller, nil, nil),
	}
}

// BalanceOf returns how many tokens of the configured id owner holds
func (c *ERC1155Collection) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner, c.tokenID); err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// MintFee returns the flat protocol fee per token
func (c *ERC1155Collection) MintFee(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "mintFee"); err != nil {
		return nil, fmt.Errorf("failed to call mintFee: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Sale returns the minter sale configuration of the token
func (c *ERC1155Collection) Sale(ctx context.Context) (*SalesConfig, error) {
	var out []interface{}
	if err := c.minterSales.Call(&bind.CallOpts{Context: ctx}, &out, "sale", c.address, c.tokenID); err != nil {
		return nil, fmt.Errorf("failed to call sale: %w", err)
	}
	return abi.ConvertType(out[0], new(SalesConfig)).(*SalesConfig), nil
}

// AlreadyMinted reports whether owner holds the configured token
func (c *ERC1155Collection) AlreadyMinted(ctx context.Context, owner common.Address) (bool, error) {
	balance, err := c.BalanceOf(ctx, owner)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// MintIntent builds a mint of count tokens for recipient through the minter,
// paying (mint fee + price) for each
func (c *ERC1155Collection) MintIntent(ctx context.Context, recipient common.Address, count int64) (models.TxIntent, error) {
	quantity := big.NewInt(count)

	sale, err := c.Sale(ctx)
	if err != nil {
		return models.TxIntent{}, err
	}
	fee, err := c.MintFee(ctx)
	if err != nil {
		return models.TxIntent{}, err
	}

	// value = (fee + price) * count
	value := new(big.Int).Add(fee, sale.PricePerToken)
	value.Mul(value, quantity)

	data, err := erc1155ABI.Pack("mint", c.minter, c.tokenID, quantity, MinterArguments(recipient))
	if err != nil {
		return models.TxIntent{}, fmt.Errorf("failed to pack mint: %w", err)
	}

	return models.TxIntent{
		To:     c.address,
		Data:   data,
		Value:  value,
		Action: ActionMintERC1155,
	}, nil
}

// MinterArguments encodes the mint recipient as the fixed price minter expects it:
// the address in a 32 byte word
func MinterArguments(recipient common.Address) []byte {
	return common.LeftPadBytes(recipient.Bytes(), 32)
}
