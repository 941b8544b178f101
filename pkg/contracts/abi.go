package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PortalABI is the deposit part of the OptimismPortal ABI
const PortalABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "_to", "type": "address"},
			{"internalType": "uint256", "name": "_value", "type": "uint256"},
			{"internalType": "uint64", "name": "_gasLimit", "type": "uint64"},
			{"internalType": "bool", "name": "_isCreation", "type": "bool"},
			{"internalType": "bytes", "name": "_data", "type": "bytes"}
		],
		"name": "depositTransaction",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// ERC721DropABI is the part of the Zora ERC721Drop ABI used for minting
const ERC721DropABI = `[
	{
		"inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "salesConfig",
		"outputs": [
			{"internalType": "uint104", "name": "publicSalePrice", "type": "uint104"},
			{"internalType": "uint32", "name": "maxSalePurchasePerAddress", "type": "uint32"},
			{"internalType": "uint64", "name": "publicSaleStart", "type": "uint64"},
			{"internalType": "uint64", "name": "publicSaleEnd", "type": "uint64"},
			{"internalType": "uint64", "name": "presaleStart", "type": "uint64"},
			{"internalType": "uint64", "name": "presaleEnd", "type": "uint64"},
			{"internalType": "bytes32", "name": "presaleMerkleRoot", "type": "bytes32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "quantity", "type": "uint256"}],
		"name": "zoraFeeForAmount",
		"outputs": [
			{"internalType": "address payable", "name": "recipient", "type": "address"},
			{"internalType": "uint256", "name": "fee", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "quantity", "type": "uint256"}],
		"name": "purchase",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// ERC1155ABI is the part of the Zora creator ERC1155 ABI used for minting
const ERC1155ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"},
			{"internalType": "uint256", "name": "id", "type": "uint256"}
		],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "mintFee",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "contract IMinter1155", "name": "minter", "type": "address"},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"},
			{"internalType": "uint256", "name": "quantity", "type": "uint256"},
			{"internalType": "bytes", "name": "minterArguments", "type": "bytes"}
		],
		"name": "mint",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// FixedPriceMinterABI is the sale getter of the Zora fixed price sale strategy
const FixedPriceMinterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenContract", "type": "address"},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "sale",
		"outputs": [
			{
				"components": [
					{"internalType": "uint64", "name": "saleStart", "type": "uint64"},
					{"internalType": "uint64", "name": "saleEnd", "type": "uint64"},
					{"internalType": "uint64", "name": "maxTokensPerAddress", "type": "uint64"},
					{"internalType": "uint96", "name": "pricePerToken", "type": "uint96"},
					{"internalType": "address", "name": "fundsRecipient", "type": "address"}
				],
				"internalType": "struct ZoraCreatorFixedPriceSaleStrategy.SalesConfig",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	portalABI           = mustParseABI(PortalABI)
	erc721DropABI       = mustParseABI(ERC721DropABI)
	erc1155ABI          = mustParseABI(ERC1155ABI)
	fixedPriceMinterABI = mustParseABI(FixedPriceMinterABI)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %v", err))
	}
	return parsed
}
