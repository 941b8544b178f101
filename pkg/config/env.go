package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

const (
	// Ethereum is the source chain of the bridge
	Ethereum = "Ethereum"

	// Zora is the destination chain where the NFT is minted
	Zora = "Zora"

	EthereumChainID = 1
	ZoraChainID     = 7777777

	DefaultEthereumRPCURL      = "https://eth.llamarpc.com"
	DefaultEthereumExplorerURL = "https://etherscan.io"
	DefaultZoraRPCURL          = "https://rpc.zora.energy"
	DefaultZoraExplorerURL     = "https://explorer.zora.energy"

	// DefaultMode mints and bridges only when the wallet cannot pay for the mint
	DefaultMode = ModeAuto

	// DefaultMaxEthGasPrice is the gas price ceiling for bridging, in gwei
	DefaultMaxEthGasPrice = "30"

	// DefaultWaitGasTime is the interval between gas price checks, in seconds
	DefaultWaitGasTime = 60

	// DefaultTotalWaitGasTime is how long to wait for gas to drop, in seconds
	DefaultTotalWaitGasTime = 3600

	// Bridge amount range in ether, inclusive
	DefaultBridgeAmountMin = "0.001"
	DefaultBridgeAmountMax = "0.002"

	// DefaultBridgeGasLimit is the L2 gas limit passed to depositTransaction
	DefaultBridgeGasLimit = 100000

	// DefaultBridgeWaitTime is how long to wait for bridged funds to arrive, in seconds
	DefaultBridgeWaitTime = 600

	// DefaultBridgePollInterval is the interval between destination balance checks, in seconds
	DefaultBridgePollInterval = 20

	// ZoraBridgeAddress is the OptimismPortal of Zora on Ethereum mainnet
	ZoraBridgeAddress = "0x1a0ad011913A150f69f6A19DF447A0CfD9551054"

	// ZoraMinterAddress is the fixed price sale strategy used by Zora ERC1155 collections
	ZoraMinterAddress = "0x04E2516A2c207E84a1839755675dfd8eF6302F0a"

	DefaultNFTStandard = StandardERC721
	DefaultTokenID     = "1"
	DefaultMintCount   = 1

	// DefaultZoraGwei is the priority fee on Zora, in gwei
	DefaultZoraGwei = "0.005"

	// ZoraLowGasPrice is the flat gas price used on Zora when low gas mode is on, in wei
	ZoraLowGasPrice = 50000000

	// DefaultTxTimeout is how long a sent transaction is awaited before it is reported pending, in seconds
	DefaultTxTimeout = 120

	// DefaultTxPollInterval is the interval between receipt lookups, in seconds
	DefaultTxPollInterval = 2

	// Delay between steps of one account, in seconds
	DefaultNextTxMinWaitTime = 10
	DefaultNextTxMaxWaitTime = 20

	// Delay between accounts, in minutes
	DefaultNextAddressMinWaitTime = 1
	DefaultNextAddressMaxWaitTime = 2

	// DefaultMaxTries is the number of attempts of each workflow operation
	DefaultMaxTries = 3

	DefaultWalletsFile = "files/wallets.txt"
	DefaultProxiesFile = "files/proxies.txt"
	DefaultResultsDir  = "results"
	DefaultLogsDir     = "logs"

	DefaultCircuitBreakerEnabled   = true
	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerWindow    = 30 * time.Minute
	DefaultCircuitBreakerReset     = 10 * time.Minute
)

// GetEnvMode returns the workflow mode, accepting names or the numeric 0/1/2 form
func GetEnvMode() (Mode, error) {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("MODE")))
	if value == "" {
		return DefaultMode, nil
	}
	return ParseMode(value)
}

// GetEnvNFTStandard returns the NFT contract standard
func GetEnvNFTStandard() (Standard, error) {
	value := strings.ToUpper(strings.TrimSpace(os.Getenv("NFT_STANDARD")))
	if value == "" {
		return DefaultNFTStandard, nil
	}
	switch Standard(value) {
	case StandardERC721, StandardERC1155:
		return Standard(value), nil
	}
	return "", fmt.Errorf("invalid NFT_STANDARD value: %s, must be 'ERC721' or 'ERC1155'", value)
}

// GetEnvGwei returns a gwei amount from the environment converted to wei
func GetEnvGwei(key, def string) (*big.Int, error) {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	gwei, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %s, must be a number of gwei", key, value)
	}
	if gwei.IsNegative() {
		return nil, fmt.Errorf("%s must be greater than or equal to 0", key)
	}
	return gwei.Shift(9).BigInt(), nil
}

// GetEnvEther returns an ether amount from the environment
func GetEnvEther(key, def string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s value: %s, must be a decimal amount", key, value)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be greater than or equal to 0", key)
	}
	return amount, nil
}

// GetEnvDuration returns a duration expressed as a number of units
func GetEnvDuration(key string, def float64, unit time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(def * float64(unit)), nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a number", key, value)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must be greater than or equal to 0", key)
	}
	return time.Duration(parsed * float64(unit)), nil
}

// GetEnvInt returns a positive integer from the environment
func GetEnvInt(key string, def int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", key, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

// GetEnvBool returns a boolean flag from the environment
func GetEnvBool(key string, def bool) (bool, error) {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "":
		return def, nil
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", key, value)
}

// GetEnvAddress returns a hex address from the environment, the zero address when unset without default
func GetEnvAddress(key, def string) (common.Address, error) {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	if value == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s value: %s, must be a valid Ethereum address", key, value)
	}
	return common.HexToAddress(value), nil
}

// GetEnvURL returns a URL from the environment
func GetEnvURL(key, def string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	if _, err := url.ParseRequestURI(value); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", key, value)
	}
	return value, nil
}

// GetEnvTokenID returns the ERC1155 token id
func GetEnvTokenID() (*big.Int, error) {
	value := os.Getenv("TOKEN_ID")
	if value == "" {
		value = DefaultTokenID
	}
	tokenID, ok := new(big.Int).SetString(value, 10)
	if !ok || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("invalid TOKEN_ID value: %s, must be a non-negative integer", value)
	}
	return tokenID, nil
}

// GetEnvString returns a string from the environment or def
func GetEnvString(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

// GetEnvLogLevel returns the console log level
func GetEnvLogLevel() (logger.Level, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %w", err)
	}
	return level, nil
}

// GetEnvMetricsPort returns the metrics server port, empty when disabled
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return "", nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvCircuitBreakerDuration returns a breaker duration from environment variables
func GetEnvCircuitBreakerDuration(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", key, value)
	}
	return parsed, nil
}
