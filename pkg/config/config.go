package config

import (
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

// Mode selects which workflow a runner executes
type Mode string

const (
	ModeBridge Mode = "bridge"
	ModeMint   Mode = "mint"
	ModeAuto   Mode = "auto"
)

// ParseMode accepts a mode name or its numeric form (0 bridge, 1 mint, 2 auto)
func ParseMode(value string) (Mode, error) {
	switch value {
	case "0", string(ModeBridge):
		return ModeBridge, nil
	case "1", string(ModeMint):
		return ModeMint, nil
	case "2", string(ModeAuto):
		return ModeAuto, nil
	}
	return "", fmt.Errorf("invalid MODE value: %s, must be 'bridge', 'mint' or 'auto'", value)
}

// Standard is the NFT contract standard of the collection
type Standard string

const (
	StandardERC721  Standard = "ERC721"
	StandardERC1155 Standard = "ERC1155"
)

// Config holds the configuration of a batch run
type Config struct {
	Mode   Mode
	Chains map[string]ChainConfig

	MaxEthGasPrice   *big.Int
	WaitGasTime      time.Duration
	TotalWaitGasTime time.Duration

	BridgeAmountMin    decimal.Decimal
	BridgeAmountMax    decimal.Decimal
	BridgeAddress      common.Address
	BridgeGasLimit     uint64
	BridgeWaitTime     time.Duration
	BridgePollInterval time.Duration

	NFTAddress    common.Address
	NFTStandard   Standard
	TokenID       *big.Int
	MinterAddress common.Address
	MintCount     int64

	NextTxMinWait      time.Duration
	NextTxMaxWait      time.Duration
	NextAddressMinWait time.Duration
	NextAddressMaxWait time.Duration

	MaxTries int
	Password string

	WalletsFile string
	ProxiesFile string
	ResultsDir  string
	LogsDir     string

	Telegram       TelegramConfig
	LoggerConfig   LoggerConfig
	MetricsPort    string
	MetricsAPIKey  string
	CircuitBreaker CircuitBreakerConfig
}

// ChainConfig holds the configuration for a specific blockchain
type ChainConfig struct {
	Name        string
	ChainID     int64
	RPCURL      string
	ExplorerURL string

	// EIP1559 selects the fee-market gas policy
	EIP1559     bool
	LowGas      bool
	LowGasPrice *big.Int
	PriorityFee *big.Int

	TxTimeout      time.Duration
	TxPollInterval time.Duration
}

// TelegramConfig holds the notification bot settings
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether notifications should be sent
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	chains, err := GetEnvChainConfigs()
	if err != nil {
		return nil, err
	}

	mode, err := GetEnvMode()
	if err != nil {
		return nil, err
	}

	maxEthGasPrice, err := GetEnvGwei("MAX_ETH_GAS_PRICE", DefaultMaxEthGasPrice)
	if err != nil {
		return nil, err
	}
	waitGasTime, err := GetEnvDuration("WAIT_GAS_TIME", DefaultWaitGasTime, time.Second)
	if err != nil {
		return nil, err
	}
	totalWaitGasTime, err := GetEnvDuration("TOTAL_WAIT_GAS_TIME", DefaultTotalWaitGasTime, time.Second)
	if err != nil {
		return nil, err
	}

	bridgeMin, err := GetEnvEther("BRIDGE_AMOUNT_MIN", DefaultBridgeAmountMin)
	if err != nil {
		return nil, err
	}
	bridgeMax, err := GetEnvEther("BRIDGE_AMOUNT_MAX", DefaultBridgeAmountMax)
	if err != nil {
		return nil, err
	}
	bridgeAddress, err := GetEnvAddress("ZORA_BRIDGE_ADDRESS", ZoraBridgeAddress)
	if err != nil {
		return nil, err
	}
	bridgeGasLimit, err := GetEnvInt("BRIDGE_GAS_LIMIT", DefaultBridgeGasLimit)
	if err != nil {
		return nil, err
	}
	bridgeWaitTime, err := GetEnvDuration("BRIDGE_WAIT_TIME", DefaultBridgeWaitTime, time.Second)
	if err != nil {
		return nil, err
	}
	bridgePollInterval, err := GetEnvDuration("BRIDGE_POLL_INTERVAL", DefaultBridgePollInterval, time.Second)
	if err != nil {
		return nil, err
	}

	nftAddress, err := GetEnvAddress("NFT_ADDRESS", "")
	if err != nil {
		return nil, err
	}
	standard, err := GetEnvNFTStandard()
	if err != nil {
		return nil, err
	}
	tokenID, err := GetEnvTokenID()
	if err != nil {
		return nil, err
	}
	minterAddress, err := GetEnvAddress("ZORA_MINTER_ADDRESS", ZoraMinterAddress)
	if err != nil {
		return nil, err
	}
	mintCount, err := GetEnvInt("MINT_COUNT", DefaultMintCount)
	if err != nil {
		return nil, err
	}

	nextTxMin, err := GetEnvDuration("NEXT_TX_MIN_WAIT_TIME", DefaultNextTxMinWaitTime, time.Second)
	if err != nil {
		return nil, err
	}
	nextTxMax, err := GetEnvDuration("NEXT_TX_MAX_WAIT_TIME", DefaultNextTxMaxWaitTime, time.Second)
	if err != nil {
		return nil, err
	}
	nextAddressMin, err := GetEnvDuration("NEXT_ADDRESS_MIN_WAIT_TIME", DefaultNextAddressMinWaitTime, time.Minute)
	if err != nil {
		return nil, err
	}
	nextAddressMax, err := GetEnvDuration("NEXT_ADDRESS_MAX_WAIT_TIME", DefaultNextAddressMaxWaitTime, time.Minute)
	if err != nil {
		return nil, err
	}

	maxTries, err := GetEnvInt("MAX_TRIES", DefaultMaxTries)
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}
	logColoring, err := GetEnvBool("LOG_COLORING", true)
	if err != nil {
		return nil, err
	}
	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
	if err != nil {
		return nil, err
	}
	cbThreshold, err := GetEnvInt("CIRCUIT_BREAKER_THRESHOLD", DefaultCircuitBreakerThreshold)
	if err != nil {
		return nil, err
	}
	cbWindow, err := GetEnvCircuitBreakerDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
	if err != nil {
		return nil, err
	}
	cbReset, err := GetEnvCircuitBreakerDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:               mode,
		Chains:             chains,
		MaxEthGasPrice:     maxEthGasPrice,
		WaitGasTime:        waitGasTime,
		TotalWaitGasTime:   totalWaitGasTime,
		BridgeAmountMin:    bridgeMin,
		BridgeAmountMax:    bridgeMax,
		BridgeAddress:      bridgeAddress,
		BridgeGasLimit:     uint64(bridgeGasLimit),
		BridgeWaitTime:     bridgeWaitTime,
		BridgePollInterval: bridgePollInterval,
		NFTAddress:         nftAddress,
		NFTStandard:        standard,
		TokenID:            tokenID,
		MinterAddress:      minterAddress,
		MintCount:          int64(mintCount),
		NextTxMinWait:      nextTxMin,
		NextTxMaxWait:      nextTxMax,
		NextAddressMinWait: nextAddressMin,
		NextAddressMaxWait: nextAddressMax,
		MaxTries:           maxTries,
		Password:           GetEnvString("PASSWORD", ""),
		WalletsFile:        GetEnvString("WALLETS_FILE", DefaultWalletsFile),
		ProxiesFile:        GetEnvString("PROXIES_FILE", DefaultProxiesFile),
		ResultsDir:         GetEnvString("RESULTS_DIR", DefaultResultsDir),
		LogsDir:            GetEnvString("LOGS_DIR", DefaultLogsDir),
		Telegram: TelegramConfig{
			BotToken: GetEnvString("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   GetEnvString("TELEGRAM_CHAT_ID", ""),
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		MetricsPort:   metricsPort,
		MetricsAPIKey: GetEnvString("METRICS_API_KEY", ""),
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetEnvChainConfigs returns the configuration of the two involved chains
func GetEnvChainConfigs() (map[string]ChainConfig, error) {
	txTimeout, err := GetEnvDuration("TX_TIMEOUT", DefaultTxTimeout, time.Second)
	if err != nil {
		return nil, err
	}
	txPollInterval, err := GetEnvDuration("TX_POLL_INTERVAL", DefaultTxPollInterval, time.Second)
	if err != nil {
		return nil, err
	}

	// ethereum
	ethereumRPC, err := GetEnvURL("ETHEREUM_RPC_URL", DefaultEthereumRPCURL)
	if err != nil {
		return nil, err
	}

	// zora
	zoraRPC, err := GetEnvURL("ZORA_RPC_URL", DefaultZoraRPCURL)
	if err != nil {
		return nil, err
	}
	zoraLowGas, err := GetEnvBool("ZORA_LOW_GAS", false)
	if err != nil {
		return nil, err
	}
	zoraPriorityFee, err := GetEnvGwei("ZORA_GWEI", DefaultZoraGwei)
	if err != nil {
		return nil, err
	}

	return map[string]ChainConfig{
		Ethereum: {
			Name:           Ethereum,
			ChainID:        EthereumChainID,
			RPCURL:         ethereumRPC,
			ExplorerURL:    DefaultEthereumExplorerURL,
			TxTimeout:      txTimeout,
			TxPollInterval: txPollInterval,
		},
		Zora: {
			Name:           Zora,
			ChainID:        ZoraChainID,
			RPCURL:         zoraRPC,
			ExplorerURL:    DefaultZoraExplorerURL,
			EIP1559:        true,
			LowGas:         zoraLowGas,
			LowGasPrice:    big.NewInt(ZoraLowGasPrice),
			PriorityFee:    zoraPriorityFee,
			TxTimeout:      txTimeout,
			TxPollInterval: txPollInterval,
		},
	}, nil
}

// InvolvedChains returns the chains a mode needs connections to
func InvolvedChains(mode Mode) []string {
	switch mode {
	case ModeBridge:
		return []string{Ethereum}
	case ModeMint:
		return []string{Zora}
	default:
		return []string{Ethereum, Zora}
	}
}

// Validate checks the configuration, again after command line overrides
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Mode != ModeBridge && cfg.NFTAddress == (common.Address{}) {
		return fmt.Errorf("NFT_ADDRESS is required in %s mode", cfg.Mode)
	}
	if cfg.MaxTries < 1 {
		return fmt.Errorf("MAX_TRIES must be at least 1")
	}
	if cfg.BridgeAmountMin.GreaterThan(cfg.BridgeAmountMax) {
		return fmt.Errorf("BRIDGE_AMOUNT_MIN must be less than or equal to BRIDGE_AMOUNT_MAX")
	}
	if cfg.NextTxMinWait > cfg.NextTxMaxWait {
		return fmt.Errorf("NEXT_TX_MIN_WAIT_TIME must be less than or equal to NEXT_TX_MAX_WAIT_TIME")
	}
	if cfg.NextAddressMinWait > cfg.NextAddressMaxWait {
		return fmt.Errorf("NEXT_ADDRESS_MIN_WAIT_TIME must be less than or equal to NEXT_ADDRESS_MAX_WAIT_TIME")
	}
	if cfg.WaitGasTime <= 0 {
		return fmt.Errorf("WAIT_GAS_TIME must be greater than 0")
	}
	if cfg.BridgePollInterval <= 0 {
		return fmt.Errorf("BRIDGE_POLL_INTERVAL must be greater than 0")
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	for name, chain := range cfg.Chains {
		if chain.TxTimeout <= 0 {
			return fmt.Errorf("TX_TIMEOUT for chain %s must be greater than 0", name)
		}
		if chain.TxPollInterval <= 0 {
			return fmt.Errorf("TX_POLL_INTERVAL for chain %s must be greater than 0", name)
		}
	}
	return nil
}
