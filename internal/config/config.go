package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the backrunner
type Config struct {
	Chain   ChainConfig
	Auction AuctionConfig
	Bot     BotConfig
	Logging LoggingConfig
}

// ChainConfig holds node RPC and network configuration
type ChainConfig struct {
	RPCURL         string
	ChainID        string
	AddressPrefix  string
	SignerAddress  string
	PrivateKey     string // hex secp256k1 key, env only
	FeeDenom       string
	GasLimit       int64
	GasPrice       float64
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// AuctionConfig holds block-builder auction configuration
type AuctionConfig struct {
	RPCURL           string
	HouseAddress     string
	BidPercentage    float64 // share of net profit sent as the auction bid
	DesiredHeight    int64
	Sync             bool
	SubmitTimeout    time.Duration
	RetryDelay       time.Duration
	MaxRetryAttempts int
}

// RouterConfig names a multi-hop router contract and the dialect of the
// pools it fronts.
type RouterConfig struct {
	Protocol string
	Address  string
}

// BotConfig holds engine-specific settings
type BotConfig struct {
	ContractsFile   string // sqlite pool catalog used to warm-start the registry
	Routers         []RouterConfig
	ArbDenom        string
	PollInterval    time.Duration
	SeenCapacity    int
	RefreshWorkers  int
	RefreshBackoff  time.Duration
	AllowancePrefix []string // bech32 prefixes marking contract-style tokens
	AllowanceExpiry int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// GasFee returns the flat fee reserved for the arbitrage transaction.
func (c ChainConfig) GasFee() int64 {
	return int64(float64(c.GasLimit) * c.GasPrice)
}

// Load reads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("chain.rpc_url", "https://rpc.junonetwork.io/")
	v.SetDefault("chain.chain_id", "juno-1")
	v.SetDefault("chain.address_prefix", "juno")
	v.SetDefault("chain.signer_address", "")
	v.SetDefault("chain.private_key", "")
	v.SetDefault("chain.fee_denom", "ujuno")
	v.SetDefault("chain.gas_limit", 1_500_000)
	v.SetDefault("chain.gas_price", 0.0025)
	v.SetDefault("chain.retry_attempts", 3)
	v.SetDefault("chain.retry_delay", "1s")
	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("auction.rpc_url", "")
	v.SetDefault("auction.house_address", "")
	v.SetDefault("auction.bid_percentage", 0.5)
	v.SetDefault("auction.desired_height", 0)
	v.SetDefault("auction.sync", true)
	v.SetDefault("auction.submit_timeout", "10s")
	v.SetDefault("auction.retry_delay", "1s")
	v.SetDefault("auction.max_retry_attempts", 15)

	v.SetDefault("bot.contracts_file", "contracts.db")
	v.SetDefault("bot.routers", []string{})
	v.SetDefault("bot.arb_denom", "ujuno")
	v.SetDefault("bot.poll_interval", "1s")
	v.SetDefault("bot.seen_capacity", 200)
	v.SetDefault("bot.refresh_workers", 8)
	v.SetDefault("bot.refresh_backoff", "60s")
	v.SetDefault("bot.allowance_prefixes", []string{"juno", "terra"})
	v.SetDefault("bot.allowance_expiry", 10_000_000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Environment variable support
	v.SetEnvPrefix("BACKRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.cosmos-backrunner")

	// Read config file (optional)
	_ = v.ReadInConfig()

	retryDelay, _ := time.ParseDuration(v.GetString("chain.retry_delay"))
	requestTimeout, _ := time.ParseDuration(v.GetString("chain.request_timeout"))
	submitTimeout, _ := time.ParseDuration(v.GetString("auction.submit_timeout"))
	auctionRetryDelay, _ := time.ParseDuration(v.GetString("auction.retry_delay"))
	pollInterval, _ := time.ParseDuration(v.GetString("bot.poll_interval"))
	refreshBackoff, _ := time.ParseDuration(v.GetString("bot.refresh_backoff"))

	routers, err := parseRouters(v.GetStringSlice("bot.routers"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Chain: ChainConfig{
			RPCURL:         v.GetString("chain.rpc_url"),
			ChainID:        v.GetString("chain.chain_id"),
			AddressPrefix:  v.GetString("chain.address_prefix"),
			SignerAddress:  v.GetString("chain.signer_address"),
			PrivateKey:     v.GetString("chain.private_key"),
			FeeDenom:       v.GetString("chain.fee_denom"),
			GasLimit:       v.GetInt64("chain.gas_limit"),
			GasPrice:       v.GetFloat64("chain.gas_price"),
			RetryAttempts:  v.GetInt("chain.retry_attempts"),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		Auction: AuctionConfig{
			RPCURL:           v.GetString("auction.rpc_url"),
			HouseAddress:     v.GetString("auction.house_address"),
			BidPercentage:    v.GetFloat64("auction.bid_percentage"),
			DesiredHeight:    v.GetInt64("auction.desired_height"),
			Sync:             v.GetBool("auction.sync"),
			SubmitTimeout:    submitTimeout,
			RetryDelay:       auctionRetryDelay,
			MaxRetryAttempts: v.GetInt("auction.max_retry_attempts"),
		},
		Bot: BotConfig{
			ContractsFile:   v.GetString("bot.contracts_file"),
			Routers:         routers,
			ArbDenom:        v.GetString("bot.arb_denom"),
			PollInterval:    pollInterval,
			SeenCapacity:    v.GetInt("bot.seen_capacity"),
			RefreshWorkers:  v.GetInt("bot.refresh_workers"),
			RefreshBackoff:  refreshBackoff,
			AllowancePrefix: v.GetStringSlice("bot.allowance_prefixes"),
			AllowanceExpiry: v.GetInt64("bot.allowance_expiry"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.Chain.SignerAddress == "" {
		return nil, fmt.Errorf("chain.signer_address is required")
	}
	if cfg.Chain.PrivateKey == "" {
		return nil, fmt.Errorf("chain.private_key is required")
	}
	if cfg.Auction.RPCURL == "" {
		return nil, fmt.Errorf("auction.rpc_url is required")
	}
	if cfg.Auction.HouseAddress == "" {
		return nil, fmt.Errorf("auction.house_address is required")
	}

	return cfg, nil
}

// parseRouters parses "protocol:address" entries.
func parseRouters(entries []string) ([]RouterConfig, error) {
	var routers []RouterConfig
	for _, entry := range entries {
		protocol, address, ok := strings.Cut(entry, ":")
		if !ok || protocol == "" || address == "" {
			return nil, fmt.Errorf("bot.routers entry %q: want protocol:address", entry)
		}
		routers = append(routers, RouterConfig{Protocol: protocol, Address: address})
	}
	return routers, nil
}
