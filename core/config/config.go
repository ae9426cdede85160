package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/octanelabs/bolt/pkg/logger"
)

const (
	defaultGasPriceBump   = 100
	defaultGasPriceExpiry = 300
)

// ConfigRaw is what we read from the yaml file. String values may reference
// environment variables with ${VAR}; they are expanded before parsing.
type ConfigRaw struct {
	Environment sdklogging.LogLevel `yaml:"environment"`

	EthRpcUrl         string `yaml:"eth_rpc_url" validate:"required"`
	EntryPointAddress string `yaml:"entrypoint_address" validate:"required"`
	ChainID           int64  `yaml:"chain_id" validate:"required"`
	ChainType         string `yaml:"chain_type"`

	LegacyTransactions             bool   `yaml:"legacy_transactions"`
	GasPriceBump                   int64  `yaml:"gas_price_bump" validate:"omitempty,min=100"`
	GasPriceExpiry                 int    `yaml:"gas_price_expiry" validate:"omitempty,min=1"`
	GasPriceRefreshIntervalSeconds int    `yaml:"gas_price_refresh_interval_seconds" validate:"min=0"`
	PolygonGasStationUrl           string `yaml:"polygon_gas_station_url"`

	ExecutorPrivateKeys []string `yaml:"executor_private_keys" validate:"required,min=1"`
	MaxExecutors        int      `yaml:"max_executors" validate:"min=0"`

	// RedisQueueEndpoint selects the redis-backed shared wallet queue when
	// set. WalletQueueMode "shared" without an endpoint uses the embedded
	// KV store instead (single host, several workers).
	RedisQueueEndpoint string `yaml:"redis_queue_endpoint"`
	WalletQueueMode    string `yaml:"wallet_queue_mode" validate:"omitempty,oneof=local shared"`

	DbPath         string `yaml:"db_path"`
	OpsBindAddress string `yaml:"ops_bind_address"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Logger logger.Logger

	EthRpcUrl         string
	EthClient         *ethclient.Client
	ChainID           *big.Int
	EntryPointAddress common.Address
	ChainType         string

	LegacyTransactions      bool
	GasPriceBump            int64
	GasPriceExpiry          int
	GasPriceRefreshInterval time.Duration
	PolygonGasStationUrl    string

	ExecutorPrivateKeys []string
	MaxExecutors        int

	RedisQueueEndpoint string
	WalletQueueMode    string

	DbPath         string
	OpsBindAddress string
}

// LoadRaw reads, env-expands, parses and validates the yaml file, applying
// defaults for the optional gas-price knobs.
func LoadRaw(path string) (*ConfigRaw, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	raw := &ConfigRaw{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(body))), raw); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if raw.Environment == "" {
		raw.Environment = sdklogging.Production
	}
	if raw.GasPriceBump == 0 {
		raw.GasPriceBump = defaultGasPriceBump
	}
	if raw.GasPriceExpiry == 0 {
		raw.GasPriceExpiry = defaultGasPriceExpiry
	}
	if raw.WalletQueueMode == "" {
		if raw.RedisQueueEndpoint != "" {
			raw.WalletQueueMode = "shared"
		} else {
			raw.WalletQueueMode = "local"
		}
	}

	if err := validator.New().Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !common.IsHexAddress(raw.EntryPointAddress) {
		return nil, fmt.Errorf("invalid config: entrypoint_address %q is not an address", raw.EntryPointAddress)
	}

	return raw, nil
}

// NewConfig loads the file and connects the chain client. The configured
// chain_id is checked against what the node reports; serving fees for the
// wrong chain is the kind of mistake that burns wallets.
func NewConfig(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}

	lgr, err := sdklogging.NewZapLogger(raw.Environment)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.Dial(raw.EthRpcUrl)
	if err != nil {
		lgr.Errorf("cannot create ethclient: %v", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		lgr.Errorf("cannot get chain id: %v", err)
		return nil, err
	}
	if chainID.Int64() != raw.ChainID {
		return nil, fmt.Errorf("configured chain_id %d but node reports %s", raw.ChainID, chainID)
	}

	return &Config{
		Logger: lgr,

		EthRpcUrl:         raw.EthRpcUrl,
		EthClient:         client,
		ChainID:           chainID,
		EntryPointAddress: common.HexToAddress(raw.EntryPointAddress),
		ChainType:         raw.ChainType,

		LegacyTransactions:      raw.LegacyTransactions,
		GasPriceBump:            raw.GasPriceBump,
		GasPriceExpiry:          raw.GasPriceExpiry,
		GasPriceRefreshInterval: time.Duration(raw.GasPriceRefreshIntervalSeconds) * time.Second,
		PolygonGasStationUrl:    raw.PolygonGasStationUrl,

		ExecutorPrivateKeys: raw.ExecutorPrivateKeys,
		MaxExecutors:        raw.MaxExecutors,

		RedisQueueEndpoint: raw.RedisQueueEndpoint,
		WalletQueueMode:    raw.WalletQueueMode,

		DbPath:         raw.DbPath,
		OpsBindAddress: raw.OpsBindAddress,
	}, nil
}
