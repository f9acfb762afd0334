// Package config holds the runtime configuration of the chainquery
// service, populated from command line flags.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config gathers every tunable of the service binary.
type Config struct {
	// Host and Port bind the HTTP API server.
	Host string
	Port int
	// DataDir is the directory holding the local database.
	DataDir string
	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// Workers bounds the number of concurrent proving jobs.
	Workers int

	// Web3Endpoint enables the chain fetcher when non-empty.
	Web3Endpoint string
	// Contract is the tracked token contract address.
	Contract string
	// Owners is a comma separated list of tracked holder addresses.
	Owners string
	// MappingSlot is the base slot of the balances mapping.
	MappingSlot uint64
	// TotalSupplySlot is the slot of the total supply variable.
	TotalSupplySlot uint64
	// StartBlock is the first block the fetcher ingests.
	StartBlock uint64
	// PollInterval is how often the fetcher looks for new blocks.
	PollInterval time.Duration
}

// ParseFlags registers the service flags on the default flag set,
// parses the command line and returns the resulting configuration.
func ParseFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.Host, "host", "0.0.0.0", "API host to bind")
	flag.IntVar(&cfg.Port, "port", 8080, "API port to bind")
	flag.StringVar(&cfg.DataDir, "dataDir", "./chainquery-data", "directory for the local database")
	flag.StringVar(&cfg.LogLevel, "logLevel", "info", "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.Workers, "workers", 2, "number of concurrent proving jobs")
	flag.StringVar(&cfg.Web3Endpoint, "web3Endpoint", "", "web3 RPC endpoint (disables the fetcher when empty)")
	flag.StringVar(&cfg.Contract, "contract", "", "tracked token contract address")
	flag.StringVar(&cfg.Owners, "owners", "", "comma separated tracked holder addresses")
	flag.Uint64Var(&cfg.MappingSlot, "mappingSlot", 0, "base slot of the balances mapping")
	flag.Uint64Var(&cfg.TotalSupplySlot, "totalSupplySlot", 1, "slot of the total supply variable")
	flag.Uint64Var(&cfg.StartBlock, "startBlock", 0, "first block the fetcher ingests")
	flag.DurationVar(&cfg.PollInterval, "pollInterval", 12*time.Second, "how often the fetcher looks for new blocks")
	flag.Parse()
	return cfg
}

// FetcherEnabled reports whether the web3 fetcher should run.
func (c *Config) FetcherEnabled() bool {
	return c.Web3Endpoint != ""
}

// OwnerAddresses parses the comma separated owner list.
func (c *Config) OwnerAddresses() ([]common.Address, error) {
	if c.Owners == "" {
		return nil, nil
	}
	var owners []common.Address
	for _, raw := range strings.Split(c.Owners, ",") {
		raw = strings.TrimSpace(raw)
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid owner address %q", raw)
		}
		owners = append(owners, common.HexToAddress(raw))
	}
	return owners, nil
}

// ContractAddress parses the tracked contract address.
func (c *Config) ContractAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Contract) {
		return common.Address{}, fmt.Errorf("invalid contract address %q", c.Contract)
	}
	return common.HexToAddress(c.Contract), nil
}
