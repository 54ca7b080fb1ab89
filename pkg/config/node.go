// Copyright 2025 Certen Protocol
//
// Node configuration loader. Grounded on anchor_config.go's YAML-plus-
// ${VAR}-substitution pattern, narrowed to what cmd/lcd needs to boot a
// CometBFT node over the state-machine core in pkg/app.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig describes a single left-curve node: where CometBFT keeps its
// home directory, which chain it joins, and how the node binds its
// listeners. Every other CometBFT setting keeps the value from CometBFT's
// built-in defaults: cmd/lcd starts from cmtcfg.DefaultConfig() and does not
// read a config.toml.
type NodeConfig struct {
	Moniker string `yaml:"moniker"`
	ChainID string `yaml:"chain_id"`
	HomeDir string `yaml:"home_dir"`

	P2PListenAddress string `yaml:"p2p_listen_address"`
	RPCListenAddress string `yaml:"rpc_listen_address"`

	// DBBackend names a cometbft-db backend ("goleveldb", "memdb", ...)
	// used for both CometBFT's own stores and the application's kvdb.Store.
	DBBackend string `yaml:"db_backend"`

	GenesisPath string `yaml:"genesis_path"`

	ConsensusTimeoutCommit time.Duration `yaml:"consensus_timeout_commit"`
}

// DefaultNodeConfig returns the settings a single-node devnet needs with no
// further configuration.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Moniker:                "left-curve-node",
		ChainID:                "left-curve-devnet",
		HomeDir:                "./.left-curve",
		P2PListenAddress:       "tcp://0.0.0.0:26656",
		RPCListenAddress:       "tcp://0.0.0.0:26657",
		DBBackend:              "goleveldb",
		GenesisPath:            "config/genesis.json",
		ConsensusTimeoutCommit: 1 * time.Second,
	}
}

// LoadNodeConfig reads path as YAML over DefaultNodeConfig, with ${VAR}
// references in the file substituted from the environment.
func LoadNodeConfig(path string) (NodeConfig, error) {
	cfg := DefaultNodeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
