// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env over them.
// - External errors are wrapped via this package's sentinels.
package config

import "context"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RPCURL is the chain JSON-RPC endpoint for head and contract reads.
	RPCURL string `koanf:"rpc_url"`

	// SubgraphURL is the GraphQL endpoint indexing donation streams.
	SubgraphURL string `koanf:"subgraph_url"`

	// RankingURL and RankingChainID configure the top-wallet backend.
	RankingURL     string `koanf:"ranking_url"`
	RankingChainID int64  `koanf:"ranking_chain_id"`

	// Points ledger service.
	LedgerURL     string `koanf:"ledger_url"`
	LedgerAPIKey  string `koanf:"ledger_api_key"`
	PointSystemID int    `koanf:"point_system_id"`

	// IdentityContract is the whitelist registry address.
	IdentityContract string `koanf:"identity_contract"`

	// Claim scanning parameters.
	ClaimContract   string `koanf:"claim_contract"`
	ClaimTopic      string `koanf:"claim_topic"`
	ClaimStartBlock uint64 `koanf:"claim_start_block"`

	// Explorer mirrors queried in order for event logs.
	ExplorerMirrors []string `koanf:"explorer_mirrors"`
	ExplorerAPIKey  string   `koanf:"explorer_api_key"`

	// AllowCORS adds permissive CORS headers to wallet responses.
	AllowCORS bool `koanf:"allow_cors"`
}

// New creates a Config with defaults. The context is accepted to satisfy
// the project-wide convention and is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8080",
		RPCURL:         "https://forno.celo.org",
		RankingChainID: 8453,
		PointSystemID:  7246,
		ClaimContract:  "0x43d72Ff17701B2DA814620735C39C620Ce0ea4A1",
		ClaimTopic:     "0x89ed24731df6b066e4c5186901fffdba18cd9a10f07494aff900bdee260d1304",
		ClaimStartBlock: 20506082,
		ExplorerMirrors: []string{
			"https://api.celoscan.io/api",
			"https://explorer.celo.org/mainnet/api",
		},
	}
}
