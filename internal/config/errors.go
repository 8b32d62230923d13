package config

import "errors"

// Validation sentinels returned by Load.
var (
	ErrEmptyAddr          = errors.New("addr must not be empty")
	ErrEmptyRPCURL        = errors.New("rpc_url must not be empty")
	ErrEmptySubgraphURL   = errors.New("subgraph_url must not be empty")
	ErrEmptyLedgerURL     = errors.New("ledger_url must not be empty")
	ErrNoMirrors          = errors.New("explorer_mirrors must not be empty")
	ErrBadContractAddress = errors.New("contract addresses must be hex addresses")
)
