package config

import (
	"context"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if WALLETPOINTS_CONFIG is set
//  3. env (prefix WALLETPOINTS_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("WALLETPOINTS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: WALLETPOINTS_ADDR, WALLETPOINTS_LEDGER_URL, ...
	// Env keys map to the flat koanf tags, underscores preserved.
	envProvider := env.Provider("WALLETPOINTS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "walletpoints_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return ErrEmptyAddr
	case c.RPCURL == "":
		return ErrEmptyRPCURL
	case c.SubgraphURL == "":
		return ErrEmptySubgraphURL
	case c.LedgerURL == "":
		return ErrEmptyLedgerURL
	case len(c.ExplorerMirrors) == 0:
		return ErrNoMirrors
	}
	for _, addr := range []string{c.IdentityContract, c.ClaimContract} {
		if !common.IsHexAddress(addr) {
			return ErrBadContractAddress
		}
	}
	return nil
}
