package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	config "github.com/goodpoints/walletpoints/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

const identityContract = "0xF25eA0b233e5dAbFD179A376F1741BA1A3b23b20"

func setRequiredEnv(t *testing.T) {
	t.Setenv("WALLETPOINTS_SUBGRAPH_URL", "https://graph.example/subgraphs/streams")
	t.Setenv("WALLETPOINTS_RANKING_URL", "https://rank.example/top")
	t.Setenv("WALLETPOINTS_LEDGER_URL", "https://ledger.example")
	t.Setenv("WALLETPOINTS_LEDGER_API_KEY", "secret")
	t.Setenv("WALLETPOINTS_IDENTITY_CONTRACT", identityContract)
}

func TestLoad(t *testing.T) {
	Convey("Given the required environment", t, func() {
		setRequiredEnv(t)

		Convey("When config is loaded", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then env values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.SubgraphURL, ShouldEqual, "https://graph.example/subgraphs/streams")
				So(cfg.LedgerURL, ShouldEqual, "https://ledger.example")
				So(cfg.IdentityContract, ShouldEqual, identityContract)
			})

			Convey("And untouched defaults survive", func() {
				So(cfg.Addr, ShouldEqual, ":8080")
				So(cfg.RPCURL, ShouldEqual, "https://forno.celo.org")
				So(cfg.RankingChainID, ShouldEqual, 8453)
				So(cfg.PointSystemID, ShouldEqual, 7246)
				So(cfg.ClaimStartBlock, ShouldEqual, 20506082)
				So(cfg.ExplorerMirrors, ShouldHaveLength, 2)
			})
		})

		Convey("When an env override changes the listen address", func() {
			t.Setenv("WALLETPOINTS_ADDR", ":9090")
			cfg, err := config.Load(context.Background())

			Convey("Then the override wins", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9090")
			})
		})

		Convey("When a config file is layered under env", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			So(os.WriteFile(path, []byte("log_level: debug\naddr: \":7070\"\n"), 0o600), ShouldBeNil)
			t.Setenv("WALLETPOINTS_CONFIG", path)
			t.Setenv("WALLETPOINTS_ADDR", ":9090")

			cfg, err := config.Load(context.Background())

			Convey("Then file beats defaults and env beats file", func() {
				So(err, ShouldBeNil)
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.Addr, ShouldEqual, ":9090")
			})
		})
	})

	Convey("Given a missing identity contract", t, func() {
		setRequiredEnv(t)
		t.Setenv("WALLETPOINTS_IDENTITY_CONTRACT", "")

		Convey("When config is loaded", func() {
			_, err := config.Load(context.Background())

			Convey("Then validation rejects the address", func() {
				So(errors.Is(err, config.ErrBadContractAddress), ShouldBeTrue)
			})
		})
	})

	Convey("Given a missing subgraph URL", t, func() {
		setRequiredEnv(t)
		t.Setenv("WALLETPOINTS_SUBGRAPH_URL", "")

		Convey("When config is loaded", func() {
			_, err := config.Load(context.Background())

			Convey("Then validation fails", func() {
				So(errors.Is(err, config.ErrEmptySubgraphURL), ShouldBeTrue)
			})
		})
	})
}
