package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/adapters/chain"
	"github.com/goodpoints/walletpoints/internal/adapters/explorer"
	"github.com/goodpoints/walletpoints/internal/adapters/http/api"
	"github.com/goodpoints/walletpoints/internal/adapters/ledger"
	"github.com/goodpoints/walletpoints/internal/adapters/ranking"
	"github.com/goodpoints/walletpoints/internal/adapters/subgraph"
	app "github.com/goodpoints/walletpoints/internal/app"
	"github.com/goodpoints/walletpoints/internal/config"
	"github.com/goodpoints/walletpoints/internal/domain/claims"
	"github.com/goodpoints/walletpoints/internal/domain/reconcile"
	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	dialTimeout       = 15 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	chainClient, err := chain.Dial(dialCtx, cfg.RPCURL, common.HexToAddress(cfg.IdentityContract))
	cancel()
	if err != nil {
		log.Error(ctx, "failed to connect to chain RPC", logger.String("rpc_url", cfg.RPCURL), logger.Error(err))
		return
	}
	defer chainClient.Close()

	explorerClient := explorer.New(cfg.ExplorerMirrors, explorer.WithAPIKey(cfg.ExplorerAPIKey))
	subgraphClient := subgraph.New(cfg.SubgraphURL)
	ledgerClient := ledger.New(cfg.LedgerURL, cfg.LedgerAPIKey, cfg.PointSystemID)
	rankingClient := ranking.New(cfg.RankingURL, cfg.RankingChainID)

	claimScorer := claims.NewScorer(
		chainClient,
		explorerClient,
		common.HexToAddress(cfg.ClaimContract),
		common.HexToHash(cfg.ClaimTopic),
		cfg.ClaimStartBlock,
	)
	syncer := reconcile.NewSyncer(ledgerClient)

	svc := app.New(chainClient, subgraphClient, claimScorer, rankingClient, syncer,
		app.WithLogger(log),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	apiServer := api.NewServer(svc, cfg.AllowCORS)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}
