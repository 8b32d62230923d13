// Package app orchestrates the whitelist gate, the two scorers and the
// ranking lookup for a single wallet request.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/domain/claims"
	"github.com/goodpoints/walletpoints/internal/domain/model"
	"github.com/goodpoints/walletpoints/internal/domain/reconcile"
	"github.com/goodpoints/walletpoints/internal/domain/streaming"
	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

// WalletData carries the two score strings returned to the caller.
type WalletData struct {
	Claims   string `json:"claims"`
	Streamed string `json:"streamed"`
}

// Response is the full wallet endpoint payload.
type Response struct {
	TopWalletResult json.RawMessage `json:"topWalletResult"`
	WalletData      WalletData      `json:"walletData"`
}

// Whitelist reads the identity registry.
type Whitelist interface {
	WhitelistedRoot(ctx context.Context, account common.Address) (common.Address, error)
}

// StreamSource fetches a donor's flow-update events.
type StreamSource interface {
	SupportEvents(ctx context.Context, donor common.Address) ([]model.StreamEvent, error)
}

// ClaimScorer counts a wallet's claim events.
type ClaimScorer interface {
	Score(ctx context.Context, wallet common.Address) (claims.Result, error)
}

// Ranker performs the best-effort top-wallet lookup; it never fails.
type Ranker interface {
	TopWallet(ctx context.Context, account, clientIP string) json.RawMessage
}

// Syncer reconciles a computed score against the external ledger.
type Syncer interface {
	Sync(ctx context.Context, account, kind string, current int64, dedupKey string) (int64, error)
}

// Service implements the wallet endpoint's dependencies.
type Service struct {
	whitelist Whitelist
	streams   StreamSource
	claims    ClaimScorer
	scorer    *streaming.Scorer
	ranker    Ranker
	syncer    Syncer
	log       logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStreamingScorer overrides the streaming scorer (used to pin the clock
// in tests).
func WithStreamingScorer(sc *streaming.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// New constructs a Service over its collaborators.
func New(whitelist Whitelist, streams StreamSource, claimScorer ClaimScorer, ranker Ranker, syncer Syncer, opts ...Option) *Service {
	s := &Service{
		whitelist: whitelist,
		streams:   streams,
		claims:    claimScorer,
		scorer:    streaming.NewScorer(),
		ranker:    ranker,
		syncer:    syncer,
		log:       logger.Named("app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scoreOutcome struct {
	value string
	err   error
}

// WalletData verifies the whitelist gate, then runs the ranking lookup and
// both scorers concurrently. Scoring never starts for an unverified
// address. A scorer failure aborts the request; a ranking failure degrades
// to its sentinel value.
func (s *Service) WalletData(ctx context.Context, address common.Address, clientIP string) (Response, error) {
	account := address.Hex()

	root, err := s.whitelist.WhitelistedRoot(ctx, address)
	if err != nil {
		return Response{}, fmt.Errorf("whitelist check: %w", err)
	}
	if root != address {
		metrics.RecordWhitelistRejection()
		s.log.Info(ctx, "address not whitelisted",
			logger.String("address", account),
			logger.String("root", root.Hex()),
		)
		return Response{}, ErrNotWhitelisted
	}

	rankCh := make(chan json.RawMessage, 1)
	go func() {
		rankCh <- s.ranker.TopWallet(ctx, account, clientIP)
	}()

	claimCh := make(chan scoreOutcome, 1)
	go func() {
		claimCh <- s.scoreClaims(ctx, address, account)
	}()

	streamCh := make(chan scoreOutcome, 1)
	go func() {
		streamCh <- s.scoreStreaming(ctx, address, account)
	}()

	claimOut := <-claimCh
	streamOut := <-streamCh
	if claimOut.err != nil {
		return Response{}, claimOut.err
	}
	if streamOut.err != nil {
		return Response{}, streamOut.err
	}

	resp := Response{
		TopWalletResult: <-rankCh,
		WalletData: WalletData{
			Claims:   claimOut.value,
			Streamed: streamOut.value,
		},
	}
	s.log.Info(ctx, "wallet data assembled",
		logger.String("address", account),
		logger.String("claims", resp.WalletData.Claims),
		logger.String("streamed", resp.WalletData.Streamed),
	)
	return resp, nil
}

func (s *Service) scoreClaims(ctx context.Context, address common.Address, account string) scoreOutcome {
	start := time.Now()
	defer func() {
		metrics.RecordScoringDuration(reconcile.KindClaimed, float64(time.Since(start).Milliseconds()))
	}()

	res, err := s.claims.Score(ctx, address)
	if err != nil {
		return scoreOutcome{err: fmt.Errorf("claim scoring: %w", err)}
	}
	if _, err := s.syncer.Sync(ctx, account, reconcile.KindClaimed, int64(res.Count), res.DedupKey); err != nil {
		return scoreOutcome{err: err}
	}
	return scoreOutcome{value: strconv.Itoa(res.Count)}
}

func (s *Service) scoreStreaming(ctx context.Context, address common.Address, account string) scoreOutcome {
	start := time.Now()
	defer func() {
		metrics.RecordScoringDuration(reconcile.KindStreamed, float64(time.Since(start).Milliseconds()))
	}()

	events, err := s.streams.SupportEvents(ctx, address)
	if err != nil {
		return scoreOutcome{err: fmt.Errorf("stream scoring: %w", err)}
	}
	res := s.scorer.Score(account, events)
	s.log.Debug(ctx, "streamed contribution computed",
		logger.String("address", account),
		logger.Int64("points", res.Points),
		logger.Stringer("totalStreamed", res.TotalStreamed),
	)
	if _, err := s.syncer.Sync(ctx, account, reconcile.KindStreamed, res.Points, res.DedupKey); err != nil {
		return scoreOutcome{err: err}
	}
	return scoreOutcome{value: strconv.FormatInt(res.Points, 10)}
}
