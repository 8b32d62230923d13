// Package claims counts on-chain claim events for a wallet and derives the
// idempotency key for the ledger write.
package claims

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/adapters/explorer"
	"github.com/goodpoints/walletpoints/pkg/logger"
)

// HeadReader reports the current chain head block height.
type HeadReader interface {
	HeadBlock(ctx context.Context) (uint64, error)
}

// LogSource fetches raw event logs matching an explorer query.
type LogSource interface {
	Logs(ctx context.Context, q explorer.Query) ([]explorer.Log, error)
}

// Result carries the claim count for one wallet.
type Result struct {
	Count int

	// DedupKey is "<address>_<last log timestamp>", empty when the wallet
	// has no claim logs.
	DedupKey string
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// Scorer counts claim-event logs emitted by the claim scheme contract with
// the wallet as the indexed topic.
type Scorer struct {
	head      HeadReader
	logs      LogSource
	contract  common.Address
	topic     common.Hash
	fromBlock uint64
	log       logger.Logger
}

// NewScorer creates a claim scorer scanning [fromBlock, head] against the
// given claim contract and event topic.
func NewScorer(head HeadReader, logs LogSource, contract common.Address, topic common.Hash, fromBlock uint64, opts ...Option) *Scorer {
	s := &Scorer{
		head:      head,
		logs:      logs,
		contract:  contract,
		topic:     topic,
		fromBlock: fromBlock,
		log:       logger.Named("claims"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score fetches the wallet's claim logs up to the current head and counts
// them. Fetch and response-shape failures propagate unchanged.
func (s *Scorer) Score(ctx context.Context, wallet common.Address) (Result, error) {
	head, err := s.head.HeadBlock(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("chain head: %w", err)
	}

	logs, err := s.logs.Logs(ctx, explorer.Query{
		Address:   s.contract.Hex(),
		Topic0:    s.topic.Hex(),
		Topic1:    walletTopic(wallet),
		TopicOper: "and",
		FromBlock: s.fromBlock,
		ToBlock:   head,
	})
	if err != nil {
		return Result{}, err
	}

	s.log.Debug(ctx, "fetched wallet claim events",
		logger.String("address", wallet.Hex()),
		logger.Int("events", len(logs)),
	)

	res := Result{Count: len(logs)}
	if len(logs) > 0 {
		ts, err := logs[len(logs)-1].Timestamp()
		if err != nil {
			return Result{}, fmt.Errorf("claim log timestamp: %w", err)
		}
		res.DedupKey = fmt.Sprintf("%s_%d", wallet.Hex(), ts)
	}
	return res, nil
}

// walletTopic left-pads the address to a 32-byte topic value.
func walletTopic(a common.Address) string {
	return common.BytesToHash(a.Bytes()).Hex()
}
