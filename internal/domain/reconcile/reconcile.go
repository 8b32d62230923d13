// Package reconcile syncs computed scores against the external points
// ledger, emitting only positive, idempotency-keyed deltas.
package reconcile

import (
	"context"
	"fmt"

	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

// Event kinds keying the ledger alongside the wallet address.
const (
	KindClaimed  = "claimed"
	KindStreamed = "streamed"
)

// Ledger is the external points service. Track must treat repeated
// submissions with the same uniqueID as duplicates; the syncer relies on
// that guarantee for replay safety.
type Ledger interface {
	Points(ctx context.Context, account, kind string) (int64, error)
	Track(ctx context.Context, kind, account string, points int64, uniqueID string) error
}

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

// Syncer reconciles a freshly computed score with the recorded one.
type Syncer struct {
	ledger Ledger
	log    logger.Logger
}

// NewSyncer creates a syncer over the given ledger.
func NewSyncer(ledger Ledger, opts ...Option) *Syncer {
	s := &Syncer{
		ledger: ledger,
		log:    logger.Named("reconcile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reads the recorded points for (account, kind) and submits the
// positive delta tagged with dedupKey. A non-positive delta writes nothing,
// keeping the ledger monotonic. An empty dedupKey means no events were
// fetched, so nothing is submitted either: writes always carry a stable
// idempotency key. Returns the submitted delta, 0 when no write happened.
func (s *Syncer) Sync(ctx context.Context, account, kind string, current int64, dedupKey string) (int64, error) {
	previous, err := s.ledger.Points(ctx, account, kind)
	if err != nil {
		metrics.RecordLedgerError()
		return 0, fmt.Errorf("read %s points: %w", kind, err)
	}
	metrics.RecordLedgerRead()

	delta := current - previous
	if delta <= 0 {
		s.log.Debug(ctx, "score unchanged, skipping ledger write",
			logger.String("address", account),
			logger.String("kind", kind),
			logger.Int64("current", current),
			logger.Int64("previous", previous),
		)
		return 0, nil
	}
	if dedupKey == "" {
		// A positive delta without any fetched events signals recorded
		// points ahead of the observable activity; never write blind.
		s.log.Warn(ctx, "positive delta without dedup key, skipping ledger write",
			logger.String("address", account),
			logger.String("kind", kind),
			logger.Int64("delta", delta),
		)
		return 0, nil
	}

	if err := s.ledger.Track(ctx, kind, account, delta, dedupKey); err != nil {
		metrics.RecordLedgerError()
		return 0, fmt.Errorf("track %s points: %w", kind, err)
	}
	metrics.RecordLedgerWrite()
	metrics.RecordPointsAwarded(kind, float64(delta))

	s.log.Info(ctx, "updated ledger points",
		logger.String("address", account),
		logger.String("kind", kind),
		logger.Int64("delta", delta),
		logger.Int64("previous", previous),
	)
	return delta, nil
}
