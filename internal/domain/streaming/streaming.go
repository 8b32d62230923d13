// Package streaming computes the rate-capped streamed-contribution score for
// a wallet from its donation-stream change events.
package streaming

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/goodpoints/walletpoints/internal/domain/model"
)

// Anti-gaming cap: at most 73,000 whole tokens per day count toward the
// streamed total, regardless of the observed flow rates.
const (
	maxDailyStreamTokens = 73_000
	secondsPerDay        = 86_400
	tokenDecimals        = 18
)

var (
	tokenBase = new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)

	// maxRate is the cap in token base units per second.
	maxRate = new(big.Int).Quo(
		new(big.Int).Mul(big.NewInt(maxDailyStreamTokens), tokenBase),
		big.NewInt(secondsPerDay),
	)
)

// Result carries the computed streamed score for one wallet.
type Result struct {
	// Points is round(sqrt(cappedTotal / 1e18)).
	Points int64

	// TotalStreamed is the uncapped streamed amount in token base units.
	TotalStreamed *big.Int

	// DedupKey is "<address>_<last event timestamp>", empty when the wallet
	// has no events. An empty key means there is nothing to submit.
	DedupKey string
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithClock overrides the clock used for the open streaming interval.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Scorer converts flow-update events into a bounded points value. It holds
// no per-wallet state; Score is safe for concurrent use.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a streaming scorer.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// interval is one settled or still-accruing stretch of streaming at a fixed
// rate, both in token base units and seconds.
type interval struct {
	rate    *big.Int
	elapsed int64
}

// Score computes the streamed score for address from its events, which must
// be ordered by timestamp ascending. Address is expected in canonical
// checksummed form; it is used only for the dedup key.
func (s *Scorer) Score(address string, events []model.StreamEvent) Result {
	intervals := collectIntervals(groupByCollective(events), s.now().Unix())

	total := new(big.Int)
	var totalSeconds int64
	for _, iv := range intervals {
		total.Add(total, new(big.Int).Mul(iv.rate, big.NewInt(iv.elapsed)))
		totalSeconds += iv.elapsed
	}

	res := Result{
		Points:        toPoints(capTotal(total, totalSeconds)),
		TotalStreamed: total,
	}
	if len(events) > 0 {
		res.DedupKey = fmt.Sprintf("%s_%d", address, events[len(events)-1].Timestamp)
	}
	return res
}

// groupByCollective splits events per collective, preserving their order.
func groupByCollective(events []model.StreamEvent) map[string][]model.StreamEvent {
	groups := make(map[string][]model.StreamEvent)
	for _, ev := range events {
		groups[ev.CollectiveID] = append(groups[ev.CollectiveID], ev)
	}
	return groups
}

// collectIntervals derives (rate, elapsed) pairs per collective. Every event
// after the group's first yields the window back to its predecessor; a group
// whose last event still has a positive flow rate yields one open interval
// up to now. Non-positive rates or windows are revocations and no-ops and
// are dropped.
func collectIntervals(groups map[string][]model.StreamEvent, now int64) []interval {
	var out []interval
	for _, group := range groups {
		for i := 1; i < len(group); i++ {
			elapsed := group[i].Timestamp - group[i-1].Timestamp
			if elapsed <= 0 {
				continue
			}
			delta := new(big.Int).Sub(group[i].Contribution, group[i].PreviousContribution)
			rate := delta.Quo(delta, big.NewInt(elapsed))
			if rate.Sign() <= 0 {
				continue
			}
			out = append(out, interval{rate: rate, elapsed: elapsed})
		}

		last := group[len(group)-1]
		if last.FlowRate != nil && last.FlowRate.Sign() > 0 {
			if elapsed := now - last.Timestamp; elapsed > 0 {
				out = append(out, interval{rate: new(big.Int).Set(last.FlowRate), elapsed: elapsed})
			}
		}
	}
	return out
}

// capTotal clamps the streamed total so that the average rate over the
// observed seconds never exceeds maxRate.
func capTotal(total *big.Int, totalSeconds int64) *big.Int {
	if totalSeconds <= 0 {
		return new(big.Int)
	}
	avgRate := new(big.Int).Quo(total, big.NewInt(totalSeconds))
	if avgRate.Cmp(maxRate) > 0 {
		return new(big.Int).Mul(maxRate, big.NewInt(totalSeconds))
	}
	return new(big.Int).Set(total)
}

// toPoints applies the concave transform round(sqrt(total / 1e18)). Floating
// point enters only after the base-unit division, when the magnitude is
// safely within double precision.
func toPoints(total *big.Int) int64 {
	whole := new(big.Int).Quo(total, tokenBase)
	f, _ := new(big.Float).SetInt(whole).Float64()
	return int64(math.Round(math.Sqrt(f)))
}
