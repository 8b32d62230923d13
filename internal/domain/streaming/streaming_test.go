package streaming_test

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/goodpoints/walletpoints/internal/domain/model"
	streaming "github.com/goodpoints/walletpoints/internal/domain/streaming"
	. "github.com/smartystreets/goconvey/convey"
)

const donor = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"

var tokenBase = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// maxRate mirrors the scorer's cap: 73,000 tokens per 86,400 seconds.
func maxRate() *big.Int {
	return new(big.Int).Quo(
		new(big.Int).Mul(big.NewInt(73_000), tokenBase),
		big.NewInt(86_400),
	)
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), tokenBase)
}

func fixedClock(unix int64) streaming.Option {
	return streaming.WithClock(func() time.Time { return time.Unix(unix, 0) })
}

func TestScore_NoEvents(t *testing.T) {
	Convey("Given a wallet with no stream events", t, func() {
		scorer := streaming.NewScorer()

		Convey("When scored", func() {
			res := scorer.Score(donor, nil)

			Convey("Then points are zero and no dedup key is produced", func() {
				So(res.Points, ShouldEqual, 0)
				So(res.DedupKey, ShouldBeEmpty)
				So(res.TotalStreamed.Sign(), ShouldEqual, 0)
			})
		})
	})
}

func TestScore_SettledIntervals(t *testing.T) {
	Convey("Given two flow updates settling 100 tokens over 1000 seconds", t, func() {
		now := int64(10_000)
		scorer := streaming.NewScorer(fixedClock(now))
		events := []model.StreamEvent{
			{
				Timestamp:            1_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            2_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         tokens(100),
				FlowRate:             big.NewInt(0), // stream closed
			},
		}

		Convey("When scored", func() {
			res := scorer.Score(donor, events)

			Convey("Then points equal round(sqrt(100))", func() {
				So(res.Points, ShouldEqual, 10)
			})

			Convey("And the dedup key carries the last event timestamp", func() {
				So(res.DedupKey, ShouldEqual, donor+"_2000")
			})
		})
	})
}

func TestScore_OpenInterval(t *testing.T) {
	Convey("Given a single still-active stream", t, func() {
		const elapsed = int64(3_600)
		now := int64(100_000)
		rate := new(big.Int).Quo(tokens(144), big.NewInt(3_600)) // 144 tokens over the hour
		scorer := streaming.NewScorer(fixedClock(now))
		events := []model.StreamEvent{
			{
				Timestamp:            now - elapsed,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             rate,
			},
		}

		Convey("When scored", func() {
			res := scorer.Score(donor, events)

			Convey("Then the open interval accrues at the last flow rate", func() {
				So(res.Points, ShouldEqual, 12) // sqrt(144)
			})
		})
	})
}

func TestScore_RevocationsDropped(t *testing.T) {
	Convey("Given a flow update that revokes contribution", t, func() {
		scorer := streaming.NewScorer(fixedClock(10_000))
		events := []model.StreamEvent{
			{
				Timestamp:            1_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         tokens(50),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            2_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: tokens(50),
				Contribution:         tokens(10), // decreased
				FlowRate:             big.NewInt(0),
			},
		}

		Convey("When scored", func() {
			res := scorer.Score(donor, events)

			Convey("Then the non-positive window contributes nothing", func() {
				So(res.Points, ShouldEqual, 0)
			})
		})
	})
}

func TestScore_AntiGamingCap(t *testing.T) {
	Convey("Given a stream sustained at twice the maximum rate", t, func() {
		const elapsed = int64(86_400)
		now := int64(1_000_000)
		doubled := new(big.Int).Mul(maxRate(), big.NewInt(2))
		scorer := streaming.NewScorer(fixedClock(now))
		events := []model.StreamEvent{
			{
				Timestamp:            now - elapsed,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             doubled,
			},
		}

		Convey("When scored", func() {
			res := scorer.Score(donor, events)

			Convey("Then the total is clamped to maxRate * elapsed", func() {
				capped := new(big.Int).Mul(maxRate(), big.NewInt(elapsed))
				expected := int64(math.Round(math.Sqrt(bigToFloat(new(big.Int).Quo(capped, tokenBase)))))
				So(res.Points, ShouldEqual, expected)
			})

			Convey("And the capped points are strictly below the uncapped value", func() {
				uncapped := new(big.Int).Mul(doubled, big.NewInt(elapsed))
				uncappedPoints := int64(math.Round(math.Sqrt(bigToFloat(new(big.Int).Quo(uncapped, tokenBase)))))
				So(res.Points, ShouldBeLessThan, uncappedPoints)
			})

			Convey("And the raw total remains uncapped", func() {
				So(res.TotalStreamed.Cmp(new(big.Int).Mul(doubled, big.NewInt(elapsed))), ShouldEqual, 0)
			})
		})
	})
}

func TestScore_Monotonicity(t *testing.T) {
	Convey("Given a base event sequence and a strict superset of it", t, func() {
		now := int64(100_000)
		scorer := streaming.NewScorer(fixedClock(now))
		base := []model.StreamEvent{
			{
				Timestamp:            1_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            5_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         tokens(16),
				FlowRate:             big.NewInt(0),
			},
		}
		superset := append(append([]model.StreamEvent{}, base...), model.StreamEvent{
			Timestamp:            9_000,
			CollectiveID:         "collective-a",
			IsFlowUpdate:         true,
			PreviousFlowRate:     big.NewInt(0),
			PreviousContribution: tokens(16),
			Contribution:         tokens(48),
			FlowRate:             big.NewInt(0),
		})

		Convey("When both are scored", func() {
			basePoints := scorer.Score(donor, base).Points
			morePoints := scorer.Score(donor, superset).Points

			Convey("Then more accrued streaming never lowers the points", func() {
				So(morePoints, ShouldBeGreaterThanOrEqualTo, basePoints)
			})
		})
	})
}

func TestScore_MultipleCollectives(t *testing.T) {
	Convey("Given settled streams in two collectives", t, func() {
		scorer := streaming.NewScorer(fixedClock(50_000))
		events := []model.StreamEvent{
			{
				Timestamp:            1_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            2_000,
				CollectiveID:         "collective-a",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         tokens(100),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            1_500,
				CollectiveID:         "collective-b",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         big.NewInt(0),
				FlowRate:             big.NewInt(0),
			},
			{
				Timestamp:            2_500,
				CollectiveID:         "collective-b",
				IsFlowUpdate:         true,
				PreviousFlowRate:     big.NewInt(0),
				PreviousContribution: big.NewInt(0),
				Contribution:         tokens(44),
				FlowRate:             big.NewInt(0),
			},
		}

		Convey("When scored", func() {
			res := scorer.Score(donor, events)

			Convey("Then totals flatten across collectives", func() {
				So(res.Points, ShouldEqual, 12) // round(sqrt(144))
			})
		})
	})
}

func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
