// Package model contains the domain types shared across scorers.
package model

import "math/big"

// StreamEvent is one observed change to a donation stream for a
// (donor, collective) pair, as reported by the subgraph. Events arrive
// ordered by timestamp ascending and are immutable once fetched.
type StreamEvent struct {
	Timestamp            int64
	CollectiveID         string
	IsFlowUpdate         bool
	PreviousFlowRate     *big.Int
	PreviousContribution *big.Int
	Contribution         *big.Int
	FlowRate             *big.Int
}
