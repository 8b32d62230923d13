// Package subgraph queries the indexed donation-stream subgraph for a
// donor's flow-update events.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goodpoints/walletpoints/internal/domain/model"
	"github.com/goodpoints/walletpoints/internal/domain/retry"
	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

const (
	defaultMaxAttempts = 3
	defaultRetryWait   = time.Second
	defaultHTTPTimeout = 15 * time.Second
)

// The subgraph indexes donor addresses lowercased.
const supportEventsQuery = `{
  supportEvents(where: {isFlowUpdate: true, donor: "%s"}, orderBy: timestamp, orderDirection: asc) {
    id
    timestamp
    collective { id }
    donor { id }
    isFlowUpdate
    previousFlowRate
    previousContribution
    contribution
    flowRate
  }
}`

// Client posts GraphQL queries to the subgraph endpoint.
type Client struct {
	url    string
	policy retry.Policy
	httpc  *http.Client
	log    logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the subgraph at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		policy: retry.Policy{MaxAttempts: defaultMaxAttempts, Wait: defaultRetryWait},
		httpc:  &http.Client{Timeout: defaultHTTPTimeout},
		log:    logger.Named("subgraph"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire shapes. Big integers arrive as strings; timestamps vary between
// string and number across subgraph deployments.
type supportEvent struct {
	ID        string      `json:"id"`
	Timestamp json.Number `json:"timestamp"`
	Collective struct {
		ID string `json:"id"`
	} `json:"collective"`
	Donor struct {
		ID string `json:"id"`
	} `json:"donor"`
	IsFlowUpdate         bool   `json:"isFlowUpdate"`
	PreviousFlowRate     string `json:"previousFlowRate"`
	PreviousContribution string `json:"previousContribution"`
	Contribution         string `json:"contribution"`
	FlowRate             string `json:"flowRate"`
}

type queryResponse struct {
	Data struct {
		SupportEvents []supportEvent `json:"supportEvents"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SupportEvents fetches all flow-update events where the donor is the given
// wallet, ordered by timestamp ascending, retrying transient failures.
func (c *Client) SupportEvents(ctx context.Context, donor common.Address) ([]model.StreamEvent, error) {
	metrics.RecordSubgraphQuery()

	handle := retry.Do(ctx, func(ctx context.Context) ([]model.StreamEvent, error) {
		return c.query(ctx, donor)
	}, c.policy)

	events, err := handle.Result(ctx)
	if err != nil {
		metrics.RecordSubgraphError()
		c.log.Error(ctx, "subgraph query failed",
			logger.String("donor", donor.Hex()),
			logger.String("url", c.url),
			logger.Error(err),
		)
		return nil, err
	}
	return events, nil
}

func (c *Client) query(ctx context.Context, donor common.Address) ([]model.StreamEvent, error) {
	q := fmt.Sprintf(supportEventsQuery, strings.ToLower(donor.Hex()))
	payload, err := json.Marshal(map[string]string{"query": q})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subgraph status %d", resp.StatusCode)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("subgraph error: %s", out.Errors[0].Message)
	}
	if out.Data.SupportEvents == nil {
		return nil, fmt.Errorf("%w: missing supportEvents", ErrBadShape)
	}

	events := make([]model.StreamEvent, 0, len(out.Data.SupportEvents))
	for _, ev := range out.Data.SupportEvents {
		converted, err := ev.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrBadShape, ev.ID, err)
		}
		events = append(events, converted)
	}
	return events, nil
}

func (ev supportEvent) toModel() (model.StreamEvent, error) {
	ts, err := ev.Timestamp.Int64()
	if err != nil {
		return model.StreamEvent{}, fmt.Errorf("timestamp %q: %w", ev.Timestamp, err)
	}
	out := model.StreamEvent{
		Timestamp:    ts,
		CollectiveID: ev.Collective.ID,
		IsFlowUpdate: ev.IsFlowUpdate,
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"previousFlowRate", ev.PreviousFlowRate, &out.PreviousFlowRate},
		{"previousContribution", ev.PreviousContribution, &out.PreviousContribution},
		{"contribution", ev.Contribution, &out.Contribution},
		{"flowRate", ev.FlowRate, &out.FlowRate},
	} {
		v, ok := new(big.Int).SetString(field.raw, 10)
		if !ok {
			return model.StreamEvent{}, fmt.Errorf("%s: not an integer: %q", field.name, field.raw)
		}
		*field.dst = v
	}
	return out, nil
}
