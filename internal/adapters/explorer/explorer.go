// Package explorer fetches event logs from a set of redundant
// Etherscan-style explorer mirrors serving the same chain.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goodpoints/walletpoints/internal/domain/retry"
	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

// Default fetch behaviour.
const (
	defaultMaxAttempts = 3
	defaultRetryWait   = 500 * time.Millisecond
	defaultPageSize    = 1000
	defaultHTTPTimeout = 15 * time.Second
)

// Log is one raw event-log record as returned by the explorer getLogs API.
// Numeric fields arrive hex encoded.
type Log struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TimeStamp       string   `json:"timeStamp"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
}

// Timestamp parses the log's block timestamp into Unix seconds. Mirrors
// disagree on encoding, so both hex and decimal are accepted.
func (l Log) Timestamp() (int64, error) {
	s := strings.TrimSpace(l.TimeStamp)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		v, err := strconv.ParseInt(rest, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("parse hex timestamp %q: %w", l.TimeStamp, err)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", l.TimeStamp, err)
	}
	return v, nil
}

// Query carries caller-supplied getLogs parameters. They are merged over the
// fixed defaults (module=logs, action=getLogs, sort=asc, page=1,
// offset=1000).
type Query struct {
	Address   string
	Topic0    string
	Topic1    string
	TopicOper string // topic0_1_opr
	FromBlock uint64
	ToBlock   uint64
}

// Client queries each mirror in order until one returns a well-formed log
// array, retrying the whole chain on total failure.
type Client struct {
	mirrors []string
	apiKey  string
	policy  retry.Policy
	httpc   *http.Client
	log     logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithAPIKey sets the explorer API key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithRetryPolicy overrides the retry policy around the mirror chain.
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

// New creates a client over the given mirror base URLs.
func New(mirrors []string, opts ...Option) *Client {
	c := &Client{
		mirrors: mirrors,
		policy:  retry.Policy{MaxAttempts: defaultMaxAttempts, Wait: defaultRetryWait},
		httpc:   &http.Client{Timeout: defaultHTTPTimeout},
		log:     logger.Named("explorer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logs fetches the logs matching q. Mirrors are tried strictly in order;
// the first well-formed response wins. If every mirror fails, the chain is
// retried per policy and the last mirror's error, annotated with its URL,
// is returned.
func (c *Client) Logs(ctx context.Context, q Query) ([]Log, error) {
	if len(c.mirrors) == 0 {
		return nil, ErrNoMirrors
	}
	metrics.RecordExplorerFetch()

	fns := make([]func(context.Context) ([]Log, error), 0, len(c.mirrors))
	for i, base := range c.mirrors {
		base := base
		failover := i > 0
		fns = append(fns, func(ctx context.Context) ([]Log, error) {
			if failover {
				metrics.RecordExplorerFailover()
			}
			logs, err := c.fetch(ctx, base, q)
			if err != nil {
				c.log.Warn(ctx, "mirror fetch failed",
					logger.String("url", base),
					logger.Error(err),
				)
				return nil, fmt.Errorf("%s: %w", base, err)
			}
			return logs, nil
		})
	}

	handle := retry.Do(ctx, func(ctx context.Context) ([]Log, error) {
		return retry.First(ctx, fns...)
	}, c.policy)

	logs, err := handle.Result(ctx)
	if err != nil {
		metrics.RecordExplorerError()
		return nil, err
	}
	return logs, nil
}

// resultEnvelope is the explorer response wrapper. On errors the result
// field holds a message string instead of an array.
type resultEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) fetch(ctx context.Context, base string, q Query) ([]Log, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse mirror url: %w", err)
	}

	vals := u.Query()
	vals.Set("module", "logs")
	vals.Set("action", "getLogs")
	vals.Set("sort", "asc")
	vals.Set("page", "1")
	vals.Set("offset", strconv.Itoa(defaultPageSize))
	if q.Address != "" {
		vals.Set("address", q.Address)
	}
	if q.Topic0 != "" {
		vals.Set("topic0", q.Topic0)
	}
	if q.Topic1 != "" {
		vals.Set("topic1", q.Topic1)
	}
	if q.TopicOper != "" {
		vals.Set("topic0_1_opr", q.TopicOper)
	}
	if q.ToBlock > 0 {
		vals.Set("fromBlock", strconv.FormatUint(q.FromBlock, 10))
		vals.Set("toBlock", strconv.FormatUint(q.ToBlock, 10))
	}
	if c.apiKey != "" {
		vals.Set("apikey", c.apiKey)
	}
	u.RawQuery = vals.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
	}

	// Only an array-shaped result counts as a valid response; error
	// envelopes carry a string here.
	var logs []Log
	if err := json.Unmarshal(env.Result, &logs); err != nil {
		return nil, fmt.Errorf("%w: status=%q message=%q", ErrBadShape, env.Status, env.Message)
	}
	return logs, nil
}
