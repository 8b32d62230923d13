// Package ranking proxies the best-effort top-wallet lookup. Failures are
// never propagated; they degrade to a sentinel value so ranking can never
// block scoring.
package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goodpoints/walletpoints/pkg/logger"
	"github.com/goodpoints/walletpoints/pkg/metrics"
)

const defaultHTTPTimeout = 10 * time.Second

// NotOK is the sentinel returned whenever the ranking backend fails.
var NotOK = json.RawMessage(`{"ok":0}`)

// Client posts ranking lookups to the backend, forwarding the caller's IP.
type Client struct {
	url     string
	chainID int64
	httpc   *http.Client
	log     logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

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

// New creates a ranking client for the given backend URL and chain.
func New(url string, chainID int64, opts ...Option) *Client {
	c := &Client{
		url:     url,
		chainID: chainID,
		httpc:   &http.Client{Timeout: defaultHTTPTimeout},
		log:     logger.Named("ranking"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupRequest struct {
	ChainID int64  `json:"chainId"`
	Account string `json:"account"`
}

// TopWallet returns the backend's ranking payload for account, or NotOK on
// any failure.
func (c *Client) TopWallet(ctx context.Context, account, clientIP string) json.RawMessage {
	result, err := c.lookup(ctx, account, clientIP)
	if err != nil {
		metrics.RecordRankingFailure()
		c.log.Warn(ctx, "top wallet lookup failed",
			logger.String("account", account),
			logger.Error(err),
		)
		return NotOK
	}
	return result
}

func (c *Client) lookup(ctx context.Context, account, clientIP string) (json.RawMessage, error) {
	payload, err := json.Marshal(lookupRequest{ChainID: c.chainID, Account: account})
	if err != nil {
		return nil, fmt.Errorf("marshal lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ranking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ranking status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("ranking returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
