// Package ledger is a client for the external points-tracking service.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goodpoints/walletpoints/pkg/logger"
)

const defaultHTTPTimeout = 10 * time.Second

// Client talks to the points ledger. It is read-only after construction and
// safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	systemID int
	httpc    *http.Client
	log      logger.Logger
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

// New creates a ledger client for the given point system.
func New(baseURL, apiKey string, systemID int, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		systemID: systemID,
		httpc:    &http.Client{Timeout: defaultHTTPTimeout},
		log:      logger.Named("ledger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pointsResponse is the read shape for recorded points.
type pointsResponse struct {
	Amount json.Number `json:"amount"`
}

// Points returns the recorded points for (account, kind).
func (c *Client) Points(ctx context.Context, account, kind string) (int64, error) {
	u := fmt.Sprintf("%s/points?account=%s&event=%s&pointSystemId=%d",
		c.baseURL, url.QueryEscape(account), url.QueryEscape(kind), c.systemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ledger read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ledger read status %d", resp.StatusCode)
	}

	var out pointsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode points: %w", err)
	}
	// The ledger reports whole points; tolerate a float-encoded value.
	n, err := out.Amount.Int64()
	if err != nil {
		f, ferr := out.Amount.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("parse points %q: %w", out.Amount, err)
		}
		n = int64(f)
	}
	return n, nil
}

// trackRequest is the write shape for a point delta.
type trackRequest struct {
	Event         string `json:"event"`
	Account       string `json:"account"`
	Points        int64  `json:"points"`
	UniqueID      string `json:"uniqueId"`
	PointSystemID int    `json:"pointSystemId"`
}

// Track submits a point delta for (account, kind) tagged with uniqueID.
// The ledger deduplicates by uniqueID, making replays idempotent.
func (c *Client) Track(ctx context.Context, kind, account string, points int64, uniqueID string) error {
	payload, err := json.Marshal(trackRequest{
		Event:         kind,
		Account:       account,
		Points:        points,
		UniqueID:      uniqueID,
		PointSystemID: c.systemID,
	})
	if err != nil {
		return fmt.Errorf("marshal track request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/track", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ledger write status %d", resp.StatusCode)
	}

	c.log.Debug(ctx, "ledger write acknowledged",
		logger.String("account", account),
		logger.String("kind", kind),
		logger.Int64("points", points),
	)
	return nil
}
