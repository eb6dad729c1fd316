// Package rpc is the JSON-RPC boundary to a Solana node.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aretw0/solsim/pkg/domain"
)

// DefaultEndpoint is the RPC address of a local test validator.
const DefaultEndpoint = "http://127.0.0.1:8899"

// ErrNoValue is returned when a response carries no usable value.
var ErrNoValue = errors.New("rpc response has no value")

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int64
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client issues JSON-RPC calls over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	nextID   atomic.Int64
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for endpoint, DefaultEndpoint when empty.
func New(endpoint string, opts ...Option) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetTokenAccountBalance returns the UI amount held by a token account.
// An empty commitment means domain.DefaultCommitment.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account string, commitment domain.Commitment) (float64, error) {
	if account == "" {
		return 0, fmt.Errorf("token account is required")
	}
	if commitment == "" {
		commitment = domain.DefaultCommitment
	}

	result, err := c.call(ctx, "getTokenAccountBalance", account, map[string]any{"commitment": commitment})
	if err != nil {
		return 0, err
	}

	value := result.Get("value")
	if ui := value.Get("uiAmount"); ui.Type == gjson.Number {
		return ui.Float(), nil
	}
	// uiAmount is null on very large balances; uiAmountString is always set.
	if s := value.Get("uiAmountString"); s.Exists() {
		f, err := strconv.ParseFloat(s.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("parse uiAmountString %q: %w", s.String(), err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("getTokenAccountBalance %s: %w", account, ErrNoValue)
}

// GetSlot returns the current slot at the given commitment.
func (c *Client) GetSlot(ctx context.Context, commitment domain.Commitment) (uint64, error) {
	if commitment == "" {
		commitment = domain.DefaultCommitment
	}
	result, err := c.call(ctx, "getSlot", map[string]any{"commitment": commitment})
	if err != nil {
		return 0, err
	}
	if result.Type != gjson.Number {
		return 0, fmt.Errorf("getSlot: %w", ErrNoValue)
	}
	return result.Uint(), nil
}

// GetHealth returns nil when the node reports itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	result, err := c.call(ctx, "getHealth")
	if err != nil {
		return err
	}
	if result.String() != "ok" {
		return fmt.Errorf("node unhealthy: %s", result.Raw)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params ...any) (gjson.Result, error) {
	id := c.nextID.Add(1)
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}
	c.logger.Debug("rpc call", "method", method, "id", id, "status", res.StatusCode, "duration", time.Since(started))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%s request status %d: %s", method, res.StatusCode, strings.TrimSpace(string(payload)))
	}
	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, fmt.Errorf("decode %s response: invalid json", method)
	}
	if rpcErr := gjson.GetBytes(payload, "error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, &Error{
			Code:    rpcErr.Get("code").Int(),
			Message: rpcErr.Get("message").String(),
		})
	}
	return gjson.GetBytes(payload, "result"), nil
}
