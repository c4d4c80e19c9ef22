package ronin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultHost is the public ronin.rest API.
const DefaultHost = "https://ronin.rest"

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
)

// Client talks to a ronin.rest compatible REST API.
type Client struct {
	host    string
	apiKey  string
	retries int
	http    *http.Client
	logs    *zap.SugaredLogger
	tracer  trace.Tracer

	// newBackOff builds the retry schedule for one request; overridable in tests.
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as the X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logs = l
		}
	}
}

// NewClient creates a Client for host. An empty host means DefaultHost.
func NewClient(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:       strings.TrimRight(host, "/"),
		retries:    defaultRetries,
		http:       &http.Client{Timeout: defaultTimeout},
		logs:       zap.NewNop().Sugar(),
		tracer:     otel.Tracer("github.com/Mohsinsiddi/ronexport/internal/ronin"),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the base URL requests are sent to.
func (c *Client) Host() string { return c.host }

// ListSent returns page n (1-based) of transactions sent by address.
func (c *Client) ListSent(ctx context.Context, address string, page int) (*Page, error) {
	return c.listPage(ctx, "listSentTransactions", address, page)
}

// ListReceived returns page n (1-based) of transactions received by address.
func (c *Client) ListReceived(ctx context.Context, address string, page int) (*Page, error) {
	return c.listPage(ctx, "listReceivedTransactions", address, page)
}

// Transaction fetches sender, recipient and block number of a transaction.
func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	url := fmt.Sprintf("%s/ronin/getTransaction/%s", c.host, hash)
	body, err := c.get(ctx, "getTransaction", url)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, &DecodeError{Op: "getTransaction", URL: url, Err: err}
	}
	return &tx, nil
}

// DecodeTransaction returns the decoded method call of a transaction as raw JSON.
func (c *Client) DecodeTransaction(ctx context.Context, hash string) (json.RawMessage, error) {
	return c.getRaw(ctx, "decodeTransaction", fmt.Sprintf("%s/ronin/decodeTransaction/%s", c.host, hash))
}

// DecodeReceipt returns the decoded receipt (events) of a transaction as raw JSON.
func (c *Client) DecodeReceipt(ctx context.Context, hash string) (json.RawMessage, error) {
	return c.getRaw(ctx, "decodeTransactionReceipt", fmt.Sprintf("%s/ronin/decodeTransactionReceipt/%s", c.host, hash))
}

func (c *Client) listPage(ctx context.Context, op, address string, page int) (*Page, error) {
	url := fmt.Sprintf("%s/archive/%s/%s?page=%d", c.host, op, address, page)
	body, err := c.get(ctx, op, url)
	if err != nil {
		return nil, err
	}

	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Op: op, URL: url, Err: err}
	}
	if len(env.Transactions) == 0 {
		return nil, &DecodeError{Op: op, URL: url, Err: errors.New(`missing "transactions" field`)}
	}

	p := &Page{}
	if err := json.Unmarshal(env.Transactions, &p.Transactions); err != nil {
		return nil, &DecodeError{Op: op, URL: url, Err: err}
	}
	for _, h := range p.Transactions {
		if !isHash(h) {
			return nil, &DecodeError{Op: op, URL: url, Err: fmt.Errorf("malformed transaction hash %q", h)}
		}
	}
	return p, nil
}

// getRaw fetches url and checks the body is a single JSON value.
func (c *Client) getRaw(ctx context.Context, op, url string) (json.RawMessage, error) {
	body, err := c.get(ctx, op, url)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, &DecodeError{Op: op, URL: url, Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(body), nil
}

// get performs a GET with naive exponential backoff on transient failures
// and returns the response body.
func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "ronin."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url)),
	)
	defer span.End()

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.retries)), ctx)
	body, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		attempt++
		return c.fetch(ctx, op, url)
	}, policy, func(err error, wait time.Duration) {
		c.logs.Debugw("retrying request", "op", op, "url", url, "attempt", attempt, "wait", wait, "error", err)
	})
	span.SetAttributes(attribute.Int("ronin.attempts", attempt))
	if err != nil {
		var nerr *NetworkError
		if !errors.As(err, &nerr) {
			err = &NetworkError{Op: op, URL: url, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

// fetch performs a single attempt. Errors wrapped in backoff.Permanent are
// not retried.
func (c *Client) fetch(ctx context.Context, op, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(&NetworkError{Op: op, URL: url, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		nerr := &NetworkError{Op: op, URL: url, Err: err}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(nerr)
		}
		return nil, nerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &NetworkError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, backoff.Permanent(&NetworkError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))})
	}
	return body, nil
}

// isHash reports whether h is a 0x-prefixed 32-byte hex hash.
func isHash(h string) bool {
	if len(h) != 2+2*common.HashLength || !strings.HasPrefix(h, "0x") {
		return false
	}
	return strings.EqualFold(common.HexToHash(h).Hex(), h)
}
