// Package client is the data access layer for the filings backend. Every
// endpoint returns a Result envelope; transport failures, non-2xx responses
// and malformed payloads all come back as typed errors, never panics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/infra"
	"github.com/signalrefinery/refinery/pkg/models"
)

// DefaultTimeout bounds a backend call when no client is supplied.
const DefaultTimeout = 30 * time.Second

// API is the set of backend operations the UI orchestrators depend on.
type API interface {
	FetchFilings(ctx context.Context, symbol string) Result[models.FetchSummary]
	ExtractFinancials(ctx context.Context, symbol string) Result[models.ExtractionSummary]
	GetFinancials(ctx context.Context, symbol string, st models.StatementType) Result[models.FinancialsResponse]
	GetRevenue(ctx context.Context, symbol string, ft models.FilingType) Result[models.RevenueResponse]
	Health(ctx context.Context) Result[models.HealthResponse]
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	doer    infra.Doer
	log     *zap.Logger
}

var _ API = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for requests.
func WithHTTPClient(d infra.Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithTimeout replaces the transport with one bounded by timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.doer = infra.NewHTTPClient(timeout)
	}
}

// WithLogger sets the logger for transport failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    infra.NewHTTPClient(DefaultTimeout),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type validator interface {
	Validate() error
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
}

// call performs req and decodes a 2xx body into T, validating it when T
// knows how.
func call[T any](ctx context.Context, c *Client, req request) Result[T] {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	headers := map[string]string{"Accept": "application/json"}
	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return Fail[T](&TransportError{Method: req.method, URL: endpoint, Err: err})
		}
		body = bytes.NewReader(buf)
		headers["Content-Type"] = "application/json"
	}

	data, status, err := infra.Do(ctx, c.doer, req.method, endpoint, body, headers)
	if errors.Is(err, infra.ErrResponseTooLarge) {
		c.log.Warn("backend response too large",
			zap.String("method", req.method),
			zap.String("url", endpoint),
			zap.Int("status", status))
		return Fail[T](&DecodeError{Endpoint: req.path, Err: infra.ErrResponseTooLarge})
	}
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("method", req.method),
			zap.String("url", endpoint),
			zap.Error(err))
		return Fail[T](&TransportError{Method: req.method, URL: endpoint, Err: eris.Cause(err)})
	}

	if !infra.IsSuccess(status) {
		var payload models.ErrorPayload
		_ = json.Unmarshal(data, &payload)
		serr := &ServerError{StatusCode: status, Detail: payload.DetailText()}
		c.log.Debug("backend returned error",
			zap.String("method", req.method),
			zap.String("url", endpoint),
			zap.Int("status", status),
			zap.String("detail", serr.Detail))
		return Fail[T](serr)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return Fail[T](&DecodeError{Endpoint: req.path, Err: err})
	}
	if val, ok := any(v).(validator); ok {
		if err := val.Validate(); err != nil {
			return Fail[T](&DecodeError{Endpoint: req.path, Err: err})
		}
	}
	return OK(v)
}

func symbolPath(prefix, symbol string) string {
	return prefix + url.PathEscape(symbol)
}

// ── Filings & financials ──

// FetchFilings asks the backend to fetch and store the symbol's 10-K and
// 10-Q filings. POST /filings/{symbol}
func (c *Client) FetchFilings(ctx context.Context, symbol string) Result[models.FetchSummary] {
	return call[models.FetchSummary](ctx, c, request{
		method: http.MethodPost,
		path:   symbolPath("/filings/", symbol),
	})
}

// ExtractFinancials runs metric extraction over the stored filings.
// POST /financials/extract/{symbol}
func (c *Client) ExtractFinancials(ctx context.Context, symbol string) Result[models.ExtractionSummary] {
	return call[models.ExtractionSummary](ctx, c, request{
		method: http.MethodPost,
		path:   symbolPath("/financials/extract/", symbol),
	})
}

// GetFinancials reads the statements for one statement type.
// GET /financials/{symbol}?statement_type=...
func (c *Client) GetFinancials(ctx context.Context, symbol string, st models.StatementType) Result[models.FinancialsResponse] {
	q := url.Values{}
	if st != "" {
		q.Set("statement_type", string(st))
	}
	return call[models.FinancialsResponse](ctx, c, request{
		method: http.MethodGet,
		path:   symbolPath("/financials/", symbol),
		query:  q,
	})
}

// GetRevenue reads the revenue series. GET /revenue/{symbol}?filing_type=...
func (c *Client) GetRevenue(ctx context.Context, symbol string, ft models.FilingType) Result[models.RevenueResponse] {
	q := url.Values{}
	if ft != "" {
		q.Set("filing_type", string(ft))
	}
	return call[models.RevenueResponse](ctx, c, request{
		method: http.MethodGet,
		path:   symbolPath("/revenue/", symbol),
		query:  q,
	})
}

// Health probes GET /api/health.
func (c *Client) Health(ctx context.Context) Result[models.HealthResponse] {
	return call[models.HealthResponse](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/health",
	})
}

// ── Tickers ──

// ListTickers returns every tracked ticker. GET /tickers
func (c *Client) ListTickers(ctx context.Context) Result[[]models.Ticker] {
	res := call[[]models.Ticker](ctx, c, request{method: http.MethodGet, path: "/tickers"})
	if !res.Ok() {
		return res
	}
	for _, t := range res.Data {
		if err := t.Validate(); err != nil {
			return Fail[[]models.Ticker](&DecodeError{Endpoint: "/tickers", Err: err})
		}
	}
	return res
}

// AddTicker registers a ticker. POST /tickers
func (c *Client) AddTicker(ctx context.Context, t models.Ticker) Result[models.Ticker] {
	return call[models.Ticker](ctx, c, request{
		method: http.MethodPost,
		path:   "/tickers",
		body:   t,
	})
}

// AnalyzeTicker asks for a buy/hold signal. GET /tickers/{symbol}/analyze
// An unknown ticker succeeds with only Message set.
func (c *Client) AnalyzeTicker(ctx context.Context, symbol string) Result[models.TickerAnalysis] {
	return call[models.TickerAnalysis](ctx, c, request{
		method: http.MethodGet,
		path:   symbolPath("/tickers/", symbol) + "/analyze",
	})
}
