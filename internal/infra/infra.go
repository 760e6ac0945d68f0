// Package infra provides shared infrastructure used across the application:
// HTTP client construction, rate limiting, and a request helper.
package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 10 << 20

// ErrResponseTooLarge is returned for a body longer than MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response too large")

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with the given overall request timeout.
// A non-positive timeout leaves the client unbounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{Timeout: timeout}
}

// --- Rate limiter ---

// NewLimiter returns a token-bucket limiter allowing perSecond requests with
// a burst of one. A non-positive rate disables limiting.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// RateLimited wraps a Doer so every request first waits on the limiter.
func RateLimited(d Doer, l *rate.Limiter) Doer {
	if l == nil {
		return d
	}
	return &limitedDoer{next: d, limiter: l}
}

type limitedDoer struct {
	next    Doer
	limiter *rate.Limiter
}

func (l *limitedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := l.limiter.Wait(req.Context()); err != nil {
		return nil, eris.Wrap(err, "rate limiter")
	}
	return l.next.Do(req)
}

// --- HTTP helpers ---

// Do sends one request and returns the response body and status code.
// A non-2xx status is not an error here; callers decide what it means.
// The returned error is non-nil only when no response was received or the
// body could not be read in full; an oversized body yields ErrResponseTooLarge.
func Do(ctx context.Context, d Doer, method, url string, body io.Reader, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "build %s %s", method, url)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.Do(req)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrapf(err, "read %s %s", method, url)
	}
	if len(data) > MaxResponseBytes {
		return nil, resp.StatusCode, eris.Wrapf(ErrResponseTooLarge, "%s %s: body over %d bytes", method, url, MaxResponseBytes)
	}
	return data, resp.StatusCode, nil
}

// DoGet is Do for a GET without a body.
func DoGet(ctx context.Context, d Doer, url string, headers map[string]string) ([]byte, int, error) {
	return Do(ctx, d, http.MethodGet, url, nil, headers)
}

// StatusError describes a non-2xx status for callers that treat it as failure.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
