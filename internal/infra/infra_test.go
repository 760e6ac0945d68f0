package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoReturnsBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "refinery test@example.com" {
			t.Errorf("User-Agent: got %q", r.Header.Get("User-Agent"))
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"missing"}`))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	headers := map[string]string{"User-Agent": "refinery test@example.com"}
	client := NewHTTPClient(5 * time.Second)

	body, status, err := DoGet(context.Background(), client, srv.URL, headers)
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	if status != http.StatusOK || string(body) != "ok" {
		t.Errorf("got %d %q, want 200 \"ok\"", status, body)
	}

	body, status, err = Do(context.Background(), client, http.MethodPost, srv.URL, strings.NewReader("{}"), headers)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if status != http.StatusNotFound || IsSuccess(status) {
		t.Errorf("status: got %d, want 404", status)
	}
	if !strings.Contains(string(body), "missing") {
		t.Errorf("body: got %q", body)
	}
}

func TestDoRejectsOversizedBody(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", MaxResponseBytes, false},
		{"over limit", MaxResponseBytes + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", tt.size)))
			}))
			defer srv.Close()

			body, status, err := DoGet(context.Background(), NewHTTPClient(5*time.Second), srv.URL, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrResponseTooLarge) {
					t.Fatalf("err: got %v, want ErrResponseTooLarge", err)
				}
				if body != nil {
					t.Errorf("body: got %d bytes, want none", len(body))
				}
				if status != http.StatusOK {
					t.Errorf("status: got %d, want 200", status)
				}
				return
			}
			if err != nil {
				t.Fatalf("DoGet: %v", err)
			}
			if len(body) != tt.size {
				t.Errorf("body: got %d bytes, want %d", len(body), tt.size)
			}
		})
	}
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, status, err := DoGet(context.Background(), NewHTTPClient(time.Second), url, nil)
	if err == nil {
		t.Fatal("expected transport error for a closed server")
	}
	if status != 0 {
		t.Errorf("status: got %d, want 0", status)
	}
}

func TestRateLimitedHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	limiter := NewLimiter(0.001)
	doer := RateLimited(NewHTTPClient(time.Second), limiter)

	if _, _, err := DoGet(context.Background(), doer, srv.URL, nil); err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := DoGet(ctx, doer, srv.URL, nil)
	if err == nil {
		t.Fatal("second request should fail waiting on the limiter")
	}
}

func TestNewLimiterUnlimited(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("request %d was throttled by an unlimited limiter", i)
		}
	}
}

func TestStatusError(t *testing.T) {
	var err error = &StatusError{Code: 503}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 503 {
		t.Fatalf("errors.As failed for %v", err)
	}
	if err.Error() != "HTTP 503: Service Unavailable" {
		t.Errorf("got %q", err.Error())
	}
}
