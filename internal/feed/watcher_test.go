package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalrefinery/refinery/internal/config"
	"github.com/signalrefinery/refinery/pkg/models"
)

type atomEntry struct {
	id, form, title string
}

func atomFeed(entries []atomEntry) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>APPLE INC  (0000320193)</title>
<updated>2024-11-01T06:01:36-04:00</updated>
`)
	for _, e := range entries {
		fmt.Fprintf(&sb, `<entry>
<category label="form type" scheme="https://www.sec.gov/" term="%s"/>
<id>%s</id>
<link href="https://www.sec.gov/Archives/edgar/data/320193/%s-index.htm" rel="alternate" type="text/html"/>
<summary type="html"> &lt;b&gt;Filed:&lt;/b&gt; 2024-11-01 &lt;b&gt;AccNo:&lt;/b&gt; %s</summary>
<title>%s</title>
<updated>2024-11-01T06:01:36-04:00</updated>
</entry>
`, e.form, e.id, e.id, e.id, e.title)
	}
	sb.WriteString("</feed>")
	return sb.String()
}

// edgarStub serves per-form feeds whose entries the test can change.
type edgarStub struct {
	mu      sync.Mutex
	entries map[string][]atomEntry // form → entries
	agents  []string
}

func (s *edgarStub) set(form string, entries ...atomEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[form] = entries
}

func (s *edgarStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append(s.agents, r.Header.Get("User-Agent"))
	if r.URL.Query().Get("output") != "atom" || r.URL.Query().Get("action") != "getcompany" {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("CIK") == "MISSING" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml")
	fmt.Fprint(w, atomFeed(s.entries[r.URL.Query().Get("type")]))
}

func newWatcher(t *testing.T, stub *edgarStub, symbols []string, onNew Handler) *Watcher {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	w, err := New(config.FeedConfig{
		UserAgent: "Refinery Tests tests@example.com",
		BaseURL:   srv.URL + "/cgi-bin/browse-edgar",
		Symbols:   symbols,
		Interval:  time.Minute,
	}, onNew)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestPollPrimesThenReportsNewEntries(t *testing.T) {
	stub := &edgarStub{entries: map[string][]atomEntry{}}
	stub.set("10-K", atomEntry{"k1", "10-K", "10-K - APPLE INC (0000320193) (Filer)"})
	stub.set("10-Q", atomEntry{"q1", "10-Q", "10-Q - APPLE INC (0000320193) (Filer)"})

	var got []Entry
	w := newWatcher(t, stub, []string{"aapl"}, func(_ context.Context, e Entry) { got = append(got, e) })
	ctx := context.Background()

	fresh, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("first Poll: %v", err)
	}
	if len(fresh) != 0 || len(got) != 0 {
		t.Fatalf("first poll must only prime: got %d entries", len(fresh))
	}

	stub.set("10-Q",
		atomEntry{"q2", "10-Q", "10-Q - APPLE INC (0000320193) (Filer)"},
		atomEntry{"q1", "10-Q", "10-Q - APPLE INC (0000320193) (Filer)"},
		atomEntry{"qa", "10-Q/A", "10-Q/A - APPLE INC (0000320193) (Filer)"},
	)
	fresh, err = w.Poll(ctx)
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if len(fresh) != 1 || len(got) != 1 {
		t.Fatalf("second poll: got %d fresh, %d callbacks, want 1", len(fresh), len(got))
	}
	e := got[0]
	if e.ID != "q2" || e.Symbol != "AAPL" || e.Form != models.Form10Q {
		t.Errorf("entry: got %+v", e)
	}
	if e.Summary != "Filed: 2024-11-01 AccNo: q2" {
		t.Errorf("Summary: got %q", e.Summary)
	}
	if e.Updated.IsZero() {
		t.Error("Updated not parsed")
	}

	if fresh, _ = w.Poll(ctx); len(fresh) != 0 {
		t.Errorf("third poll repeated %d entries", len(fresh))
	}

	for _, ua := range stub.agents {
		if ua != "Refinery Tests tests@example.com" {
			t.Errorf("User-Agent: got %q", ua)
		}
	}
}

func TestPollContinuesPastFailingFeed(t *testing.T) {
	stub := &edgarStub{entries: map[string][]atomEntry{}}
	w := newWatcher(t, stub, []string{"MISSING", "MSFT"}, nil)

	_, err := w.Poll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("Poll error: got %v", err)
	}
	if len(stub.agents) != 4 {
		t.Errorf("requests: got %d, want 4 (2 symbols x 2 forms)", len(stub.agents))
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.FeedConfig
	}{
		{"missing user agent", config.FeedConfig{Symbols: []string{"AAPL"}}},
		{"bad symbol", config.FeedConfig{UserAgent: "x x@y.z", Symbols: []string{"AA PL"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFeedURL(t *testing.T) {
	w, err := New(config.FeedConfig{UserAgent: "x x@y.z"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := w.FeedURL("AAPL", models.Form10K)
	want := DefaultBaseURL + "?CIK=AAPL&action=getcompany&count=40&dateb=&output=atom&owner=include&type=10-K"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	stub := &edgarStub{entries: map[string][]atomEntry{}}
	w := newWatcher(t, stub, []string{"AAPL"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
