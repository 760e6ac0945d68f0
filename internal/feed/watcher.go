// Package feed watches the SEC EDGAR company Atom feeds for new annual and
// quarterly reports and hands each new filing to a callback.
package feed

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/config"
	"github.com/signalrefinery/refinery/internal/infra"
	"github.com/signalrefinery/refinery/pkg/models"
	"github.com/signalrefinery/refinery/pkg/utils"
)

// DefaultBaseURL is EDGAR's company browse endpoint.
const DefaultBaseURL = "https://www.sec.gov/cgi-bin/browse-edgar"

// entriesPerFeed is how many recent filings EDGAR returns per query.
const entriesPerFeed = 40

// Entry is one filing announced on a company feed.
type Entry struct {
	ID      string
	Symbol  string
	Form    models.FilingType
	Title   string
	Link    string
	Summary string
	Updated time.Time
}

// Handler is called once per newly seen entry.
type Handler func(ctx context.Context, e Entry)

// Watcher polls one Atom feed per symbol and form. The ids it has seen are
// kept in memory only; the first poll of a feed records its entries without
// reporting them.
type Watcher struct {
	baseURL   string
	userAgent string
	symbols   []string
	interval  time.Duration
	doer      infra.Doer
	parser    *gofeed.Parser
	onNew     Handler
	log       *zap.Logger

	mu     sync.Mutex
	seen   map[string]map[string]struct{} // feed key → entry ids
	primed map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDoer replaces the HTTP client. The rate limit still applies.
func WithDoer(d infra.Doer) Option {
	return func(w *Watcher) { w.doer = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New returns a watcher for cfg.Symbols calling onNew for every new filing.
func New(cfg config.FeedConfig, onNew Handler, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, eris.New("feed: a User-Agent with a contact address is required by SEC EDGAR")
	}
	w := &Watcher{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		interval:  cfg.Interval,
		doer:      infra.NewHTTPClient(30 * time.Second),
		parser:    gofeed.NewParser(),
		onNew:     onNew,
		log:       zap.NewNop(),
		seen:      make(map[string]map[string]struct{}),
		primed:    make(map[string]bool),
	}
	if w.baseURL == "" {
		w.baseURL = DefaultBaseURL
	}
	if w.interval <= 0 {
		w.interval = 10 * time.Minute
	}
	for _, s := range cfg.Symbols {
		sym, err := utils.ValidateSymbol(s)
		if err != nil {
			return nil, eris.Wrap(err, "feed symbols")
		}
		w.symbols = append(w.symbols, sym)
	}
	for _, opt := range opts {
		opt(w)
	}
	w.doer = infra.RateLimited(w.doer, infra.NewLimiter(cfg.RatePerSecond))
	return w, nil
}

// Symbols returns the watched symbols.
func (w *Watcher) Symbols() []string {
	return append([]string(nil), w.symbols...)
}

// FeedURL returns the Atom feed URL for symbol and form.
func (w *Watcher) FeedURL(symbol string, form models.FilingType) string {
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", symbol)
	q.Set("type", string(form))
	q.Set("dateb", "")
	q.Set("owner", "include")
	q.Set("count", strconv.Itoa(entriesPerFeed))
	q.Set("output", "atom")
	return w.baseURL + "?" + q.Encode()
}

// Run polls immediately and then every interval until ctx is cancelled.
// A failed poll is logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("feed watcher started",
		zap.Strings("symbols", w.symbols),
		zap.Duration("interval", w.interval))

	w.pollAndLog(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.pollAndLog(ctx)
		}
	}
}

func (w *Watcher) pollAndLog(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
		w.log.Warn("feed poll failed", zap.Error(err))
	}
}

// Poll checks every feed once and returns the new entries in feed order.
// onNew is called for each of them. Feeds that fail are skipped; the first
// failure is returned after the others were polled.
func (w *Watcher) Poll(ctx context.Context) ([]Entry, error) {
	var (
		fresh    []Entry
		firstErr error
	)
	for _, sym := range w.symbols {
		for _, form := range models.FilingTypes() {
			entries, err := w.fetch(ctx, sym, form)
			if err != nil {
				if ctx.Err() != nil {
					return fresh, ctx.Err()
				}
				w.log.Debug("feed fetch failed", zap.String("symbol", sym), zap.String("form", string(form)), zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			fresh = append(fresh, w.record(feedKey(sym, form), entries)...)
		}
	}
	for _, e := range fresh {
		w.log.Info("new filing",
			zap.String("symbol", e.Symbol),
			zap.String("form", string(e.Form)),
			zap.String("title", e.Title))
		if w.onNew != nil {
			w.onNew(ctx, e)
		}
	}
	return fresh, firstErr
}

func feedKey(symbol string, form models.FilingType) string {
	return symbol + "/" + string(form)
}

// record marks entries as seen and returns the ones that were not. Nothing
// is returned for a feed's first poll.
func (w *Watcher) record(key string, entries []Entry) []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := w.seen[key]
	if seen == nil {
		seen = make(map[string]struct{}, len(entries))
		w.seen[key] = seen
	}
	var fresh []Entry
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		if w.primed[key] {
			fresh = append(fresh, e)
		}
	}
	w.primed[key] = true
	return fresh
}

func (w *Watcher) fetch(ctx context.Context, symbol string, form models.FilingType) ([]Entry, error) {
	endpoint := w.FeedURL(symbol, form)
	data, status, err := infra.DoGet(ctx, w.doer, endpoint, map[string]string{
		"User-Agent": w.userAgent,
		"Accept":     "application/atom+xml",
	})
	if err != nil {
		return nil, err
	}
	if !infra.IsSuccess(status) {
		return nil, eris.Wrapf(&infra.StatusError{Code: status}, "feed %s", endpoint)
	}

	parsed, err := w.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "parse feed for %s %s", symbol, form)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if itemForm(item) != form {
			continue
		}
		e := Entry{
			ID:      item.GUID,
			Symbol:  symbol,
			Form:    form,
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Summary: cleanHTML(item.Description),
		}
		if e.ID == "" {
			e.ID = item.Link
		}
		if item.UpdatedParsed != nil {
			e.Updated = *item.UpdatedParsed
		} else if item.PublishedParsed != nil {
			e.Updated = *item.PublishedParsed
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// itemForm reads the form type from the entry category, falling back to the
// "10-K - Company (CIK)" title prefix. Amendments do not match.
func itemForm(item *gofeed.Item) models.FilingType {
	candidates := append([]string(nil), item.Categories...)
	if head, _, ok := strings.Cut(item.Title, " - "); ok {
		candidates = append(candidates, head)
	}
	for _, c := range candidates {
		if f, err := models.ParseFilingType(strings.TrimSpace(c)); err == nil {
			return f
		}
	}
	return ""
}

// cleanHTML strips markup from an entry summary.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
