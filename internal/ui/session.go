package ui

import (
	"sync"

	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/pkg/models"
)

// View is the UI tree: one section per panel.
type View struct {
	Filings    report.FilingSection
	Financials report.FinancialsSection
	Revenue    report.RevenueSection
	Health     report.HealthSection
}

// Page converts the view into a renderable page.
func (v View) Page(live bool) report.Page {
	return report.Page{
		Title:      report.DefaultTitle,
		Live:       live,
		Filings:    v.Filings,
		Financials: v.Financials,
		Revenue:    v.Revenue,
		Health:     v.Health,
	}
}

// Update is one publication: the panels that changed and the view they
// changed to. Panels listed together were changed by a single event.
type Update struct {
	Generation uint64
	Panels     []string
	View       View
}

// Subscriber receives every update of a session in generation order. It is
// called with the session locked, so it must not block or call back into the
// session.
type Subscriber func(Update)

// Session holds the view and the statement selection of one user. Every
// mutation goes through update, which applies it atomically and publishes
// the touched panels.
type Session struct {
	mu     sync.Mutex
	view   View
	sel    Selection
	gen    uint64
	format report.Formatter
	log    *zap.Logger

	subs   map[int]Subscriber
	nextID int
}

// NewSession returns a session with empty panels and the default tab active.
func NewSession(format report.Formatter, defaultStatement models.StatementType, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	sel := NewSelection(defaultStatement)
	return &Session{
		view: View{
			Financials: report.FinancialsSection{Tabs: report.NewTabs(sel.Statement)},
			Revenue:    report.RevenueSection{FilingType: models.Form10Q},
			Health:     report.HealthSection{Message: report.HealthChecking},
		},
		sel:    sel,
		format: format,
		log:    log,
		subs:   make(map[int]Subscriber),
	}
}

// Snapshot returns a copy of the current view, selection and generation.
func (s *Session) Snapshot() (View, Selection, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.sel, s.gen
}

// WithSnapshot runs fn with the session locked. Updates published after
// WithSnapshot returns reach subscribers after whatever fn enqueued. fn must
// not block or call back into the session.
func (s *Session) WithSnapshot(fn func(v View, gen uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.view, s.gen)
}

// Page renders the current view as a page model.
func (s *Session) Page(live bool) report.Page {
	v, _, _ := s.Snapshot()
	return v.Page(live)
}

// Selection returns the active statement selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Subscribe registers fn for every later update and returns a function that
// removes it.
func (s *Session) Subscribe(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetHealth replaces the health panel.
func (s *Session) SetHealth(h report.HealthSection) {
	s.update([]string{report.PanelHealth}, func(v *View, _ *Selection) bool {
		v.Health = h
		return true
	})
}

// update runs fn with the session locked. When fn returns true the
// generation advances and the panels are published; false leaves the
// session untouched.
func (s *Session) update(panels []string, fn func(v *View, sel *Selection) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, sel := s.view, s.sel
	if !fn(&next, &sel) {
		return
	}
	s.view, s.sel = next, sel
	s.gen++

	u := Update{Generation: s.gen, Panels: panels, View: s.view}
	for _, sub := range s.subs {
		sub(u)
	}
}
