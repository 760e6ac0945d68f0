package ui

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/client"
	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/pkg/models"
	"github.com/signalrefinery/refinery/pkg/utils"
)

// ErrSuperseded is returned when a newer request of the same orchestrator
// was issued before this one resolved. Its response was discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// base is shared by every orchestrator: the session it renders into, its
// state tracker and the backend.
type base struct {
	api     client.API
	session *Session
	t       tracker
}

func newBase(name string, api client.API, s *Session) base {
	return base{api: api, session: s, t: tracker{name: name, log: s.log}}
}

// Phase returns the orchestrator's current state.
func (b *base) Phase() Phase {
	b.session.mu.Lock()
	defer b.session.mu.Unlock()
	return b.t.phase
}

// settle applies a response if seq is still the latest request. It returns
// ErrSuperseded when the response was dropped.
func (b *base) settle(panel string, seq uint64, err error, apply func(v *View, sel *Selection)) error {
	applied := false
	b.session.update([]string{panel}, func(v *View, sel *Selection) bool {
		if !b.t.current(seq) {
			return false
		}
		if err != nil {
			b.t.fire(Fail)
		} else {
			b.t.fire(Succeed)
		}
		apply(v, sel)
		applied = true
		return true
	})
	if !applied {
		return ErrSuperseded
	}
	return err
}

// finish is the unconditional cleanup step. It is deferred by every
// orchestrator so it runs however the result step ends.
func (b *base) finish(panel string, seq uint64, reset func(v *View)) {
	b.session.update([]string{panel}, func(v *View, _ *Selection) bool {
		if seq != b.t.seq {
			return false
		}
		b.t.fire(Cleanup)
		reset(v)
		return true
	})
}

// ════════════════════════════════════════════════════════════════════
// Filing fetch
// ════════════════════════════════════════════════════════════════════

// FilingOrchestrator runs the filing fetch: summary plus 10-K and 10-Q lists.
type FilingOrchestrator struct {
	base
}

// NewFilingOrchestrator returns a filing orchestrator rendering into s.
func NewFilingOrchestrator(api client.API, s *Session) *FilingOrchestrator {
	return &FilingOrchestrator{base: newBase("filings", api, s)}
}

// Submit fetches the filings of symbol. The previous summary and lists are
// cleared before the request starts; the result replaces all three at once.
func (o *FilingOrchestrator) Submit(ctx context.Context, symbol string) error {
	symbol = utils.NormalizeSymbol(symbol)
	var seq uint64
	o.session.update([]string{report.PanelFilings}, func(v *View, _ *Selection) bool {
		seq = o.t.begin()
		v.Filings = report.FilingSection{Input: symbol, Loading: true}
		return true
	})
	defer o.finish(report.PanelFilings, seq, func(v *View) {
		v.Filings.Loading = false
		v.Filings.Input = ""
	})

	sym, err := utils.ValidateSymbol(symbol)
	if err != nil {
		return o.settle(report.PanelFilings, seq, err, func(v *View, _ *Selection) {
			v.Filings.Error = report.ErrorText(err.Error())
		})
	}

	res := o.api.FetchFilings(ctx, sym)
	return o.settle(report.PanelFilings, seq, res.Err, func(v *View, _ *Selection) {
		if !res.Ok() {
			v.Filings.Error = report.ErrorText(res.Message())
			return
		}
		section := report.NewFilingSection(res.Data, o.session.format)
		section.Input, section.Loading = v.Filings.Input, v.Filings.Loading
		v.Filings = section
	})
}

// ════════════════════════════════════════════════════════════════════
// Statements and tabs
// ════════════════════════════════════════════════════════════════════

// StatementOrchestrator loads one statement type for a symbol into the
// financials table and handles tab activation.
type StatementOrchestrator struct {
	base
}

// NewStatementOrchestrator returns a statement orchestrator rendering into s.
func NewStatementOrchestrator(api client.API, s *Session) *StatementOrchestrator {
	return &StatementOrchestrator{base: newBase("statements", api, s)}
}

// Load fetches st for symbol and renders the table.
func (o *StatementOrchestrator) Load(ctx context.Context, symbol string, st models.StatementType) error {
	var seq uint64
	o.session.update([]string{report.PanelFinancials}, func(v *View, _ *Selection) bool {
		seq = o.t.begin()
		v.Financials.Symbol = symbol
		v.Financials.Error = ""
		v.Financials.Table = nil
		return true
	})
	defer o.finish(report.PanelFinancials, seq, func(*View) {})

	res := o.api.GetFinancials(ctx, symbol, st)
	return o.settle(report.PanelFinancials, seq, res.Err, func(v *View, _ *Selection) {
		if !res.Ok() {
			v.Financials.Error = report.ErrorText(res.Message())
			return
		}
		table := report.NewStatementTable(res.Data.Statements, st, o.session.format)
		v.Financials.Table = &table
	})
}

// SelectTab activates st. When a symbol is selected its statement is
// re-fetched; otherwise only the tabs change. It reports whether a fetch ran.
func (o *StatementOrchestrator) SelectTab(ctx context.Context, st models.StatementType) (bool, error) {
	if _, err := models.ParseStatementType(string(st)); err != nil {
		return false, err
	}
	var (
		symbol string
		fetch  bool
	)
	o.session.update([]string{report.PanelFinancials}, func(v *View, sel *Selection) bool {
		*sel, fetch = SelectTab(*sel, st)
		symbol = sel.Symbol
		v.Financials.Tabs = report.NewTabs(st)
		return true
	})
	if !fetch {
		return false, nil
	}
	return true, o.Load(ctx, symbol, st)
}

// ════════════════════════════════════════════════════════════════════
// Extraction
// ════════════════════════════════════════════════════════════════════

// ExtractionOrchestrator runs a financial extraction and then refreshes the
// statement table for the extracted symbol.
type ExtractionOrchestrator struct {
	base
	statements *StatementOrchestrator
}

// NewExtractionOrchestrator returns an extraction orchestrator that chains
// into statements on success.
func NewExtractionOrchestrator(api client.API, s *Session, statements *StatementOrchestrator) *ExtractionOrchestrator {
	return &ExtractionOrchestrator{base: newBase("extraction", api, s), statements: statements}
}

// Submit extracts symbol's financial metrics. On success the notice cites
// the added and total counts, the symbol becomes the selected one, and the
// active statement type is loaded.
func (o *ExtractionOrchestrator) Submit(ctx context.Context, symbol string) error {
	sym, st, err := o.extract(ctx, symbol)
	if err != nil {
		return err
	}
	return o.statements.Load(ctx, sym, st)
}

func (o *ExtractionOrchestrator) extract(ctx context.Context, symbol string) (string, models.StatementType, error) {
	symbol = utils.NormalizeSymbol(symbol)
	var seq uint64
	o.session.update([]string{report.PanelFinancials}, func(v *View, _ *Selection) bool {
		seq = o.t.begin()
		v.Financials.Input = symbol
		v.Financials.Loading = true
		v.Financials.Notice = ""
		v.Financials.Error = ""
		return true
	})
	defer o.finish(report.PanelFinancials, seq, func(v *View) {
		v.Financials.Loading = false
		v.Financials.Input = ""
	})

	sym, err := utils.ValidateSymbol(symbol)
	if err != nil {
		return "", "", o.settle(report.PanelFinancials, seq, err, func(v *View, _ *Selection) {
			v.Financials.Error = report.ErrorText(err.Error())
		})
	}

	var st models.StatementType
	res := o.api.ExtractFinancials(ctx, sym)
	err = o.settle(report.PanelFinancials, seq, res.Err, func(v *View, sel *Selection) {
		if !res.Ok() {
			v.Financials.Error = report.ErrorText(res.Message())
			return
		}
		v.Financials.Notice = report.ExtractionNotice(sym, res.Data)
		sel.Symbol = sym
		st = sel.Statement
	})
	return sym, st, err
}

// ════════════════════════════════════════════════════════════════════
// Revenue
// ════════════════════════════════════════════════════════════════════

// RevenueOrchestrator loads a revenue series into the chart panel.
type RevenueOrchestrator struct {
	base
}

// NewRevenueOrchestrator returns a revenue orchestrator rendering into s.
func NewRevenueOrchestrator(api client.API, s *Session) *RevenueOrchestrator {
	return &RevenueOrchestrator{base: newBase("revenue", api, s)}
}

// Submit fetches symbol's revenue for ft and replaces the chart. A failure
// is shown as text in place of the chart.
func (o *RevenueOrchestrator) Submit(ctx context.Context, symbol string, ft models.FilingType) error {
	symbol = utils.NormalizeSymbol(symbol)
	if ft == "" {
		ft = models.Form10Q
	}
	var seq uint64
	o.session.update([]string{report.PanelRevenue}, func(v *View, _ *Selection) bool {
		seq = o.t.begin()
		v.Revenue = report.RevenueSection{Input: symbol, Symbol: symbol, FilingType: ft, Loading: true}
		return true
	})
	defer o.finish(report.PanelRevenue, seq, func(v *View) {
		v.Revenue.Loading = false
		v.Revenue.Input = ""
	})

	sym, err := utils.ValidateSymbol(symbol)
	if err == nil {
		_, err = models.ParseFilingType(string(ft))
	}
	if err != nil {
		return o.settle(report.PanelRevenue, seq, err, func(v *View, _ *Selection) {
			v.Revenue.Error = report.ErrorText(err.Error())
		})
	}

	res := o.api.GetRevenue(ctx, sym, ft)
	return o.settle(report.PanelRevenue, seq, res.Err, func(v *View, _ *Selection) {
		if !res.Ok() {
			v.Revenue.Error = report.ErrorText(res.Message())
			return
		}
		chart := report.AdaptRevenue(sym, ft, res.Data.RevenueData)
		v.Revenue.Chart = &chart
	})
}

// ════════════════════════════════════════════════════════════════════
// Controller
// ════════════════════════════════════════════════════════════════════

// Options configures a Controller.
type Options struct {
	Format           report.Formatter
	DefaultStatement models.StatementType
	Logger           *zap.Logger
}

// Controller bundles one session with its orchestrators.
type Controller struct {
	Session    *Session
	Filings    *FilingOrchestrator
	Statements *StatementOrchestrator
	Extraction *ExtractionOrchestrator
	Revenue    *RevenueOrchestrator
}

// NewController returns a fresh session wired to api.
func NewController(api client.API, opts Options) *Controller {
	s := NewSession(opts.Format, opts.DefaultStatement, opts.Logger)
	statements := NewStatementOrchestrator(api, s)
	return &Controller{
		Session:    s,
		Filings:    NewFilingOrchestrator(api, s),
		Statements: statements,
		Extraction: NewExtractionOrchestrator(api, s, statements),
		Revenue:    NewRevenueOrchestrator(api, s),
	}
}
