// Package api serves the browser dashboard: the rendered page, the form
// actions that start orchestrators, and the websocket that pushes panel
// updates to each visitor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/client"
	"github.com/signalrefinery/refinery/internal/config"
	"github.com/signalrefinery/refinery/internal/feed"
	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/internal/ui"
	"github.com/signalrefinery/refinery/pkg/models"
	"github.com/signalrefinery/refinery/web"
)

const (
	// sessionIdle is how long a session without a websocket survives.
	sessionIdle  = time.Hour
	sweepEvery   = 10 * time.Minute
	shutdownWait = 15 * time.Second
)

// Server is the dashboard HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	backend  client.API
	log      *zap.Logger
	sessions *SessionStore
	wsHub    *WSHub
	feedCtl  *ui.Controller

	// jobs tracks orchestrator runs started by asynchronous form posts.
	jobs    conc.WaitGroup
	baseCtx context.Context
}

// NewServer creates a configured dashboard server talking to backend.
func NewServer(cfg *config.Config, backend client.API, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		backend: backend,
		log:     log,
		wsHub:   NewWSHub(log),
		baseCtx: context.Background(),
	}
	s.sessions = NewSessionStore(s.newController, s.wsHub, log)
	s.feedCtl = s.newController()
	s.router = s.buildRouter()
	return s
}

func (s *Server) newController() *ui.Controller {
	return ui.NewController(s.backend, ui.Options{
		Format:           report.Formatter{DateLayout: s.cfg.UI.DateLayout},
		DefaultStatement: models.StatementType(s.cfg.UI.DefaultStatement),
		Logger:           s.log,
	})
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Sessions returns the session store. It receives health probe results.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Start runs the websocket hub and the session sweeper until ctx ends.
// Orchestrators started by form posts run under ctx.
func (s *Server) Start(ctx context.Context) {
	s.baseCtx = ctx
	go s.wsHub.Run(ctx)
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sessions.Sweep(sessionIdle)
			}
		}
	}()
}

// Wait blocks until every orchestrator started by a form post finished.
func (s *Server) Wait() {
	if r := s.jobs.WaitAndRecover(); r != nil {
		s.log.Error("orchestrator panicked", zap.String("panic", r.String()))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	s.Wait()
	return err
}

// FilingNotice is the body of "filing" websocket messages. The totals are
// present once the backend fetch after the feed entry succeeded.
type FilingNotice struct {
	Symbol   string `json:"symbol"`
	Form     string `json:"form"`
	Title    string `json:"title"`
	Link     string `json:"link,omitempty"`
	Total10K *int   `json:"total_10k,omitempty"`
	Total10Q *int   `json:"total_10q,omitempty"`
}

// OnNewFiling is a feed handler: it asks the backend to fetch the symbol's
// filings and then tells every open dashboard.
func (s *Server) OnNewFiling(ctx context.Context, e feed.Entry) {
	notice := FilingNotice{
		Symbol: e.Symbol,
		Form:   string(e.Form),
		Title:  e.Title,
		Link:   e.Link,
	}
	if err := s.feedCtl.Filings.Submit(ctx, e.Symbol); err != nil {
		s.log.Warn("filing refresh failed", zap.String("symbol", e.Symbol), zap.Error(err))
	} else {
		view, _, _ := s.feedCtl.Session.Snapshot()
		if sum := view.Filings.Summary; sum != nil {
			total10K, total10Q := sum.Total10K, sum.Total10Q
			notice.Total10K, notice.Total10Q = &total10K, &total10Q
			s.log.Info("filings refreshed",
				zap.String("symbol", sum.Symbol),
				zap.Int("total_10k", sum.Total10K),
				zap.Int("total_10q", sum.Total10Q))
		}
	}
	s.wsHub.Broadcast(WSMessage{Type: "filing", Data: notice})
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// CORS, only for configured origins
	if opts, ok := corsOptions(s.cfg.Server.CORSOrigins); ok {
		r.Use(cors.Handler(opts))
	}

	// The websocket outlives any request timeout.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/", s.handleIndex)

		r.Route("/ui", func(r chi.Router) {
			r.Get("/panels", s.handlePanels)
			r.Post("/filings", s.handleFetchFilings)
			r.Post("/financials/extract", s.handleExtract)
			r.Post("/financials/tab/{statementType}", s.handleSelectTab)
			r.Post("/revenue", s.handleRevenue)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/settings", s.handleGetSettings)
		})
	})

	s.mountStatic(r, web.StaticFS())
	return r
}

// corsOptions allows cross-origin calls from origins. Session cookies are only
// accepted from origins listed by name, never through a wildcard.
func corsOptions(origins []string) (cors.Options, bool) {
	if len(origins) == 0 {
		return cors.Options{}, false
	}
	credentials := true
	for _, o := range origins {
		if strings.Contains(o, "*") {
			credentials = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}, true
}

// mountStatic serves the embedded stylesheet and websocket client.
func (s *Server) mountStatic(r chi.Router, static fs.FS) {
	fileServer := http.StripPrefix("/static/", http.FileServerFS(static))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

// requestLogger logs each request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ActionAccepted is returned for an asynchronous form post.
type ActionAccepted struct {
	Generation uint64 `json:"generation"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := report.RenderPage(w, sess.Controller.Session.Page(true)); err != nil {
		s.log.Error("render page", zap.Error(err))
	}
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(w, r)
	view, _, gen := sess.Controller.Session.Snapshot()
	panels, err := report.RenderPanels(view.Page(true))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PanelsPayload{Generation: gen, Panels: panels})
}

func (s *Server) handleFetchFilings(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(w, r)
	symbol := r.FormValue("symbol")
	s.runAction(w, r, sess, "filings", func(ctx context.Context) error {
		return sess.Controller.Filings.Submit(ctx, symbol)
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(w, r)
	symbol := r.FormValue("symbol")
	s.runAction(w, r, sess, "extract", func(ctx context.Context) error {
		return sess.Controller.Extraction.Submit(ctx, symbol)
	})
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	st, err := models.ParseStatementType(chi.URLParam(r, "statementType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.sessions.Get(w, r)
	s.runAction(w, r, sess, "tab", func(ctx context.Context) error {
		_, err := sess.Controller.Statements.SelectTab(ctx, st)
		return err
	})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(w, r)
	symbol := r.FormValue("symbol")
	ft := models.FilingType(r.FormValue("filing_type"))
	s.runAction(w, r, sess, "revenue", func(ctx context.Context) error {
		return sess.Controller.Revenue.Submit(ctx, symbol, ft)
	})
}

// runAction starts an orchestrator. Script-driven posts (Accept: JSON) get
// 202 immediately and receive the result over the websocket; plain form
// posts wait for the result and are redirected to the page.
func (s *Server) runAction(w http.ResponseWriter, r *http.Request, sess *DashboardSession, name string, action func(context.Context) error) {
	logResult := func(err error) {
		if err != nil && !errors.Is(err, ui.ErrSuperseded) {
			s.log.Debug("action failed", zap.String("action", name), zap.String("session", sess.ID), zap.Error(err))
		}
	}

	if wantsJSON(r) {
		ctx := s.baseCtx
		s.jobs.Go(func() { logResult(action(ctx)) })
		_, _, gen := sess.Controller.Session.Snapshot()
		writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Data: ActionAccepted{Generation: gen}})
		return
	}

	logResult(action(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
