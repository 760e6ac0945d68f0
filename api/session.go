package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/internal/ui"
)

// SessionCookie names the cookie carrying the dashboard session id.
const SessionCookie = "refinery_session"

// DashboardSession is one visitor's controller and its id.
type DashboardSession struct {
	ID         string
	Controller *ui.Controller

	lastSeen time.Time
	cancel   func()
}

// SessionStore keeps one ui.Controller per visitor, in memory only. Every
// session's panel updates are pushed to that session's websocket clients.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*DashboardSession
	health   report.HealthSection

	newController func() *ui.Controller
	hub           *WSHub
	log           *zap.Logger
	now           func() time.Time
}

// NewSessionStore returns a store building controllers with newController.
func NewSessionStore(newController func() *ui.Controller, hub *WSHub, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		sessions:      make(map[string]*DashboardSession),
		health:        report.HealthSection{Message: report.HealthChecking},
		newController: newController,
		hub:           hub,
		log:           log,
		now:           time.Now,
	}
}

// Get returns the request's session, creating it and setting the cookie
// when the request has none or an unknown one.
func (st *SessionStore) Get(w http.ResponseWriter, r *http.Request) *DashboardSession {
	sess, cookie := st.Resolve(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return sess
}

// Resolve returns the request's session. When it had to create one it also
// returns the cookie the client must store.
func (st *SessionStore) Resolve(r *http.Request) (*DashboardSession, *http.Cookie) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess := st.Lookup(c.Value); sess != nil {
			return sess, nil
		}
	}

	sess := st.create()
	return sess, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Lookup returns the session with id, or nil.
func (st *SessionStore) Lookup(id string) *DashboardSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess := st.sessions[id]
	if sess != nil {
		sess.lastSeen = st.now()
	}
	return sess
}

func (st *SessionStore) create() *DashboardSession {
	ctl := st.newController()
	sess := &DashboardSession{ID: uuid.NewString(), Controller: ctl}

	st.mu.Lock()
	health := st.health
	sess.lastSeen = st.now()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	ctl.Session.SetHealth(health)
	sess.cancel = ctl.Session.Subscribe(func(u ui.Update) {
		msg, err := panelsMessage(u.Generation, u.View, u.Panels)
		if err != nil {
			st.log.Error("render panels", zap.String("session", sess.ID), zap.Error(err))
			return
		}
		st.hub.Send(sess.ID, msg)
	})

	st.log.Debug("session created", zap.String("session", sess.ID))
	return sess
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SetHealth updates the health panel of every session and of sessions
// created later.
func (st *SessionStore) SetHealth(h report.HealthSection) {
	st.mu.Lock()
	st.health = h
	all := make([]*DashboardSession, 0, len(st.sessions))
	for _, sess := range st.sessions {
		all = append(all, sess)
	}
	st.mu.Unlock()

	for _, sess := range all {
		sess.Controller.Session.SetHealth(h)
	}
}

// Sweep drops sessions idle for longer than maxIdle that have no open
// websocket. It returns how many were dropped.
func (st *SessionStore) Sweep(maxIdle time.Duration) int {
	cutoff := st.now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := 0
	for id, sess := range st.sessions {
		if sess.lastSeen.After(cutoff) || st.hub.SessionClients(id) > 0 {
			continue
		}
		if sess.cancel != nil {
			sess.cancel()
		}
		delete(st.sessions, id)
		dropped++
	}
	if dropped > 0 {
		st.log.Debug("sessions expired", zap.Int("count", dropped))
	}
	return dropped
}

// panelsMessage renders the named panels of v, or all of them when names is
// empty, into a websocket message.
func panelsMessage(gen uint64, v ui.View, names []string) (WSMessage, error) {
	panels, err := report.RenderPanels(v.Page(true), names...)
	if err != nil {
		return WSMessage{}, err
	}
	return WSMessage{Type: "panels", Data: PanelsPayload{Generation: gen, Panels: panels}}, nil
}

// PanelsPayload is the body of GET /ui/panels and of "panels" websocket
// messages.
type PanelsPayload struct {
	Generation uint64            `json:"generation"`
	Panels     map[string]string `json:"panels"`
}
