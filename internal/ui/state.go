// Package ui owns the presentation state: the per-action orchestrator state
// machines, the statement tab selection, and the Session that holds the view
// tree and publishes panel updates to whoever renders them.
package ui

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/pkg/models"
)

// Phase is the state of one orchestrator.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Event drives a Phase transition.
type Event int

const (
	Submit Event = iota
	Succeed
	Fail
	Cleanup
)

func (e Event) String() string {
	switch e {
	case Submit:
		return "submit"
	case Succeed:
		return "succeed"
	case Fail:
		return "fail"
	case Cleanup:
		return "cleanup"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// ErrInvalidTransition is returned by Transition for an event the phase does
// not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition is the orchestrator state machine:
//
//	Idle ──submit──▶ Loading ──succeed──▶ Succeeded ──cleanup──▶ Idle
//	                    │    ──fail─────▶ Failed    ──cleanup──▶ Idle
//
// A submit is accepted in every phase: a newer submission supersedes the
// outstanding one. Cleanup from Loading covers a result step that never
// completed.
func Transition(p Phase, e Event) (Phase, error) {
	switch e {
	case Submit:
		return Loading, nil
	case Succeed:
		if p == Loading {
			return Succeeded, nil
		}
	case Fail:
		if p == Loading {
			return Failed, nil
		}
	case Cleanup:
		if p != Idle {
			return Idle, nil
		}
	}
	return p, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, p)
}

// tracker is the sequence counter and phase of one orchestrator. It is only
// touched inside Session.update, so the session lock guards it.
type tracker struct {
	name  string
	seq   uint64
	phase Phase
	log   *zap.Logger
}

// begin issues the next request sequence number.
func (t *tracker) begin() uint64 {
	t.seq++
	t.fire(Submit)
	return t.seq
}

// current reports whether seq is the latest issued request. A stale response
// is logged and must be dropped by the caller.
func (t *tracker) current(seq uint64) bool {
	if seq == t.seq {
		return true
	}
	t.log.Debug("dropping stale response",
		zap.String("orchestrator", t.name),
		zap.Uint64("seq", seq),
		zap.Uint64("latest", t.seq))
	return false
}

func (t *tracker) fire(e Event) {
	next, err := Transition(t.phase, e)
	if err != nil {
		t.log.Warn("orchestrator state", zap.String("orchestrator", t.name), zap.Error(err))
		return
	}
	t.phase = next
}

// ════════════════════════════════════════════════════════════════════
// Statement tab selector
// ════════════════════════════════════════════════════════════════════

// Selection is the active statement selection: the symbol whose statements
// are shown and the active statement tab.
type Selection struct {
	Symbol    string
	Statement models.StatementType
}

// NewSelection starts with no symbol and the given tab, or the income
// statement when st is not a known statement type.
func NewSelection(st models.StatementType) Selection {
	if _, err := models.ParseStatementType(string(st)); err != nil {
		st = models.IncomeStatement
	}
	return Selection{Statement: st}
}

// SelectTab activates st. It reports whether the statement must be fetched,
// which is only the case when a symbol is selected.
func SelectTab(sel Selection, st models.StatementType) (Selection, bool) {
	sel.Statement = st
	return sel, sel.Symbol != ""
}
