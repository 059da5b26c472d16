package batch

import (
	"fmt"

	"github.com/phrazzld/scry-tagger/internal/domain"
)

// WindowState tracks a window through one request/response cycle.
type WindowState int

// Window lifecycle
const (
	// StateAccumulating: cards are being collected and the prompt built.
	StateAccumulating WindowState = iota
	// StatePrompted: the prompt has been submitted; stays here across
	// rate-limit retries.
	StatePrompted
	// StateParsed: the reply has been split into per-card results.
	StateParsed
	// StateReconciled: results were applied to the cards. Terminal.
	StateReconciled
	// StateParseMismatch: the result count did not match. Terminal.
	StateParseMismatch
)

// String implements fmt.Stringer.
func (s WindowState) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StatePrompted:
		return "prompted"
	case StateParsed:
		return "parsed"
	case StateReconciled:
		return "reconciled"
	case StateParseMismatch:
		return "parse_mismatch"
	default:
		return fmt.Sprintf("WindowState(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s WindowState) Terminal() bool {
	return s == StateReconciled || s == StateParseMismatch
}

var transitions = map[WindowState][]WindowState{
	StateAccumulating: {StatePrompted},
	StatePrompted:     {StateParsed},
	StateParsed:       {StateReconciled, StateParseMismatch},
}

// Window is a contiguous run of cards of one partition, prompted together
// for one task.
type Window struct {
	Deck   string
	Index  int
	Task   domain.TaskKind
	Cards  []*domain.Card
	Prompt string
	State  WindowState

	// Oversized is set when a single card alone exceeds the budget.
	Oversized bool
}

// Len returns the number of cards in the window.
func (w *Window) Len() int { return len(w.Cards) }

// Transition moves the window to next.
func (w *Window) Transition(next WindowState) error {
	for _, allowed := range transitions[w.State] {
		if allowed == next {
			w.State = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.State, next)
}

// String identifies the window in logs.
func (w *Window) String() string {
	return fmt.Sprintf("%s/%s#%d", w.Deck, w.Task, w.Index)
}
