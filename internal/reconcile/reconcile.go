package reconcile

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-tagger/internal/batch"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/reply"
)

// ErrMismatch matches every *MismatchError.
var ErrMismatch = errors.New("result count does not match window")

// MismatchError reports a window whose reply did not yield one result per card.
type MismatchError struct {
	Task     domain.TaskKind
	Deck     string
	Window   int
	Expected int
	Actual   int
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s window %d of deck %q: expected %d results, got %d",
		ErrMismatch, e.Task, e.Window, e.Deck, e.Expected, e.Actual)
}

// Is lets errors.Is(err, ErrMismatch) match.
func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }

// Apply unions results[i] into the tags of window.Cards[i] and returns the
// number of cards updated. On a count mismatch it returns a *MismatchError
// and leaves every card unchanged. Applying the same results again has no
// further effect on the tag sets.
func Apply(window *batch.Window, results reply.Results) (int, error) {
	if len(results) != len(window.Cards) {
		return 0, &MismatchError{
			Task:     window.Task,
			Deck:     window.Deck,
			Window:   window.Index,
			Expected: len(window.Cards),
			Actual:   len(results),
		}
	}

	for i, card := range window.Cards {
		card.AddTags(results[i]...)
	}
	return len(window.Cards), nil
}
