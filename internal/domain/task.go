package domain

import "fmt"

// TaskKind identifies one classification objective the pipeline can run.
// Each kind has its own prompt template and reply grammar.
type TaskKind string

// Supported task kinds
const (
	// TaskTagSuggestion asks the model for free-form topic tags per card.
	TaskTagSuggestion TaskKind = "tags"

	// TaskDefinition asks the model whether each card is a definition card.
	TaskDefinition TaskKind = "definition"
)

// DefinitionTag is the label applied to cards classified as definitions.
const DefinitionTag = "Definition"

// ParseTaskKind converts a configuration string into a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case TaskTagSuggestion, TaskDefinition:
		return TaskKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskKind, s)
	}
}

// String implements fmt.Stringer.
func (k TaskKind) String() string { return string(k) }
