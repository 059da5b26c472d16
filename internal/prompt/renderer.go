package prompt

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/phrazzld/scry-tagger/internal/domain"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// Item is one numbered card as seen by a template.
type Item struct {
	Number   int
	Question string
	Answer   string
}

// Data is the value templates are executed with.
type Data struct {
	Items  []Item
	Topics []string
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Renderer instantiates the prompt of one task kind.
// A Renderer is immutable and safe for concurrent use.
type Renderer struct {
	kind   domain.TaskKind
	tmpl   *template.Template
	topics []string
}

// NewRenderer parses text as the template for kind.
func NewRenderer(kind domain.TaskKind, text string, topics []string) (*Renderer, error) {
	if _, err := domain.ParseTaskKind(string(kind)); err != nil {
		return nil, err
	}

	tmpl, err := template.New(string(kind)).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s template: %v", ErrInvalidTemplate, kind, err)
	}

	return &Renderer{
		kind:   kind,
		tmpl:   tmpl,
		topics: append([]string(nil), topics...),
	}, nil
}

// Default returns the built-in renderer for kind.
func Default(kind domain.TaskKind, topics []string) (*Renderer, error) {
	if _, err := domain.ParseTaskKind(string(kind)); err != nil {
		return nil, err
	}
	content, err := defaultTemplates.ReadFile("templates/" + string(kind) + ".tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: no built-in template for %s: %v", ErrInvalidTemplate, kind, err)
	}
	return NewRenderer(kind, string(content), topics)
}

// Load returns a renderer for kind built from the template file at path, or
// the built-in one when path is empty.
func Load(kind domain.TaskKind, path string, topics []string) (*Renderer, error) {
	if path == "" {
		return Default(kind, topics)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			ErrInvalidTemplate, path, err)
	}
	return NewRenderer(kind, string(content), topics)
}

// Kind returns the task kind the renderer was built for.
func (r *Renderer) Kind() domain.TaskKind { return r.kind }

// Render instantiates the template with cards, numbered from 1 in order.
func (r *Renderer) Render(cards []*domain.Card) (string, error) {
	if len(cards) == 0 {
		return "", ErrNoCards
	}

	data := Data{
		Items:  make([]Item, len(cards)),
		Topics: r.topics,
	}
	for i, card := range cards {
		data.Items[i] = Item{
			Number:   i + 1,
			Question: strings.TrimSpace(card.Question()),
			Answer:   strings.TrimSpace(card.Answer()),
		}
	}

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", r.kind, err)
	}
	return sb.String(), nil
}

// Size returns the length in characters of a prompt.
func Size(prompt string) int {
	return utf8.RuneCountInString(prompt)
}
