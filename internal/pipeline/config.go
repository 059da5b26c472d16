package pipeline

import (
	"fmt"

	"github.com/phrazzld/scry-tagger/internal/config"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/prompt"
)

// ConfigFromSettings builds a pipeline Config from the application
// settings, loading prompt templates for every enabled task kind.
func ConfigFromSettings(cfg config.PipelineConfig) (Config, error) {
	tasks := make([]TaskSpec, 0, len(cfg.Tasks))
	for _, name := range cfg.Tasks {
		kind, err := domain.ParseTaskKind(name)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		var (
			path   string
			repeat int
		)
		switch kind {
		case domain.TaskTagSuggestion:
			path, repeat = cfg.TagTemplatePath, cfg.TagRepeat
		case domain.TaskDefinition:
			path, repeat = cfg.DefinitionTemplatePath, cfg.DefinitionRepeat
		}

		renderer, err := prompt.Load(kind, path, cfg.Topics)
		if err != nil {
			return Config{}, err
		}
		tasks = append(tasks, TaskSpec{Renderer: renderer, Repeat: repeat})
	}

	return Config{
		Tasks:          tasks,
		MaxPromptChars: cfg.MaxPromptChars,
		MaxWorkers:     cfg.MaxWorkers,
		MarkProcessed:  cfg.MarkProcessed,
		StripMarker:    cfg.StripMarker,
	}, nil
}
