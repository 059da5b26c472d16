package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// LLMConfig contains all completion-service related settings.
type LLMConfig struct {
	// Provider selects the completion backend.
	Provider string `mapstructure:"provider" validate:"required,oneof=gemini openai anthropic"`

	// ModelName is passed verbatim to the provider.
	ModelName string `mapstructure:"model" validate:"required"`

	GeminiAPIKey    string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIBaseURL   string `mapstructure:"openai_base_url" validate:"omitempty,url"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" validate:"required_if=Provider anthropic"`

	Temperature     float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" validate:"gt=0"`

	// RequestTimeout bounds a single HTTP request. Zero disables it.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`

	// DefaultRetryWait is used when a rate-limit response carries no usable
	// retry-after hint.
	DefaultRetryWait time.Duration `mapstructure:"default_retry_wait" validate:"gt=0"`
}

// PipelineConfig contains batching and scheduling settings.
type PipelineConfig struct {
	// Tasks lists the task kinds to run, in order. Each kind appears once.
	Tasks []string `mapstructure:"tasks" validate:"required,min=1,unique,dive,oneof=tags definition"`

	// MaxPromptChars is the per-window prompt budget in characters.
	MaxPromptChars int `mapstructure:"max_prompt_chars" validate:"gt=0"`

	// MaxWorkers caps the number of decks processed concurrently.
	MaxWorkers int `mapstructure:"max_workers" validate:"gt=0,lte=64"`

	TagRepeat        int `mapstructure:"tag_repeat" validate:"gte=1"`
	DefinitionRepeat int `mapstructure:"definition_repeat" validate:"gte=1"`

	MarkProcessed bool `mapstructure:"mark_processed"`
	StripMarker   bool `mapstructure:"strip_marker"`

	Topics                 []string `mapstructure:"topics"`
	TagTemplatePath        string   `mapstructure:"tag_template_path" validate:"omitempty,file"`
	DefinitionTemplatePath string   `mapstructure:"definition_template_path" validate:"omitempty,file"`
}

// StoreConfig selects where cards are read from and written back to.
type StoreConfig struct {
	Backend      string `mapstructure:"backend" validate:"required,oneof=postgres file"`
	DeckFile     string `mapstructure:"deck_file" validate:"required_if=Backend file"`
	DeckContains string `mapstructure:"deck_contains"`
	Limit        int    `mapstructure:"limit" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
}

// ExportConfig contains CSV report settings.
type ExportConfig struct {
	// CSVPath, when set, receives one row per updated card.
	CSVPath string `mapstructure:"csv_path"`
}
