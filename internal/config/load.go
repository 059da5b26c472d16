package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the tagger reads.
const EnvPrefix = "TAGGER"

// ErrValidation is returned when the loaded configuration is invalid.
var ErrValidation = errors.New("config validation failed")

// DefaultTopics is the example topic list offered to the model in the tag
// suggestion prompt.
var DefaultTopics = []string{
	"Data Structures",
	"Python",
	"Golang",
	"Markdown",
	"Security",
	"Operating Systems",
	"Linux",
	"Networking",
	"Maths",
	"I/O Management",
	"Hardware",
}

// secretKeys have no default value, so they must be bound explicitly for
// AutomaticEnv to see them during Unmarshal.
var secretKeys = []string{
	"llm.gemini_api_key",
	"llm.openai_api_key",
	"llm.anthropic_api_key",
	"database.url",
	"store.deck_file",
	"store.deck_contains",
	"export.csv_path",
	"pipeline.tag_template_path",
	"pipeline.definition_template_path",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_output_tokens", 4096)
	v.SetDefault("llm.request_timeout", 2*time.Minute)
	v.SetDefault("llm.default_retry_wait", 5*time.Second)

	v.SetDefault("pipeline.tasks", []string{"tags", "definition"})
	v.SetDefault("pipeline.max_prompt_chars", 12000)
	v.SetDefault("pipeline.max_workers", 10)
	v.SetDefault("pipeline.tag_repeat", 1)
	v.SetDefault("pipeline.definition_repeat", 1)
	v.SetDefault("pipeline.mark_processed", true)
	v.SetDefault("pipeline.strip_marker", false)
	v.SetDefault("pipeline.topics", DefaultTopics)

	v.SetDefault("store.backend", "postgres")
	v.SetDefault("store.limit", 0)

	v.SetDefault("database.max_conns", 4)
}

// Load reads configuration from defaults, an optional config file and
// TAGGER_-prefixed environment variables. Environment variables take
// precedence over values from config files. A .env file in the working
// directory is loaded into the process environment first, without overriding
// variables that are already set.
//
// An empty configFile searches for tagger.yaml in the working directory; a
// missing file is not an error in that case.
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tagger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags and cross-section rules.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateStoreDatabase, Config{})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// validateStoreDatabase requires a database URL when cards live in postgres.
func validateStoreDatabase(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.Store.Backend == "postgres" && cfg.Database.URL == "" {
		sl.ReportError(cfg.Database.URL, "Database.URL", "URL", "required_with_postgres", "")
	}
}

// loadDotEnv copies KEY=VALUE pairs from path into the process environment.
// Variables that are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range dot.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, dot.GetString(key)); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return nil
}
