// Package llm holds the language-model collaborators. Every call is a single
// prompt in, single completion out; nothing is remembered between calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	GroqBaseURL = "https://api.groq.com/openai/v1"

	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultTemperature = 0.1
	defaultTimeout     = 60 * time.Second
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("empty response from API")

// Completer sends one prompt to a hosted model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and tunes a provider. It is passed explicitly to New; there
// is no package-level client. A nil Temperature means unset; zero is a valid
// setting.
type Config struct {
	Provider    string
	Model       string
	Temperature *float64
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
}

// Temperature returns a pointer for Config.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderGroq
	}
	if c.Temperature == nil {
		c.Temperature = Temperature(defaultTemperature)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// ModelName reports the model behind c, or "" when c does not say.
func ModelName(c Completer) string {
	if named, ok := c.(interface{ Model() string }); ok {
		return named.Model()
	}
	return ""
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Completer, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is not set", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderGroq:
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = defaultGroqModel
		}
		return NewOpenAIClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
