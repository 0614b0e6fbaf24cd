package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Support-Router/pkg/openrouter"
)

const (
	StrategyRules = "rules"
	StrategyLLM   = "llm"
)

// Config selects and configures the intent classifier. Loaded with prefix CLASSIFIER.
type Config struct {
	Strategy           string        `envconfig:"STRATEGY" default:"rules"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.5-flash-lite"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"512"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) UseLLM() bool {
	return strings.EqualFold(strings.TrimSpace(c.Strategy), StrategyLLM)
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Strategy)) {
	case "", StrategyRules:
		return nil
	case StrategyLLM:
	default:
		return fmt.Errorf("%w: unknown classifier strategy=%q", contractx.ErrValidation, c.Strategy)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
