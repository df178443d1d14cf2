package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/util"
)

// NewProvider creates an LLM provider from configuration. An empty provider
// name returns (nil, nil): the judge then runs heuristic-only. Providers with
// a request rate are wrapped in Throttled.
func NewProvider(config Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err = NewOpenAIProvider(config)
	case "anthropic", "claude":
		p, err = NewAnthropicProvider(config)
	case "ollama":
		p, err = NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	if config.RequestsPerSecond > 0 {
		return NewThrottled(p, config.RequestsPerSecond, config.Burst), nil
	}
	return p, nil
}

// ConfigFromModel converts model configuration, falling back to the
// provider's conventional API key variable when none is configured
func ConfigFromModel(cfg model.LLMConfig, http model.HTTPConfig) Config {
	c := Config{
		Provider:          cfg.Provider,
		Model:             cfg.Model,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Timeout:           time.Duration(cfg.Timeout) * time.Second,
		MaxTokens:         cfg.MaxTokens,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Proxy: util.ProxyConfig{
			HTTPProxy:  http.HTTPProxy,
			HTTPSProxy: http.HTTPSProxy,
			NoProxy:    http.NoProxy,
		},
	}
	if c.APIKey == "" {
		c.APIKey = apiKeyFromEnv(c.Provider)
	}
	return c
}

func apiKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
