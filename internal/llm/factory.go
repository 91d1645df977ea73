package llm

import (
	"fmt"
	"sort"
	"strings"
)

type provider struct {
	build  func(Config) (Client, error)
	keyEnv string
}

var providers = map[string]provider{
	"openai":    {build: newOpenAIClient, keyEnv: "OPENAI_API_KEY"},
	"anthropic": {build: newAnthropicClient, keyEnv: "ANTHROPIC_API_KEY"},
}

// Providers lists the supported provider names.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyEnv returns the environment variable conventionally holding the
// provider's API key, and whether the provider is known.
func KeyEnv(name string) (string, bool) {
	p, ok := providers[strings.ToLower(name)]
	return p.keyEnv, ok
}

// NewClient creates a raw LLM client for cfg.Provider. An empty provider means openai.
func NewClient(cfg Config) (Client, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = "openai"
	}
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider %q (supported: %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}
	return p.build(cfg)
}
