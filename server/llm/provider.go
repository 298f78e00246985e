package llm

import (
	"errors"
	"os"
	"strings"
)

type providerKind int

const (
	providerOpenAI providerKind = iota
	providerOpenRouter
)

func (k providerKind) String() string {
	if k == providerOpenRouter {
		return "openrouter"
	}
	return "openai"
}

const (
	openAIBase     = "https://api.openai.com/v1"
	openRouterBase = "https://openrouter.ai/api/v1"

	// OpenRouter attribution sent when none is configured.
	defaultSiteURL   = "https://rpsbelief.dev"
	defaultSiteTitle = "RPS Belief"
)

// apiConfig is everything one chat/completions call needs, resolved from
// the model name and the environment.
type apiConfig struct {
	Kind         providerKind
	APIKey       string
	Model        string
	BaseURL      string
	HeaderName   string
	HeaderPrefix string
	Organization string
	ExtraHeaders map[string]string
}

// providerOverride reads LLM_PROVIDER, then MODEL_PROVIDER. Values other than
// openai/openrouter (e.g. "local") are not an override.
func providerOverride() (providerKind, bool) {
	switch strings.ToLower(firstNonEmpty(os.Getenv("LLM_PROVIDER"), os.Getenv("MODEL_PROVIDER"))) {
	case "openrouter":
		return providerOpenRouter, true
	case "openai":
		return providerOpenAI, true
	}
	return providerOpenAI, false
}

func detectProviderFromModel(model string) (providerKind, bool) {
	if strings.Contains(strings.ToLower(model), "openrouter/") {
		return providerOpenRouter, true
	}
	return providerOpenAI, false
}

func resolveModel(model string, kind providerKind) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	if kind == providerOpenRouter {
		if m := strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")); m != "" {
			return m
		}
	}
	return strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
}

func resolveAPIKey(kind providerKind) string {
	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	openRouterKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if kind == providerOpenRouter {
		return firstNonEmpty(openRouterKey, openAIKey)
	}
	return firstNonEmpty(openAIKey, openRouterKey)
}

// authHeader returns the header carrying the key and its prefix. A bare
// Authorization header gets the Bearer scheme.
func authHeader() (name, prefix string) {
	name = firstNonEmpty(os.Getenv("OPENAI_API_KEY_HEADER"), os.Getenv("OPENROUTER_API_KEY_HEADER"), "Authorization")
	prefix = os.Getenv("OPENAI_API_KEY_PREFIX")
	if prefix == "" {
		prefix = os.Getenv("OPENROUTER_API_KEY_PREFIX")
	}
	if name == "Authorization" && strings.TrimSpace(prefix) == "" {
		prefix = "Bearer "
	}
	return name, prefix
}

func attributionHeaders() map[string]string {
	site := firstNonEmpty(os.Getenv("OPENROUTER_SITE_URL"), defaultSiteURL)
	return map[string]string{
		"HTTP-Referer": site,
		"Referer":      site,
		"X-Title":      firstNonEmpty(os.Getenv("OPENROUTER_TITLE"), os.Getenv("OPENROUTER_SITE_NAME"), defaultSiteTitle),
	}
}

// resolveAPIConfig picks the provider in increasing precedence: the
// OPENROUTER preference, an "openrouter/" model prefix, an explicit provider
// override. Without an override a base URL pointing at OpenRouter also wins.
func resolveAPIConfig(model string) (apiConfig, error) {
	cfg := apiConfig{Kind: providerOpenAI, ExtraHeaders: map[string]string{}}
	if preferOpenRouterEnv() {
		cfg.Kind = providerOpenRouter
	}
	if k, ok := detectProviderFromModel(model); ok {
		cfg.Kind = k
	}
	override, manual := providerOverride()
	if manual {
		cfg.Kind = override
	}

	cfg.Model = resolveModel(model, cfg.Kind)
	if cfg.Model == "" {
		return apiConfig{}, errors.New("model missing: set OPENAI_MODEL/OPENROUTER_MODEL or pass a value")
	}
	if k, ok := detectProviderFromModel(cfg.Model); ok && !manual {
		cfg.Kind = k
	}

	base := firstNonEmpty(
		os.Getenv("OPENAI_API_BASE"),
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENROUTER_API_BASE"),
		os.Getenv("OPENROUTER_BASE_URL"),
	)
	if base == "" {
		base = openAIBase
		if cfg.Kind == providerOpenRouter {
			base = openRouterBase
		}
	}
	cfg.BaseURL = strings.TrimRight(base, "/")
	if !manual && strings.Contains(strings.ToLower(cfg.BaseURL), "openrouter") {
		cfg.Kind = providerOpenRouter
	}

	if cfg.APIKey = resolveAPIKey(cfg.Kind); cfg.APIKey == "" {
		return apiConfig{}, errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
	}
	cfg.HeaderName, cfg.HeaderPrefix = authHeader()
	cfg.Organization = strings.TrimSpace(os.Getenv("OPENAI_ORG"))
	if cfg.Kind == providerOpenRouter {
		cfg.ExtraHeaders = attributionHeaders()
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Configured reports whether an oracle call could be attempted with the
// current environment.
func Configured(model string) bool {
	_, err := resolveAPIConfig(model)
	return err == nil
}
