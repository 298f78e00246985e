package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveAPIConfigProvider(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		model    string
		kind     providerKind
		base     string
		wantKey  string
		wantName string
	}{
		{
			name:  "openai default",
			env:   map[string]string{"OPENAI_API_KEY": "sk-a"},
			model: "gpt-4o-mini",
			kind:  providerOpenAI, base: "https://api.openai.com/v1", wantKey: "sk-a", wantName: "gpt-4o-mini",
		},
		{
			name:  "openrouter model prefix",
			env:   map[string]string{"OPENAI_API_KEY": "sk-a", "OPENROUTER_API_KEY": "or-b"},
			model: "openrouter/auto",
			kind:  providerOpenRouter, base: "https://openrouter.ai/api/v1", wantKey: "or-b", wantName: "openrouter/auto",
		},
		{
			name:  "base url points at openrouter",
			env:   map[string]string{"OPENAI_API_BASE": "https://openrouter.ai/api/v1/", "OPENAI_API_KEY": "sk-a"},
			model: "meta-llama/llama-3.1-70b-instruct",
			kind:  providerOpenRouter, base: "https://openrouter.ai/api/v1", wantKey: "sk-a", wantName: "meta-llama/llama-3.1-70b-instruct",
		},
		{
			name:  "explicit override beats base url",
			env:   map[string]string{"OPENAI_API_BASE": "https://openrouter.ai/api/v1", "OPENAI_API_KEY": "sk-a", "LLM_PROVIDER": "openai"},
			model: "gpt-4o",
			kind:  providerOpenAI, base: "https://openrouter.ai/api/v1", wantKey: "sk-a", wantName: "gpt-4o",
		},
		{
			name: "model from OPENROUTER_MODEL",
			env: map[string]string{"MODEL_PROVIDER": "openrouter", "OPENROUTER_API_KEY": "or-b",
				"OPENROUTER_MODEL": "anthropic/claude-3.5-haiku", "OPENAI_MODEL": "gpt-4o"},
			kind: providerOpenRouter, base: "https://openrouter.ai/api/v1", wantKey: "or-b", wantName: "anthropic/claude-3.5-haiku",
		},
		{
			name:  "local provider is not an override",
			env:   map[string]string{"MODEL_PROVIDER": "local", "OPENAI_API_KEY": "sk-a", "OPENAI_MODEL": "gpt-4o"},
			kind:  providerOpenAI, base: "https://api.openai.com/v1", wantKey: "sk-a", wantName: "gpt-4o",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := resolveAPIConfig(tc.model)
			if err != nil {
				t.Fatalf("resolveAPIConfig: %v", err)
			}
			if cfg.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v", cfg.Kind, tc.kind)
			}
			if cfg.BaseURL != tc.base {
				t.Fatalf("base = %q, want %q", cfg.BaseURL, tc.base)
			}
			if cfg.APIKey != tc.wantKey || cfg.Model != tc.wantName {
				t.Fatalf("key/model = %q/%q", cfg.APIKey, cfg.Model)
			}
			if cfg.HeaderName != "Authorization" || cfg.HeaderPrefix != "Bearer " {
				t.Fatalf("auth header = %q %q", cfg.HeaderName, cfg.HeaderPrefix)
			}
		})
	}
}

func TestResolveAPIConfigAttribution(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	cfg, err := resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig: %v", err)
	}
	if got := cfg.ExtraHeaders["HTTP-Referer"]; got != defaultSiteURL {
		t.Fatalf("unexpected HTTP-Referer: %q", got)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != defaultSiteTitle {
		t.Fatalf("unexpected X-Title: %q", got)
	}

	t.Setenv("OPENROUTER_SITE_URL", "https://example.com/app")
	t.Setenv("OPENROUTER_SITE_NAME", "Lab Bench")
	cfg, err = resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig: %v", err)
	}
	if got := cfg.ExtraHeaders["Referer"]; got != "https://example.com/app" {
		t.Fatalf("unexpected Referer: %q", got)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != "Lab Bench" {
		t.Fatalf("unexpected X-Title: %q", got)
	}
}

func TestResolveAPIConfigCustomAuthHeader(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("OPENAI_API_KEY_HEADER", "api-key")
	cfg, err := resolveAPIConfig("gpt-4o")
	if err != nil {
		t.Fatalf("resolveAPIConfig: %v", err)
	}
	if cfg.HeaderName != "api-key" || cfg.HeaderPrefix != "" {
		t.Fatalf("auth header = %q %q", cfg.HeaderName, cfg.HeaderPrefix)
	}
	if len(cfg.ExtraHeaders) != 0 {
		t.Fatalf("openai calls carry no attribution, got %v", cfg.ExtraHeaders)
	}
}

func TestResolveAPIConfigErrors(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := resolveAPIConfig("gpt-4o"); err == nil {
		t.Fatalf("expected missing key error")
	}
	t.Setenv("OPENAI_API_KEY", "k")
	if _, err := resolveAPIConfig(""); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestSetHeaderPreserveCase(t *testing.T) {
	hdr := http.Header{}
	setHeaderPreserveCase(hdr, "HTTP-Referer", "https://example.com/app")
	if vals := hdr["HTTP-Referer"]; len(vals) != 1 || vals[0] != "https://example.com/app" {
		t.Fatalf("expected HTTP-Referer to keep its spelling, got %+v", hdr)
	}
	if _, exists := hdr["Http-Referer"]; exists {
		t.Fatalf("unexpected canonical variant: %+v", hdr)
	}
	setHeaderPreserveCase(hdr, "X-Title", "RPS Belief")
	if got := hdr.Get("X-Title"); got != "RPS Belief" {
		t.Fatalf("X-Title = %q", got)
	}
	setHeaderPreserveCase(hdr, "  ", "value")
	setHeaderPreserveCase(hdr, "X-Empty", "   ")
	if len(hdr) != 2 {
		t.Fatalf("blank keys or values must be skipped, got %+v", hdr)
	}
}

func TestPingTextSendsAttribution(t *testing.T) {
	clearProviderEnv(t)
	var hdr http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "{}"}}},
		})
	}))
	defer srv.Close()
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("OPENROUTER_API_BASE", srv.URL)
	t.Setenv("LLM_PROVIDER", "openrouter")

	out, err := PingText(context.Background(), "openrouter/auto", "sys", "user")
	if err != nil {
		t.Fatalf("PingText: %v", err)
	}
	if out != "{}" {
		t.Fatalf("content = %q", out)
	}
	if got := hdr.Get("Authorization"); got != "Bearer or-key" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := hdr.Get("X-Title"); got != defaultSiteTitle {
		t.Fatalf("X-Title = %q", got)
	}
	if got := hdr.Get("Http-Referer"); got != defaultSiteURL {
		t.Fatalf("HTTP-Referer = %q", got)
	}
}

func TestBuildChatRequest(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_TEMPERATURE", "0.9")
	t.Setenv("OPENAI_TOP_K", "-2")
	cfg := apiConfig{Kind: providerOpenAI, Model: "gpt-test"}

	cr := buildChatRequest(cfg, "sys", "usr", PingOptions{})
	if cr.ResponseFormat.Type != "json_object" || cr.ResponseFormat.JSONSchema != nil {
		t.Fatalf("expected plain json mode, got %+v", cr.ResponseFormat)
	}
	if cr.Temperature == nil || *cr.Temperature != 0.9 {
		t.Fatalf("env temperature not applied: %v", cr.Temperature)
	}
	if cr.TopK != 0 {
		t.Fatalf("non-positive top_k must be ignored, got %d", cr.TopK)
	}

	zero := 0.0
	tokens := 64
	cr = buildChatRequest(cfg, "sys", "usr", PingOptions{
		Temperature:      &zero,
		MaxOutputTokens:  &tokens,
		StructuredSchema: map[string]any{"type": "object"},
		StructuredStrict: true,
	})
	if *cr.Temperature != 0 || cr.MaxTokens != 64 {
		t.Fatalf("explicit options lost: temp=%v max=%d", *cr.Temperature, cr.MaxTokens)
	}
	if cr.ResponseFormat.JSONSchema == nil || cr.ResponseFormat.JSONSchema.Name != "structured" || !cr.ResponseFormat.JSONSchema.Strict {
		t.Fatalf("unexpected schema format %+v", cr.ResponseFormat.JSONSchema)
	}
}
