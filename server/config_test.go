package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rps-belief/server/belief"
	"rps-belief/server/llm"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("MODEL_PROVIDER", " OpenRouter ")
	t.Setenv("USE_DYNAMIC_STRATEGIES", "false")
	t.Setenv("FIXED_POINT_STEPS", "10")
	t.Setenv("FIXED_POINT_DAMPING", "0.5")
	t.Setenv("EARLY_STOP_WINDOW", "0")
	t.Setenv("MIN_CONFIDENCE", "0.4")
	t.Setenv("LLM_LOG_PROMPT", "true")
	t.Setenv("LLM_LOG_DIR", "/tmp/prompts")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, "openrouter", cfg.ModelProvider)
	assert.False(t, cfg.DynamicStrategies)
	assert.Equal(t, "/tmp/prompts", cfg.promptLogDir())

	oc := cfg.observerConfig()
	assert.Equal(t, 10, oc.FixedPoint.Steps)
	assert.Equal(t, 0.5, oc.FixedPoint.Damping)
	assert.Equal(t, 0, oc.EarlyStopWindow)
	assert.Equal(t, 0.4, oc.MinConfidence)
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"FIXED_POINT_STEPS", "FIXED_POINT_DAMPING", "EARLY_STOP_WINDOW", "REASONING_INTERVAL"} {
		t.Setenv(k, "")
	}
	t.Setenv("LLM_LOG_PROMPT", "false")
	cfg, err := loadConfig()
	require.NoError(t, err)
	oc := cfg.observerConfig()
	assert.Equal(t, 50, oc.FixedPoint.Steps)
	assert.Equal(t, 0.7, oc.FixedPoint.Damping)
	assert.Equal(t, 15, oc.EarlyStopWindow)
	assert.Equal(t, 5, oc.ReasoningInterval)
	assert.Empty(t, cfg.promptLogDir())
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string][2]string{
		"bad int":          {"EARLY_STOP_WINDOW", "soon"},
		"damping too high": {"FIXED_POINT_DAMPING", "1.5"},
		"negative steps":   {"FIXED_POINT_STEPS", "-1"},
		"confidence":       {"MIN_CONFIDENCE", "2"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := loadConfig()
			assert.Error(t, err)
		})
	}
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, Config{}.colorEnabled())
	assert.False(t, Config{NoColor: "1"}.colorEnabled())
	assert.False(t, Config{UseColor: "0"}.colorEnabled())
}

func TestIdentifierSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Model = "gpt-4o-mini"
	cfg.OracleRPS = 3
	a, err := newApp(cfg)
	require.NoError(t, err)

	id, model, err := a.identifier("", "")
	require.NoError(t, err)
	assert.IsType(t, &belief.Local{}, id)
	assert.Empty(t, model)

	id, model, err = a.identifier("OpenAI", "")
	require.NoError(t, err)
	oracle, ok := id.(*llm.Identifier)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", model)
	assert.Same(t, a.oracleLimit, oracle.Limiter)

	_, model, err = a.identifier("llm", "openrouter/some-model")
	require.NoError(t, err)
	assert.Equal(t, "openrouter/some-model", model)

	_, _, err = a.identifier("psychic", "")
	assert.ErrorIs(t, err, errUnknownIdentifier)
}

func TestStaticOnlyPool(t *testing.T) {
	cfg := testConfig()
	cfg.DynamicStrategies = false
	a, err := newApp(cfg)
	require.NoError(t, err)
	id, _, err := a.identifier("local", "")
	require.NoError(t, err)
	assert.True(t, id.(*belief.Local).StaticOnly)
}
