package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"rps-belief/server/observer"
	"rps-belief/server/strategy"
)

// Config is read from the environment after .env is loaded.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`
	AutoMigrate bool   `env:"AUTO_MIGRATE"`
	Debug       bool   `env:"DEBUG"`
	NoColor     string `env:"NO_COLOR"`
	UseColor    string `env:"USE_COLOR"`

	// ModelProvider picks the default identifier: local, llm, openai or openrouter.
	ModelProvider string  `env:"MODEL_PROVIDER" envDefault:"local"`
	Model         string  `env:"OPENAI_MODEL"`
	OracleRPS     float64 `env:"ORACLE_RPS" envDefault:"2"`
	LogPrompts    bool    `env:"LLM_LOG_PROMPT"`
	LogDir        string  `env:"LLM_LOG_DIR" envDefault:"logs/llm"`

	DynamicStrategies bool   `env:"USE_DYNAMIC_STRATEGIES" envDefault:"true"`
	CatalogFile       string `env:"CATALOG_FILE"`
	RoundSeed         int64  `env:"ROUND_SEED"`

	FixedPointSteps   int     `env:"FIXED_POINT_STEPS" envDefault:"50"`
	FixedPointDamping float64 `env:"FIXED_POINT_DAMPING" envDefault:"0.7"`
	EarlyStopWindow   int     `env:"EARLY_STOP_WINDOW" envDefault:"15"`
	ReasoningInterval int     `env:"REASONING_INTERVAL" envDefault:"5"`
	HistoryWindow     int     `env:"HISTORY_WINDOW"`
	MinConfidence     float64 `env:"MIN_CONFIDENCE"`
}

// loadConfig loads .env (if any) and parses the environment.
func loadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ModelProvider = strings.ToLower(strings.TrimSpace(cfg.ModelProvider))
	if cfg.FixedPointSteps < 0 {
		return Config{}, fmt.Errorf("FIXED_POINT_STEPS must not be negative, got %d", cfg.FixedPointSteps)
	}
	if cfg.FixedPointDamping <= 0 || cfg.FixedPointDamping > 1 {
		return Config{}, fmt.Errorf("FIXED_POINT_DAMPING must be in (0,1], got %v", cfg.FixedPointDamping)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return Config{}, fmt.Errorf("MIN_CONFIDENCE must be in [0,1], got %v", cfg.MinConfidence)
	}
	return cfg, nil
}

func (c Config) colorEnabled() bool {
	return c.NoColor == "" && strings.TrimSpace(c.UseColor) != "0"
}

func (c Config) fixedPoint() strategy.FixedPoint {
	return strategy.FixedPoint{Steps: c.FixedPointSteps, Damping: c.FixedPointDamping}
}

func (c Config) observerConfig() observer.Config {
	return observer.Config{
		FixedPoint:        c.fixedPoint(),
		EarlyStopWindow:   c.EarlyStopWindow,
		ReasoningInterval: c.ReasoningInterval,
		HistoryWindow:     c.HistoryWindow,
		MinConfidence:     c.MinConfidence,
	}
}

func (c Config) promptLogDir() string {
	if !c.LogPrompts {
		return ""
	}
	return c.LogDir
}
