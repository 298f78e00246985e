package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"rps-belief/server/agent"
	"rps-belief/server/engine"
	"rps-belief/server/strategy"
)

const identifySystem = `
You observe a repeated rock-paper-scissors match between two players, "self" and "opp".
Each player follows exactly one strategy from the catalog for the whole match.
Static strategies throw from a fixed distribution. Reactive strategies permute the
opponent's distribution from the previous round.

Your job is to name the strategy pair that most plausibly produced the history.
Respond ONLY with the JSON object described. No prose, no markdown.
`

// defaultConfidence is used when a reply omits or garbles its confidence.
const defaultConfidence = 0.6

// PingIdentify asks the model for a (self, opp) pair restricted to codes.
// It returns the parsed guess and the raw reply text.
func PingIdentify(ctx context.Context, model, system, user string, codes []string, opts PingOptions) (agent.Guess, string, error) {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"guess_self": map[string]any{
				"type":        "string",
				"enum":        codes,
				"description": "Catalog code of the self player's strategy",
			},
			"guess_opp": map[string]any{
				"type":        "string",
				"enum":        codes,
				"description": "Catalog code of the opponent's strategy",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Probability that both codes are right",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Short explanation, or empty when not requested",
			},
		},
		"required": []string{"guess_self", "guess_opp", "confidence", "reasoning"},
	}
	opts.StructuredSchema = schema
	opts.StructuredSchemaName = coalesce(opts.StructuredSchemaName, "strategy_pair")
	opts.StructuredStrict = true

	text, err := PingTextWithOpts(ctx, model, system, user, opts)
	if err != nil {
		return agent.Guess{}, text, err
	}
	raw := strings.TrimSpace(text)
	if raw == "" {
		return agent.Guess{}, raw, errors.New("empty response")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		cleaned := extractJSONObject(raw)
		if cleaned == "" {
			return agent.Guess{}, raw, err
		}
		if err2 := json.Unmarshal([]byte(cleaned), &parsed); err2 != nil {
			return agent.Guess{}, raw, err
		}
	}
	g, ok := coerceGuessMap(parsed, codes)
	if !ok {
		return agent.Guess{}, raw, errors.New("no valid strategy pair in response")
	}
	return g, raw, nil
}

// matchCode finds v among codes, exactly first and then ignoring case.
func matchCode(v any, codes []string) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, c := range codes {
		if c == s {
			return c, true
		}
	}
	for _, c := range codes {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

func coerceGuessMap(parsed map[string]any, codes []string) (agent.Guess, bool) {
	self, ok := matchCode(parsed["guess_self"], codes)
	if !ok {
		return agent.Guess{}, false
	}
	opp, ok := matchCode(parsed["guess_opp"], codes)
	if !ok {
		return agent.Guess{}, false
	}
	conf := defaultConfidence
	switch t := parsed["confidence"].(type) {
	case float64:
		conf = t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			conf = f
		}
	}
	conf = min(max(conf, 0), 1)
	reasoning, _ := parsed["reasoning"].(string)
	return agent.Guess{Self: self, Opp: opp, Confidence: conf, Reasoning: strings.TrimSpace(reasoning)}, true
}

func ruleFormula(r strategy.Rule) string {
	switch r {
	case strategy.CounterWinning:
		return "R=opp.S, P=opp.R, S=opp.P"
	case strategy.CounterLosing:
		return "R=opp.P, P=opp.S, S=opp.R"
	default:
		return "R=opp.R, P=opp.P, S=opp.S"
	}
}

// BuildPrompt renders the catalog table and the history for one call.
func BuildPrompt(obs agent.Observation) (system, user string) {
	var b strings.Builder
	b.WriteString("Strategy catalog:\n")
	for _, d := range obs.Catalog.Defs() {
		if d.IsStatic() {
			fmt.Fprintf(&b, "%s: %s; R=%.3f, P=%.3f, S=%.3f\n", d.Code, d.Name, d.Dist.Rock, d.Dist.Paper, d.Dist.Scissors)
		} else {
			fmt.Fprintf(&b, "%s: %s; reactive, %s\n", d.Code, d.Name, ruleFormula(d.Rule))
		}
	}
	fmt.Fprintf(&b, "\nHistory (%d rounds, self vs opp, outcome for self):\n", len(obs.History))
	for i, r := range obs.History {
		fmt.Fprintf(&b, "%d. %s %s %s\n", i+1, r.Self.Letter(), r.Opp.Letter(), r.Outcome)
	}
	codes := obs.Catalog.Codes()
	b.WriteString("\nRespond ONLY with a single compact JSON object:\n")
	fmt.Fprintf(&b, `{"guess_self":"%s","guess_opp":"%s","confidence":<0..1>,"reasoning":"..."}`+"\n",
		strings.Join(codes, `"|"`), strings.Join(codes, `"|"`))
	if obs.IncludeReasoning {
		b.WriteString("Give one or two sentences of reasoning.\n")
	} else {
		b.WriteString(`Leave "reasoning" as an empty string.` + "\n")
	}
	return identifySystem, b.String()
}

// Identifier asks a chat model for the strategy pair. Calls share one rate
// limiter when Limiter is set.
type Identifier struct {
	Model   string
	Limiter *rate.Limiter
	Timeout time.Duration
	LogDir  string // prompt/reply logs go here when set
	Debug   bool
	Opts    PingOptions

	seq atomic.Int64
}

// NewIdentifier paces calls at rps per second; rps <= 0 disables pacing.
func NewIdentifier(model string, rps float64, logDir string) *Identifier {
	id := &Identifier{Model: model, Timeout: 40 * time.Second, LogDir: logDir, Opts: envPingOptions()}
	if rps > 0 {
		id.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return id
}

func (id *Identifier) Name() string { return "llm" }

func (id *Identifier) Identify(ctx context.Context, obs agent.Observation) (agent.Guess, error) {
	if obs.Catalog == nil {
		return agent.Guess{}, errors.New("llm: observation has no catalog")
	}
	if id.Limiter != nil {
		if err := id.Limiter.Wait(ctx); err != nil {
			return agent.Guess{}, err
		}
	}
	timeout := id.Timeout
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	system, user := BuildPrompt(obs)
	g, raw, err := PingIdentify(ctx2, id.Model, system, user, obs.Catalog.Codes(), id.Opts)
	if id.Debug && raw != "" {
		log.Printf("identify raw: %s", raw)
	}
	id.logExchange(obs.History, user, raw, err)
	if err != nil {
		return agent.Guess{}, err
	}
	if !obs.IncludeReasoning {
		g.Reasoning = ""
	}
	return g, nil
}

func (id *Identifier) logExchange(h []engine.Round, user, raw string, callErr error) {
	if id.LogDir == "" {
		return
	}
	if err := os.MkdirAll(id.LogDir, 0o755); err != nil {
		log.Printf("prompt log disabled: %v", err)
		return
	}
	name := fmt.Sprintf("%s-%04d.txt", time.Now().UTC().Format("20060102T150405"), id.seq.Add(1))
	var b strings.Builder
	fmt.Fprintf(&b, "model: %s\nhistory: %s\n\n--- prompt ---\n%s\n--- reply ---\n%s\n", id.Model, historyLetters(h), user, raw)
	if callErr != nil {
		fmt.Fprintf(&b, "--- error ---\n%v\n", callErr)
	}
	if err := os.WriteFile(filepath.Join(id.LogDir, name), []byte(b.String()), 0o644); err != nil {
		log.Printf("prompt log write failed: %v", err)
	}
}

// historyLetters is the compact R/P/S form of a history, used in logs.
func historyLetters(h []engine.Round) string {
	var b strings.Builder
	for _, r := range h {
		b.WriteString(r.Self.Letter())
		b.WriteString(r.Opp.Letter())
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}
