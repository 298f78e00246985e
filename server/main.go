package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"rps-belief/server/engine"
	"rps-belief/server/observer"
)

//
// ===== pretty printing =====
//

var useColor bool

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colCyan   = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func warn(s string) string { return c(colYellow, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }

func section(title string) { fmt.Printf("\n%s %s %s\n", dim("──"), bold(title), dim("──")) }
func sub(title string)     { fmt.Printf("%s %s\n", dim("•"), bold(title)) }

func outcomeTag(o engine.Outcome) string {
	switch o {
	case engine.Win:
		return good("win ")
	case engine.Loss:
		return bad("loss")
	default:
		return dim("draw")
	}
}

func fmtLoss(p *float64) string {
	if p == nil {
		return dim("-")
	}
	return fmt.Sprintf("%.4f", *p)
}

// printRecord writes one round line to stdout.
func printRecord(rec observer.Record) {
	line := fmt.Sprintf("%s %s vs %-8s %s", dim(fmt.Sprintf("#%03d", rec.Round)),
		fmt.Sprintf("%-8s", rec.Self), rec.Opp, outcomeTag(rec.Outcome))
	switch {
	case rec.Phase == observer.Warmup:
		line += "  " + dim("warmup")
	case rec.GuessSelf == nil:
		line += "  " + warn("no guess")
	default:
		guess := *rec.GuessSelf + "/" + *rec.GuessOpp
		line += fmt.Sprintf("  guess=%s loss=%s", cyan(guess), fmtLoss(rec.UnionLoss))
		if rec.Delta != nil {
			line += dim(fmt.Sprintf(" Δ=%+.4f", *rec.Delta))
		}
		if rec.Confidence != nil {
			line += dim(fmt.Sprintf(" conf=%.2f", *rec.Confidence))
		}
	}
	fmt.Println(line)
	if rec.Reasoning != nil && *rec.Reasoning != "" {
		fmt.Printf("      %s\n", dim(*rec.Reasoning))
	}
}

func printSummary(s observer.Summary) {
	section("Summary")
	fmt.Printf("truth        %s  (%s)\n", bold(s.TrueSelf+"/"+s.TrueOpp),
		fmt.Sprintf("W %.1f%% L %.1f%% D %.1f%%", s.TrueMatchup.Win, s.TrueMatchup.Loss, s.TrueMatchup.Draw))
	fg := dim("none")
	if !s.FinalGuess.IsZero() {
		fg = s.FinalGuess.Self + "/" + s.FinalGuess.Opp
		if fg == s.TrueSelf+"/"+s.TrueOpp {
			fg = good(fg)
		} else {
			fg = bad(fg)
		}
	}
	fmt.Printf("final guess  %s\n", fg)
	fmt.Printf("loss         last=%s min=%s avg5=%s\n", fmtLoss(s.Trend.Last), fmtLoss(s.Trend.Min), fmtLoss(s.Trend.Avg5))
	stop := fmt.Sprintf("round %d of %d played", s.StoppingRound, s.RoundsPlayed)
	if s.EarlyStop {
		stop = warn("early stop") + " at " + stop
	}
	fmt.Printf("stopping     %s\n", stop)
	st := outcomeStats(s.Outcomes)
	fmt.Printf("outcomes     %d-%d-%d  win %.3f [%.3f, %.3f]\n", st.Wins, st.Losses, st.Draws, st.WinRate, st.CILow, st.CIHigh)
	fmt.Printf("identifier   %s, %d identifying rounds, %d ms\n", s.Identifier, s.Identified, s.DurationMS)
}

//
// ===== bootstrap =====
//

// loadKeyFromSecret fills envKey from the first readable secret file when the
// variable is unset. ENVKEY_FILE is tried first.
func loadKeyFromSecret(envKey string, files ...string) {
	if os.Getenv(envKey) != "" {
		return
	}
	var candidates []string
	if p := os.Getenv(envKey + "_FILE"); strings.TrimSpace(p) != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, files...)
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			if key := strings.TrimSpace(string(b)); key != "" {
				os.Setenv(envKey, key)
				return
			}
		}
	}
}

func loadSecrets() {
	loadKeyFromSecret("OPENAI_API_KEY", "./secrets/openai_api_key.txt", "./openai_api_key.txt", "/run/secrets/openai_api_key")
	loadKeyFromSecret("OPENROUTER_API_KEY", "./secrets/openrouter_api_key.txt", "/run/secrets/openrouter_api_key")
}

// signalContext is cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go watchSignals(ctx, cancel)
	return ctx, cancel
}

func watchSignals(ctx context.Context, cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	defer signal.Stop(ch)
	select {
	case <-ch:
		log.Println("interrupt: stopping")
		cancel()
	case <-ctx.Done():
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
