package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rps-belief/server/judge"
	"rps-belief/server/observer"
	"rps-belief/server/store"
)

var cfg Config

var (
	runSelf       string
	runOpp        string
	runRounds     int
	runWarmup     int
	runWindow     int
	runInterval   int
	runSeed       int64
	runIdentifier string
	runModel      string
	jsonOutput    bool

	sweepPairs    string
	sweepRuns     int
	sweepSeed     uint64
	sweepParallel int

	servePort string
)

var rootCmd = &cobra.Command{
	Use:          "rps-belief",
	Short:        "Identify rock-paper-scissors strategy pairs from play history",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		loadSecrets()
		useColor = cfg.colorEnabled() && !jsonOutput
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.openArchive(ctx); err != nil {
			log.Printf("archive disabled: %v", err)
		}
		port := servePort
		if port == "" {
			port = cfg.Port
		}
		// no write timeout: streamed and oracle-driven runs can take minutes
		srv := &http.Server{Addr: ":" + port, Handler: Router(a), ReadTimeout: 15 * time.Second}
		go func() {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play one observed match and print every round",
	Example: `  rps-belief run --self B --opp A --rounds 60 --warmup 5
  rps-belief run --self X --opp K --identifier llm --model gpt-4o-mini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.openArchive(ctx); err != nil {
			log.Printf("archive disabled: %v", err)
		}
		req := RunRequest{
			Request: observer.Request{
				TrueSelf: runSelf, TrueOpp: runOpp,
				TotalRounds: runRounds, WarmupRounds: runWarmup,
				HistoryWindow: runWindow, ReasoningInterval: runInterval,
				Seed: runSeed,
			},
			Identifier: runIdentifier,
			Model:      runModel,
		}
		if err := validate.Struct(req); err != nil {
			return err
		}
		runner, model, err := a.newRun(req)
		if err != nil {
			return err
		}

		if jsonOutput {
			res, err := observer.Buffered(ctx, runner)
			if err != nil {
				return err
			}
			a.save(ctx, runner, model, res)
			return printJSON(runResponse{Result: res, Outcomes: outcomeStats(res.Summary.Outcomes)})
		}

		section(fmt.Sprintf("%s vs %s", req.TrueSelf, req.TrueOpp))
		sub(fmt.Sprintf("%d rounds, %d warmup, identifier %s", req.TotalRounds, req.WarmupRounds, runner.Summary().Identifier))
		var res observer.Result
		err = observer.Stream(ctx, runner, func(ev observer.Event) error {
			if ev.Type == observer.EventFinal {
				res.Summary = *ev.Summary
				printSummary(res.Summary)
				return nil
			}
			res.Records = append(res.Records, *ev.Record)
			printRecord(*ev.Record)
			return nil
		})
		if err != nil {
			return err
		}
		a.save(ctx, runner, model, res)
		return nil
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the win percentage of every ordered strategy pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(a.matrix)
		}
		fmt.Printf("%-4s", "")
		for _, k := range a.matrix.Codes {
			fmt.Printf("%7s", k)
		}
		fmt.Println()
		for _, r := range a.matrix.Codes {
			fmt.Printf("%-4s", bold(r))
			for _, k := range a.matrix.Codes {
				res, _ := a.matrix.Get(r, k)
				cell := fmt.Sprintf("%7.1f", res.Win)
				switch {
				case res.Win > res.Loss+1e-9:
					cell = good(cell)
				case res.Loss > res.Win+1e-9:
					cell = bad(cell)
				default:
					cell = dim(cell)
				}
				fmt.Print(cell)
			}
			fmt.Println()
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate TRUE1 TRUE2 PRED1 PRED2",
	Short: "Score a predicted pair against a true pair",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		ev, err := judge.Evaluate(a.matrix, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		return printJSON(ev)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run many seeded matches per pair and aggregate the final losses",
	Example: `  rps-belief sweep --pairs B/A,C/X --runs 20 --rounds 80
  rps-belief sweep --runs 5 --parallel 8 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.openArchive(ctx); err != nil {
			log.Printf("archive disabled: %v", err)
		}
		pairs, err := a.parsePairs(sweepPairs)
		if err != nil {
			return err
		}
		tmpl := observer.Request{
			TotalRounds: runRounds, WarmupRounds: runWarmup,
			HistoryWindow: runWindow, ReasoningInterval: runInterval,
		}
		if err := validate.StructExcept(tmpl, "TrueSelf", "TrueOpp"); err != nil {
			return err
		}
		seed := sweepSeed
		if seed == 0 {
			seed = uint64(cfg.RoundSeed)
		}
		rows, err := a.sweep(ctx, SweepOptions{
			Pairs: pairs, Runs: sweepRuns, Template: tmpl,
			Identifier: runIdentifier, Model: runModel,
			Seed: seed, Parallel: sweepParallel,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rows)
		}
		section(fmt.Sprintf("Sweep: %d pairs × %d runs", len(pairs), sweepRuns))
		fmt.Printf("%-7s %8s %19s %7s %7s %7s\n", "pair", "loss", "95% CI", "stop", "hit", "win")
		for _, r := range rows {
			fmt.Printf("%-7s %8.4f [%7.4f, %7.4f] %7.2f %7.2f %7.3f\n",
				r.TrueSelf+"/"+r.TrueOpp, r.MeanFinalLoss, r.CILow, r.CIHigh,
				r.EarlyStopRate, r.HitRate, r.Outcomes.WinRate)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres archive schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
		ctx := context.Background()
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		log.Println("migrated")
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&runRounds, "rounds", 100, "Total rounds per run")
	cmd.Flags().IntVar(&runWarmup, "warmup", 5, "Warmup rounds played before identification starts")
	cmd.Flags().IntVar(&runWindow, "window", 0, "Most recent rounds passed to the identifier (0 = all)")
	cmd.Flags().IntVar(&runInterval, "reasoning-interval", 0, "Request reasoning every N identifying rounds (0 = REASONING_INTERVAL)")
	cmd.Flags().StringVar(&runIdentifier, "identifier", "", "Identifier: local, llm, openai or openrouter (default MODEL_PROVIDER)")
	cmd.Flags().StringVar(&runModel, "model", "", "Oracle model (default OPENAI_MODEL)")
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (default PORT)")

	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&runSelf, "self", "", "True strategy of the self player")
	runCmd.Flags().StringVar(&runOpp, "opp", "", "True strategy of the opponent")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Round seed (0 = ROUND_SEED, then random)")
	_ = runCmd.MarkFlagRequired("self")
	_ = runCmd.MarkFlagRequired("opp")

	rootCmd.AddCommand(sweepCmd)
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepPairs, "pairs", "", "Comma-separated SELF/OPP pairs (default every ordered pair)")
	sweepCmd.Flags().IntVar(&sweepRuns, "runs", 10, "Runs per pair")
	sweepCmd.Flags().Uint64Var(&sweepSeed, "seed", 0, "Base seed for the per-run seed stream (0 = ROUND_SEED, then random)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 4, "Runs in flight at once")

	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(migrateCmd)
}
