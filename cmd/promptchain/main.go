package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/config"
	"github.com/zen-systems/promptchain/pkg/pipeline"
	"github.com/zen-systems/promptchain/pkg/plans"
	"github.com/zen-systems/promptchain/pkg/sink"
)

var (
	clientFlag  string
	modelFlag   string
	verboseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptchain",
		Short: "Deterministic multi-stage prompt pipelines over LLM providers",
		Long: `Promptchain runs declarative prompt pipelines: an ordered list of
	stages where each stage renders its prompt from the outputs of earlier
	stages, calls a model, and records the result. Pipelines come from
	YAML manifests or from the built-in plans.`,
	}

	rootCmd.PersistentFlags().StringVar(&clientFlag, "client", "", "default client (anthropic, openai, google, deepseek, mock)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "default model")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func runCmd() *cobra.Command {
	var manifestFile string
	var planFlag string
	var inputFlag string
	var outFlag string
	var recordsFlag bool
	var mockFlag bool
	var retries int
	var callTimeout time.Duration

	var travel plans.TravelParams
	var product plans.ProductParams

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline",
		Long: `Runs a pipeline from a YAML manifest (--file) or a built-in plan
	(--plan). Manifest pipelines read their input from --input or stdin;
	plan pipelines are parameterized with the plan flags below.

	Stage outputs are written as a plain-text report; --records also
	persists a JSON record bundle with per-stage timing and attempts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (manifestFile == "") == (planFlag == "") {
				return fmt.Errorf("exactly one of --file and --plan is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			genCfg := adapter.GenerateConfig{
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			}

			var (
				p      *pipeline.Pipeline
				input  string
				params map[string]string
			)

			if manifestFile != "" {
				input = inputFlag
				if input == "" {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("failed to read stdin: %w", err)
					}
					input = strings.TrimSpace(string(data))
				}

				m, err := pipeline.LoadManifest(manifestFile)
				if err != nil {
					return err
				}
				p, err = m.Build(input)
				if err != nil {
					return err
				}
			} else {
				opts := plans.Options{Travel: travel, Product: product, Config: genCfg}
				p, err = plans.Build(planFlag, opts)
				if err != nil {
					return err
				}
				params = plans.RunParams(planFlag, opts)
			}

			clients, err := createClients(cfg)
			if err != nil {
				return fmt.Errorf("failed to create clients: %w", err)
			}

			defaultClient := firstNonEmpty(clientFlag, cfg.DefaultClient)
			if mockFlag {
				defaultClient = "mock"
			}

			logger := newLogger()
			runner := &pipeline.Runner{
				Clients:       clients,
				DefaultClient: defaultClient,
				DefaultModel:  firstNonEmpty(modelFlag, cfg.DefaultModel),
				MaxAttempts:   retries,
				CallTimeout:   callTimeout,
				Logger:        logger,
			}

			run, err := runner.Run(context.Background(), p)
			if err != nil {
				if run != nil {
					if stage, _ := run.FailedStage(); stage != "" {
						logger.Error("pipeline failed", "pipeline", p.Name, "stage", stage)
					}
				}
				return err
			}

			info := sink.RunInfo{
				Pipeline:    p.Name,
				RunID:       run.ID,
				Input:       input,
				Params:      params,
				GeneratedAt: time.Now(),
			}

			outDir := firstNonEmpty(outFlag, cfg.OutputDir)
			reportPath, err := sink.NewReportSink(outDir).Persist(context.Background(), info, run.Outputs())
			if err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			logger.Info("report written", "path", reportPath)

			if recordsFlag {
				recordDir, err := sink.NewRecordSink("").PersistRun(context.Background(), info, run)
				if err != nil {
					return fmt.Errorf("failed to write records: %w", err)
				}
				logger.Info("records written", "path", recordDir)
			}

			outputs := run.Outputs()
			fmt.Println(outputs[len(outputs)-1].Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestFile, "file", "f", "", "pipeline manifest path")
	cmd.Flags().StringVar(&planFlag, "plan", "", "built-in plan name (see 'promptchain plans')")
	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "input string for manifest pipelines (defaults to stdin)")
	cmd.Flags().StringVar(&outFlag, "out", "", "report output directory")
	cmd.Flags().BoolVar(&recordsFlag, "records", false, "also persist a JSON record bundle under .promptchain/runs")
	cmd.Flags().BoolVar(&mockFlag, "mock", false, "use the mock client (no API calls)")
	cmd.Flags().IntVar(&retries, "retries", 0, "max model calls per stage (0 uses the default of 3)")
	cmd.Flags().DurationVar(&callTimeout, "timeout", 2*time.Minute, "per model call timeout")

	cmd.Flags().StringVar(&travel.Destination, "destination", "", "travel plan: destination")
	cmd.Flags().StringVar(&travel.TripDuration, "duration", "", "travel plan: trip duration")
	cmd.Flags().StringVar(&travel.TripDates, "dates", "", "travel plan: trip dates")
	cmd.Flags().StringVar(&travel.DepartureCity, "departure", "", "travel plan: departure city")
	cmd.Flags().IntVar(&travel.Travelers, "travelers", 0, "travel plan: number of travelers")
	cmd.Flags().StringVar(&travel.BudgetPreference, "budget", "", "travel plan: budget preference")
	cmd.Flags().StringVar(&product.Product, "product", "", "product plan: product description")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [pipeline.yaml]",
		Short: "Validate a pipeline manifest",
		Long:  "Checks stage names, dependency order, prompt templates, and generation parameters without executing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.LoadManifest(args[0])
			if err != nil {
				return err
			}
			if _, err := m.Build("sample input"); err != nil {
				return err
			}
			fmt.Println("Pipeline manifest is valid.")
			return nil
		},
	}
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the built-in plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN\tDESCRIPTION")
			for _, info := range plans.List() {
				fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Description)
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available clients and their models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			clients, err := createClients(cfg)
			if err != nil {
				return fmt.Errorf("failed to create clients: %w", err)
			}

			names := make([]string, 0, len(clients))
			for name := range clients {
				names = append(names, name)
			}
			for _, name := range []string{"anthropic", "deepseek", "google", "openai"} {
				if _, ok := clients[name]; !ok {
					names = append(names, name)
				}
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CLIENT\tMODELS\tSTATUS")
			for _, name := range names {
				c, ok := clients[name]
				if !ok {
					fmt.Fprintf(w, "%s\t-\tno key\n", name)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\tready\n", name, strings.Join(c.Models(), ", "))
			}
			return w.Flush()
		},
	}
}

func createClients(cfg *config.Config) (map[string]adapter.Client, error) {
	clients := make(map[string]adapter.Client)

	if cfg.AnthropicAPIKey != "" {
		c, err := adapter.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		clients["anthropic"] = c
	}

	if cfg.OpenAIAPIKey != "" {
		c, err := adapter.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		clients["openai"] = c
	}

	if cfg.GoogleAPIKey != "" {
		c, err := adapter.NewGoogleClient(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		clients["google"] = c
	}

	if cfg.DeepSeekAPIKey != "" {
		c, err := adapter.NewDeepSeekClient(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek client: %w", err)
		}
		clients["deepseek"] = c
	}

	clients["mock"] = adapter.NewMockClient()

	return clients, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
