package cmd

import (
	encodingjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/wayfarer-cli/internal/browser"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
	"github.com/xkilldash9x/wayfarer-cli/internal/executor"
	"github.com/xkilldash9x/wayfarer-cli/internal/llmclient"
	"github.com/xkilldash9x/wayfarer-cli/internal/observability"
	"github.com/xkilldash9x/wayfarer-cli/internal/plan"
	"github.com/xkilldash9x/wayfarer-cli/internal/resolver"
	"github.com/xkilldash9x/wayfarer-cli/internal/store"
	"github.com/xkilldash9x/wayfarer-cli/internal/translator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var (
		planFile  string
		attachURL string
	)

	runCmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Translates a natural-language command into a plan and executes it in a browser",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			command := strings.TrimSpace(strings.Join(args, " "))
			if command == "" && planFile == "" {
				return errors.New("provide a command to run or a plan file via --plan")
			}

			// The resolver needs the model even when the plan comes from a
			// file, so the client is created unconditionally.
			llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize llm client: %w", err)
			}

			// Browser startup and plan production are independent; overlap
			// them so the model call hides the browser launch latency.
			var (
				conn *browser.Connection
				p    *plan.Plan
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				if attachURL != "" {
					conn, err = browser.Attach(gctx, attachURL, cfg.Browser, logger)
				} else {
					conn, err = browser.Open(gctx, cfg.Browser, logger)
				}
				if err != nil {
					return fmt.Errorf("failed to start browser: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				var err error
				if planFile != "" {
					p, err = loadPlanFile(planFile)
					return err
				}
				p, err = translator.New(llm, logger).Translate(gctx, command)
				return err
			})
			if err := g.Wait(); err != nil {
				if conn != nil {
					conn.Close()
				}
				return err
			}
			defer conn.Close()

			registry := browser.NewRegistry(conn, logger)
			res := resolver.NewLLMResolver(llm, cfg.LLM.MaxDocumentBytes, logger)
			sink, err := store.NewFileStore(cfg.Store.Dir, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize result store: %w", err)
			}

			runner, err := executor.New(conn, registry, res, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize executor: %w", err)
			}

			result, runErr := runner.Run(ctx, p)
			if result != nil {
				// Persistence happens here, outside the handlers: a sink
				// outage must not abort a plan whose payloads are already
				// recorded on the steps.
				persistExtractions(sink, result, logger)
				if err := renderPlan(cmd.OutOrStdout(), result); err != nil {
					logger.Error("Failed to render plan result", zap.Error(err))
				}
			}
			return runErr
		},
	}

	runCmd.Flags().StringVarP(&planFile, "plan", "p", "", "Execute a plan from a JSON file instead of translating a command.")
	runCmd.Flags().StringVarP(&attachURL, "attach", "a", "", "Attach to an already-running browser at this debugging URL instead of launching one.")

	return runCmd
}

// resultSink persists extraction payloads. *store.FileStore satisfies it.
type resultSink interface {
	Save(task string, payload encodingjson.RawMessage) (string, error)
}

// persistExtractions saves the payload of every succeeded extract step. A
// sink failure is logged, not raised; the payloads remain on the rendered
// plan regardless.
func persistExtractions(sink resultSink, p *plan.Plan, logger *zap.Logger) {
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Action != plan.ActionExtract || step.Status != plan.StatusSucceeded || len(step.Result) == 0 {
			continue
		}
		task := step.Params.Instructions
		if task == "" {
			task = step.Description
		}
		key, err := sink.Save(task, step.Result)
		if err != nil {
			logger.Warn("Failed to persist extraction payload",
				zap.String("task", task),
				zap.Error(err),
			)
			continue
		}
		logger.Info("Extraction persisted", zap.String("key", key), zap.String("task", task))
	}
}

// loadPlanFile reads and validates a plan from disk.
func loadPlanFile(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}
	return &p, nil
}

// renderPlan writes the annotated plan as indented JSON.
func renderPlan(w io.Writer, p *plan.Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
