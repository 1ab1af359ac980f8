package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/flow"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input    string
	Provider string
	Model    string
	RunID    string
}

// runReport is the run command's output shape.
type runReport struct {
	RunID  string             `json:"run_id"`
	Result any                `json:"result"`
	Trace  []*exec.Provenance `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program-file>",
		Short: "Run a graph program",
		Long: `Load a graph program and run it end to end.

The program's nodes execute in flow order against the given input; the
result, the run identifier, and the per-node provenance trace are
printed when the run completes.

Example:
  weft run ./pipeline.jsonl --input '{"question": "2 + 2"}'
  weft run ./pipeline.jsonl --provider openai --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "null", "program input as JSON")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "inference provider (mock|openai|anthropic)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model override for the provider")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "pin the run identifier")
	_ = cmd.Flags().MarkHidden("run-id")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	input, err := ir.Decode([]byte(opts.Input))
	if err != nil {
		return WrapExitError(ExitCommandError, "input is not valid JSON", err)
	}

	prog, err := program.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	out.VerboseLog("program loaded: %d types, %d nodes, %d edges",
		len(prog.Types), len(prog.Functions), len(prog.Edges))

	cfg := config.Load()
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}

	var schedOpts []flow.SchedulerOption
	if opts.RunID != "" {
		schedOpts = append(schedOpts, flow.WithRunID(opts.RunID))
	}
	sched := buildScheduler(prog, cfg, schedOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := sched.Run(ctx, input)
	if runErr != nil {
		_ = out.Error("RUN_FAILED", runErr.Error())
		return NewExitError(ExitFailure, "run failed")
	}

	return out.Success(runReport{
		RunID:  res.RunID,
		Result: ir.ToGo(res.Result),
		Trace:  res.Trace,
	})
}
