package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/program"
	"github.com/tberndt/weft/internal/stdops"
	"github.com/tberndt/weft/internal/typesys"
)

// validateReport is the validate command's output shape.
type validateReport struct {
	Types  int      `json:"types"`
	Nodes  int      `json:"nodes"`
	Edges  int      `json:"edges"`
	Tools  int      `json:"tools"`
	Issues []string `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program-file>",
		Short: "Check a program without running it",
		Long: `Load a program and check its internal references: every type
resolves, every pipeline names a registered operation, every inference
target is a declared type, and every edge points at a defined node.

Example:
  weft validate ./pipeline.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateProgram(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func validateProgram(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	prog, err := program.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	report := validateReport{
		Types:  len(prog.Types),
		Nodes:  len(prog.Functions),
		Edges:  len(prog.Edges),
		Tools:  len(prog.Tools),
		Issues: collectIssues(prog),
	}

	if err := out.Success(report); err != nil {
		return err
	}
	if len(report.Issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d issues found", len(report.Issues)))
	}
	return nil
}

func collectIssues(prog *program.Program) []string {
	var issues []string

	types := typesys.New(prog.Types)
	typeNames := make([]string, 0, len(prog.Types))
	for name := range prog.Types {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		if _, err := types.Resolve(name); err != nil {
			issues = append(issues, fmt.Sprintf("type %q: %v", name, err))
		}
	}

	registry := exec.NewRegistry()
	stdops.RegisterAll(registry)

	nodeIDs := make([]string, 0, len(prog.Functions))
	for id := range prog.Functions {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)
	for _, id := range nodeIDs {
		fn := prog.Functions[id]
		for _, step := range fn.Ops {
			if _, ok := registry.Lookup(step.Name); !ok {
				issues = append(issues, fmt.Sprintf("node %q: unknown operation %q", id, step.Name))
			}
		}
		if fn.Infer != nil && !types.Has(fn.Infer.Target) {
			issues = append(issues, fmt.Sprintf("node %q: inference target %q is not declared", id, fn.Infer.Target))
		}
		if fn.Expect != nil && fn.Expect.Type != "" && !types.Has(fn.Expect.Type) {
			issues = append(issues, fmt.Sprintf("node %q: output type %q is not declared", id, fn.Expect.Type))
		}
	}

	for i, e := range prog.Edges {
		if _, ok := prog.Functions[e.Source]; !ok {
			issues = append(issues, fmt.Sprintf("edge %d: source %q is not a defined node", i, e.Source))
		}
		if e.Dest != "" {
			if _, ok := prog.Functions[e.Dest]; !ok {
				issues = append(issues, fmt.Sprintf("edge %d: destination %q is not a defined node", i, e.Dest))
			}
		}
	}

	toolIDs := make([]string, 0, len(prog.Tools))
	for id := range prog.Tools {
		toolIDs = append(toolIDs, id)
	}
	sort.Strings(toolIDs)
	for _, id := range toolIDs {
		switch prog.Tools[id].Impl.Kind {
		case "command", "http", "builtin":
		default:
			issues = append(issues, fmt.Sprintf("tool %q: unsupported implementation %q", id, prog.Tools[id].Impl.Kind))
		}
	}

	return issues
}
