package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Provider string
}

// testSuite is the YAML shape of a suite file. Program paths resolve
// relative to the suite file.
type testSuite struct {
	Cases []testCase `yaml:"cases"`
}

type testCase struct {
	Name           string         `yaml:"name"`
	Program        string         `yaml:"program"`
	Input          any            `yaml:"input"`
	Expect         any            `yaml:"expect"`
	ExpectKeys     []string       `yaml:"expect_keys"`
	ExpectContains map[string]any `yaml:"expect_contains"`
	Provider       string         `yaml:"provider"`
}

// caseResult is one case's outcome in the test report.
type caseResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// testReport is the test command's output shape.
type testReport struct {
	Total   int          `json:"total"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Results []caseResult `json:"results"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <suite-file>",
		Short: "Run a program test suite",
		Long: `Run every case in a YAML test suite.

Each case names a program file, an input value, and an expectation:
an exact result (expect), required result keys (expect_keys), or a
subset of key/value pairs (expect_contains). Cases run in-process with
the mock provider unless the case overrides it.

Example:
  weft test ./suites/pipeline.yaml
  weft test ./suites/pipeline.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Provider, "provider", "mock", "inference provider for all cases")

	return cmd
}

func runSuite(opts *TestOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read suite", err)
	}
	var suite testSuite
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse suite", err)
	}
	if len(suite.Cases) == 0 {
		return NewExitError(ExitCommandError, "suite has no cases")
	}

	baseDir := filepath.Dir(path)
	report := testReport{Total: len(suite.Cases)}
	for _, tc := range suite.Cases {
		res := runCase(opts, baseDir, tc)
		if res.Passed {
			report.Passed++
			out.VerboseLog("PASS %s", tc.Name)
		} else {
			report.Failed++
			out.VerboseLog("FAIL %s: %s", tc.Name, res.Reason)
		}
		report.Results = append(report.Results, res)
	}

	if err := out.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", report.Failed, report.Total))
	}
	return nil
}

func runCase(opts *TestOptions, baseDir string, tc testCase) caseResult {
	res := caseResult{Name: tc.Name}

	prog, err := program.Load(filepath.Join(baseDir, tc.Program))
	if err != nil {
		res.Reason = "load: " + err.Error()
		return res
	}

	cfg := config.Load()
	cfg.Provider = opts.Provider
	if tc.Provider != "" {
		cfg.Provider = tc.Provider
	}

	sched := buildScheduler(prog, cfg)
	run, err := sched.Run(context.Background(), ir.MustFromGo(tc.Input))
	if err != nil {
		res.Reason = "run: " + err.Error()
		return res
	}

	if reason, ok := checkExpectations(tc, run.Result); !ok {
		res.Reason = reason
		return res
	}
	res.Passed = true
	return res
}

func checkExpectations(tc testCase, result ir.Value) (string, bool) {
	if tc.Expect != nil {
		want := ir.MustFromGo(tc.Expect)
		if !ir.Equal(result, want) {
			return fmt.Sprintf("result %s does not match expected %s",
				ir.MarshalCanonical(result), ir.MarshalCanonical(want)), false
		}
	}
	if len(tc.ExpectKeys) > 0 {
		obj, ok := ir.AsObject(result)
		if !ok {
			return "result is not an object", false
		}
		for _, key := range tc.ExpectKeys {
			if _, ok := obj[key]; !ok {
				return fmt.Sprintf("result missing key %q", key), false
			}
		}
	}
	if len(tc.ExpectContains) > 0 {
		obj, ok := ir.AsObject(result)
		if !ok {
			return "result is not an object", false
		}
		for key, raw := range tc.ExpectContains {
			want := ir.MustFromGo(raw)
			got, ok := obj[key]
			if !ok {
				return fmt.Sprintf("result missing key %q", key), false
			}
			if !ir.Equal(got, want) {
				return fmt.Sprintf("result key %q is %s, want %s",
					key, ir.MarshalCanonical(got), ir.MarshalCanonical(want)), false
			}
		}
	}
	return "", true
}
