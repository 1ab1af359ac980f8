package cli

import (
	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/flow"
	"github.com/tberndt/weft/internal/infer"
	"github.com/tberndt/weft/internal/program"
	"github.com/tberndt/weft/internal/stdops"
	"github.com/tberndt/weft/internal/typesys"
)

// buildScheduler wires the full runtime stack over a loaded program:
// type system, operation registry, inference invoker, executor, and
// scheduler.
func buildScheduler(prog *program.Program, cfg *config.Config, schedOpts ...flow.SchedulerOption) *flow.Scheduler {
	types := typesys.New(prog.Types)

	registry := exec.NewRegistry()
	stdops.RegisterAll(registry)

	invoker := infer.NewInvoker(types,
		infer.WithProvider(infer.NewOpenAI(cfg.HTTPTimeout)),
		infer.WithProvider(infer.NewAnthropic(cfg.HTTPTimeout)),
		infer.WithDefaultProvider(cfg.Provider),
	)

	ex := exec.NewExecutor(types, registry, invoker, cfg, prog.Tools)
	ex.Functions = prog.Functions
	return flow.NewScheduler(prog, ex, schedOpts...)
}
