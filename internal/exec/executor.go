package exec

import (
	"context"
	"log/slog"
	"time"

	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/infer"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
	"github.com/tberndt/weft/internal/typesys"
)

// Executor runs function nodes. It is stateless across runs; every run
// gets a fresh environment.
type Executor struct {
	Types    *typesys.System
	Registry *Registry
	Invoker  *infer.Invoker
	Cfg      *config.Config
	Tools    map[string]*program.ToolDecl

	// Functions is the program's node table, consulted when an operation
	// invokes another node directly.
	Functions map[string]*program.FunctionNode

	// Now is the timestamp source for provenance. Tests pin it.
	Now func() time.Time
}

// NewExecutor wires an executor. Tools may be nil when the program
// declares none; assign Functions for programs whose operations invoke
// other nodes.
func NewExecutor(types *typesys.System, reg *Registry, inv *infer.Invoker, cfg *config.Config, tools map[string]*program.ToolDecl) *Executor {
	return &Executor{
		Types:    types,
		Registry: reg,
		Invoker:  inv,
		Cfg:      cfg,
		Tools:    tools,
		Now:      time.Now,
	}
}

// Run executes one node against an inbound value: input binding, consts,
// the operation pipeline, the inference step, then the output contract.
// A provenance record comes back in every case, including failures.
func (ex *Executor) Run(ctx context.Context, fn *program.FunctionNode, input ir.Value) (ir.Value, *Provenance, error) {
	return ex.run(ctx, fn, input, 0)
}

func (ex *Executor) run(ctx context.Context, fn *program.FunctionNode, input ir.Value, depth int) (ir.Value, *Provenance, error) {
	if input == nil {
		input = ir.Null{}
	}
	env := Env{KeyValue: input}
	bindInputs(env, fn, input)
	for _, c := range fn.Consts {
		env[c.Name] = c.Value
	}

	prov := &Provenance{Node: fn.ID, Timestamp: formatTimestamp(ex.Now()), Status: StatusError}

	octx := &OpContext{
		Ctx:      ctx,
		Env:      env,
		Node:     fn.ID,
		Cfg:      ex.Cfg,
		Invoker:  ex.Invoker,
		Tools:    ex.Tools,
		executor: ex,
		registry: ex.Registry,
		depth:    depth,
		maxDepth: ex.Cfg.MaxDepth,
	}

	for _, step := range fn.Ops {
		args, err := ResolveArgs(step.Args, env)
		if err != nil {
			decorate(err, fn.ID, step.Name)
			return nil, prov, err
		}
		h, ok := ex.Registry.Lookup(step.Name)
		if !ok {
			return nil, prov, &RuntimeError{
				Code:    ErrCodeUnknownOp,
				Node:    fn.ID,
				Op:      step.Name,
				Message: "no such operation",
			}
		}
		out, err := h(octx, args)
		if err != nil {
			decorate(err, fn.ID, step.Name)
			return nil, prov, err
		}
		env[KeyResult] = out
		rebindValue(env, out)
		if step.Bind != "" {
			env[step.Bind] = out
		}
		if ex.Cfg.Trace {
			slog.Debug("pipeline step", "node", fn.ID, "op", step.Name, "result_hash", ir.Hash(out))
		}
	}

	inferred := false
	if fn.Infer != nil {
		resolved, err := ResolveArgs(fn.Infer.Input, env)
		if err != nil {
			decorate(err, fn.ID, "")
			return nil, prov, err
		}
		reqInput := ir.Value(resolved)
		if len(resolved) == 0 && !ir.IsNull(input) {
			// An absent or empty input expression hands the inbound value
			// to the provider whole.
			reqInput = input
		}
		model := fn.Infer.Model
		if model == "" {
			model = ex.Cfg.Model
		}
		result, traces, err := ex.Invoker.Call(ctx, infer.Request{
			Task:        fn.Infer.Task,
			Input:       reqInput,
			Target:      fn.Infer.Target,
			Provider:    fn.Infer.Provider,
			Model:       model,
			MaxAttempts: fn.RetryMax,
		})
		if !ex.Cfg.MinimalProvenance {
			prov.Inference = traces
		}
		if err != nil {
			return nil, prov, err
		}
		env[KeyResult] = result
		rebindValue(env, result)
		inferred = true
	}

	result, err := ex.applyContract(fn, env, inferred)
	if err != nil {
		return nil, prov, err
	}

	prov.Status = StatusOK
	prov.OutputHash = ir.Hash(result)
	return result, prov, nil
}

// bindInputs maps the inbound value onto declared input names. A single
// input takes the matching field of a structural inbound, or the whole
// inbound when no field matches. Multiple inputs each see the whole
// inbound value, a deliberate fan-out.
func bindInputs(env Env, fn *program.FunctionNode, input ir.Value) {
	if len(fn.Inputs) == 0 || ir.IsNull(input) {
		return
	}
	if len(fn.Inputs) == 1 {
		name := fn.Inputs[0]
		if obj, ok := ir.AsObject(input); ok {
			if v, ok := obj[name]; ok {
				env[name] = v
				return
			}
		}
		env[name] = input
		return
	}
	for _, name := range fn.Inputs {
		env[name] = input
	}
}

// rebindValue refreshes the "value" binding after a step produces a
// result: a structural result carrying "value" exposes that field, a
// bare number becomes the value itself. Other results leave the binding
// untouched.
func rebindValue(env Env, out ir.Value) {
	if obj, ok := ir.AsObject(out); ok {
		if v, ok := obj[KeyValue]; ok {
			env[KeyValue] = v
		}
		return
	}
	if _, ok := ir.AsNumber(out); ok {
		env[KeyValue] = out
	}
}

// applyContract enforces the node's output contract and picks the final
// result. Synthesis only kicks in when no step produced a structural
// result, and an empty candidate keeps the pipeline result. Inference
// results skip re-validation; the invoker already validated them
// against the same type.
func (ex *Executor) applyContract(fn *program.FunctionNode, env Env, inferred bool) (ir.Value, error) {
	if fn.Expect == nil {
		return currentResult(env), nil
	}

	if fn.Expect.Template != nil {
		resolved, err := ResolveArgs(fn.Expect.Template, env)
		if err != nil {
			decorate(err, fn.ID, "")
			return nil, err
		}
		return resolved, nil
	}

	result := ir.Value(ir.Null{})
	if v, ok := env[KeyResult]; ok {
		result = v
	}
	if fn.Expect.Synthesize {
		if _, ok := ir.AsObject(result); !ok {
			if cand := ex.synthesizeFromEnv(fn.Expect.Type, env); len(cand) > 0 {
				result = cand
			}
		}
	}
	if _, ok := ir.AsObject(result); ok {
		result = ex.Types.ApplyDefaults(result, fn.Expect.Type)
	}
	if !inferred {
		if err := ex.Types.Validate(result, fn.Expect.Type); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// synthesizeFromEnv assembles a structural candidate by pulling each
// declared field from the environment by name. Non-structural targets
// yield nothing.
func (ex *Executor) synthesizeFromEnv(typeName string, env Env) ir.Object {
	form, err := ex.Types.Resolve(typeName)
	if err != nil {
		return nil
	}
	structural, ok := form.(typesys.Structural)
	if !ok {
		return nil
	}
	out := ir.Object{}
	for _, field := range structural.Fields {
		if v, ok := env[field.Name]; ok {
			out[field.Name] = v
		}
	}
	return out
}

func currentResult(env Env) ir.Value {
	if v, ok := env[KeyResult]; ok {
		return v
	}
	if v, ok := env[KeyValue]; ok {
		return v
	}
	return ir.Null{}
}

// decorate fills node and op position into a RuntimeError raised below
// the executor, where that position is unknown.
func decorate(err error, node, op string) {
	if re, ok := err.(*RuntimeError); ok {
		if re.Node == "" {
			re.Node = node
		}
		if re.Op == "" {
			re.Op = op
		}
	}
}
