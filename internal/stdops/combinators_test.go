package stdops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/infer"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
	"github.com/tberndt/weft/internal/typesys"
)

func combinatorExecutor(t *testing.T, fns map[string]*program.FunctionNode, tools map[string]*program.ToolDecl) *exec.Executor {
	t.Helper()
	types := typesys.New(map[string]*typesys.Decl{
		"Status": {
			Name:    "Status",
			Derived: true,
			Alias:   ir.List{ir.String("pending"), ir.String("done")},
		},
	})
	registry := exec.NewRegistry()
	RegisterAll(registry)
	ex := exec.NewExecutor(types, registry, infer.NewInvoker(types), config.Default(), tools)
	ex.Functions = fns
	return ex
}

func runNode(t *testing.T, fn *program.FunctionNode, input ir.Value, fns map[string]*program.FunctionNode, tools map[string]*program.ToolDecl) (ir.Value, error) {
	t.Helper()
	ex := combinatorExecutor(t, fns, tools)
	out, _, err := ex.Run(context.Background(), fn, input)
	return out, err
}

func TestMapEach(t *testing.T) {
	fns := map[string]*program.FunctionNode{
		"double_it": {
			ID: "double_it",
			Ops: []program.OpStep{
				{Name: "mul", Args: ir.Object{"a": ir.String("$value"), "b": ir.Number(2)}},
			},
		},
	}
	fn := &program.FunctionNode{
		ID: "doubler",
		Ops: []program.OpStep{
			{Name: "map_each", Args: ir.Object{
				"items": ir.List{ir.Number(1), ir.Number(2), ir.Number(3)},
				"fn":    ir.String("double_it"),
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, fns, nil)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.List{ir.Number(2), ir.Number(4), ir.Number(6)}))
}

func TestMapEachParamWrapsItems(t *testing.T) {
	fns := map[string]*program.FunctionNode{
		"incr": {
			ID:     "incr",
			Inputs: []string{"n"},
			Ops: []program.OpStep{
				{Name: "add", Args: ir.Object{"a": ir.String("$n"), "b": ir.Number(1)}},
			},
		},
	}
	fn := &program.FunctionNode{
		ID: "bump",
		Ops: []program.OpStep{
			{Name: "map_each", Args: ir.Object{
				"items": ir.List{ir.Number(10), ir.Number(20)},
				"fn":    ir.String("incr"),
				"param": ir.String("n"),
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, fns, nil)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.List{ir.Number(11), ir.Number(21)}))
}

func TestMapEachUnknownTarget(t *testing.T) {
	fn := &program.FunctionNode{
		ID: "lost",
		Ops: []program.OpStep{
			{Name: "map_each", Args: ir.Object{
				"items": ir.List{ir.Number(1)},
				"fn":    ir.String("nowhere"),
			}},
		},
	}
	_, err := runNode(t, fn, ir.Null{}, nil, nil)
	require.Error(t, err)
	assert.True(t, exec.IsCode(err, exec.ErrCodeUnknownFn))
}

func TestMapEachPropagatesFailure(t *testing.T) {
	fns := map[string]*program.FunctionNode{
		"divide_ten": {
			ID: "divide_ten",
			Ops: []program.OpStep{
				{Name: "div", Args: ir.Object{"a": ir.Number(10), "b": ir.String("$value")}},
			},
		},
	}
	fn := &program.FunctionNode{
		ID: "dividing",
		Ops: []program.OpStep{
			{Name: "map_each", Args: ir.Object{
				"items": ir.List{ir.Number(1), ir.Number(0)},
				"fn":    ir.String("divide_ten"),
			}},
		},
	}
	_, err := runNode(t, fn, ir.Null{}, fns, nil)
	require.Error(t, err)
}

func TestLLMOp(t *testing.T) {
	fn := &program.FunctionNode{
		ID: "classify",
		Ops: []program.OpStep{
			{Name: "llm", Args: ir.Object{
				"task": ir.String("pick a status"),
				"type": ir.String("Status"),
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.String("pending")))
}

func TestLLMBatchOp(t *testing.T) {
	fn := &program.FunctionNode{
		ID: "classify_all",
		Ops: []program.OpStep{
			{Name: "llm_batch", Args: ir.Object{
				"task":  ir.String("pick statuses"),
				"type":  ir.String("Status"),
				"items": ir.List{ir.Object{"q": ir.String("a")}, ir.Object{"q": ir.String("b")}},
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.List{ir.String("pending"), ir.String("pending")}))
}

func TestToolCallCommand(t *testing.T) {
	tools := map[string]*program.ToolDecl{
		"echoer": {
			ID:   "echoer",
			Impl: program.ToolImpl{Kind: "command", Command: `echo '{"said": "{word}"}'`},
		},
	}
	fn := &program.FunctionNode{
		ID: "speak",
		Ops: []program.OpStep{
			{Name: "tool_call", Args: ir.Object{
				"tool":  ir.String("echoer"),
				"input": ir.Object{"word": ir.String("hi")},
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, nil, tools)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.Object{"said": ir.String("hi")}))
}

func TestToolCallBuiltin(t *testing.T) {
	tools := map[string]*program.ToolDecl{
		"adder": {
			ID:   "adder",
			Impl: program.ToolImpl{Kind: "builtin", Func: "add"},
		},
	}
	fn := &program.FunctionNode{
		ID: "compute",
		Ops: []program.OpStep{
			{Name: "tool_call", Args: ir.Object{
				"tool":  ir.String("adder"),
				"input": ir.Object{"a": ir.Number(2), "b": ir.Number(3)},
			}},
		},
	}
	out, err := runNode(t, fn, ir.Null{}, nil, tools)
	require.NoError(t, err)
	assert.True(t, ir.Equal(out, ir.Number(5)))
}

func TestToolCallUndeclared(t *testing.T) {
	fn := &program.FunctionNode{
		ID: "ghost",
		Ops: []program.OpStep{
			{Name: "tool_call", Args: ir.Object{"tool": ir.String("nope")}},
		},
	}
	_, err := runNode(t, fn, ir.Null{}, nil, nil)
	require.Error(t, err)
}

func TestToolCallAllowlist(t *testing.T) {
	tools := map[string]*program.ToolDecl{
		"echoer": {
			ID:   "echoer",
			Impl: program.ToolImpl{Kind: "command", Command: "echo hi"},
		},
	}
	ex := combinatorExecutor(t, nil, tools)
	ex.Cfg.ToolAllowlist = []string{"wc"}

	fn := &program.FunctionNode{
		ID: "blocked",
		Ops: []program.OpStep{
			{Name: "tool_call", Args: ir.Object{"tool": ir.String("echoer")}},
		},
	}
	_, _, err := ex.Run(context.Background(), fn, ir.Null{})
	require.Error(t, err)
	assert.True(t, exec.IsCode(err, exec.ErrCodeSandbox))
}
