package program

import (
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/typesys"
)

// Program is the loaded, immutable form of a graph program.
type Program struct {
	Types     map[string]*typesys.Decl
	Functions map[string]*FunctionNode
	Edges     []FlowEdge
	Tools     map[string]*ToolDecl
}

// NewProgram returns an empty program with all tables allocated.
func NewProgram() *Program {
	return &Program{
		Types:     map[string]*typesys.Decl{},
		Functions: map[string]*FunctionNode{},
		Tools:     map[string]*ToolDecl{},
	}
}

// FunctionNode is one executable node of the graph.
type FunctionNode struct {
	ID string

	// Inputs are the declared input names in declaration order. A single
	// type-name reference declares one input of that name.
	Inputs []string

	// Consts are constant bindings applied to the environment, in order.
	Consts []ConstBinding

	// Ops is the ordered operation pipeline.
	Ops []OpStep

	// Infer, when set, runs a schema-constrained inference call after the
	// pipeline.
	Infer *InferSpec

	// Expect, when set, is the node's output contract.
	Expect *OutputContract

	// RetryMax bounds inference retries for this node. Zero means the
	// invoker default.
	RetryMax int
}

// ConstBinding is one named constant.
type ConstBinding struct {
	Name  string
	Value ir.Value
}

// OpStep is one pipeline step: operation name, arguments, and an optional
// result-binding name.
type OpStep struct {
	Name string
	Args ir.Object
	Bind string
}

// InferSpec describes a node's inference step.
type InferSpec struct {
	Task     string
	Input    ir.Object
	Target   string
	Provider string
	Model    string
}

// OutputContract constrains a node's result. Either Type names a declared
// type (with optional environment synthesis), or Template is an inline
// result template resolved against the environment.
type OutputContract struct {
	Type       string
	Synthesize bool
	Template   ir.Object
}

// FlowEdge connects two nodes. An empty Dest marks the source as a declared
// terminal point. Meta may carry a "when" guard expression.
type FlowEdge struct {
	Source string
	Dest   string
	Meta   ir.Object
}

// Guard returns the edge's guard expression, or nil when unguarded.
func (e FlowEdge) Guard() ir.Value {
	if e.Meta == nil {
		return nil
	}
	return e.Meta["when"]
}

// ToolDecl declares an external tool callable through the tool_call
// operation.
type ToolDecl struct {
	ID          string
	Name        string
	Description string
	InputType   string
	OutputType  string
	Impl        ToolImpl
}

// ToolImpl is a tool's implementation descriptor. Kind selects the
// execution strategy: "command", "http", or "builtin".
type ToolImpl struct {
	Kind    string
	Command string
	URL     string
	Method  string
	Func    string
	Headers ir.Object
}
