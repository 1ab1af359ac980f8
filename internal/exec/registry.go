package exec

import (
	"context"
	"fmt"
	"sort"

	"github.com/tberndt/weft/internal/config"
	"github.com/tberndt/weft/internal/infer"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
)

// Handler implements one named operation. Args arrive with every
// $-reference already resolved.
type Handler func(octx *OpContext, args ir.Object) (ir.Value, error)

// Registry maps operation names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds a handler, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns registered operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpContext is what a handler sees: the ambient context, the node's
// environment, and hooks back into the runtime for nested calls,
// inference, and tool lookup.
type OpContext struct {
	Ctx     context.Context
	Env     Env
	Node    string
	Cfg     *config.Config
	Invoker *infer.Invoker
	Tools   map[string]*program.ToolDecl

	executor *Executor
	registry *Registry
	depth    int
	maxDepth int
}

// Call invokes another registered operation from inside a handler, with
// a fresh depth-checked context. Builtin tool implementations use it.
func (o *OpContext) Call(name string, args ir.Object) (ir.Value, error) {
	if o.depth+1 > o.maxDepth {
		return nil, &RuntimeError{
			Code:    ErrCodeDepth,
			Node:    o.Node,
			Op:      name,
			Message: fmt.Sprintf("nested call depth exceeds %d", o.maxDepth),
		}
	}
	h, ok := o.registry.Lookup(name)
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownOp,
			Node:    o.Node,
			Op:      name,
			Message: "no such operation",
		}
	}
	child := *o
	child.depth++
	return h(&child, args)
}

// CallFn runs another function node by id with the given inbound value,
// sharing the run's depth budget. Combinators like map_each use it to
// apply a target node per element.
func (o *OpContext) CallFn(id string, inbound ir.Value) (ir.Value, error) {
	if o.depth+1 > o.maxDepth {
		return nil, &RuntimeError{
			Code:    ErrCodeDepth,
			Node:    o.Node,
			Message: fmt.Sprintf("nested call depth exceeds %d", o.maxDepth),
		}
	}
	fn, ok := o.executor.Functions[id]
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownFn,
			Node:    o.Node,
			Message: fmt.Sprintf("no such function node %q", id),
		}
	}
	out, _, err := o.executor.run(o.Ctx, fn, inbound, o.depth+1)
	return out, err
}
