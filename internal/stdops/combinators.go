package stdops

import (
	"fmt"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/infer"
	"github.com/tberndt/weft/internal/ir"
)

// opMapEach applies a function node to every element of a list. Each
// element becomes the target node's inbound value, wrapped under the
// param name when one is given.
func opMapEach(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	items, err := argList(args, "items")
	if err != nil {
		return nil, err
	}
	fnID, err := argString(args, "fn")
	if err != nil {
		return nil, err
	}
	param := optString(args, "param", "")

	out := make(ir.List, 0, len(items))
	for i, item := range items {
		in := item
		if param != "" {
			in = ir.Object{param: item}
		}
		v, err := octx.CallFn(fnID, in)
		if err != nil {
			return nil, fmt.Errorf("map_each[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func inferRequest(args ir.Object) (infer.Request, error) {
	target, err := argString(args, "type")
	if err != nil {
		return infer.Request{}, err
	}
	req := infer.Request{
		Task:     optString(args, "task", ""),
		Target:   target,
		Provider: optString(args, "provider", ""),
		Model:    optString(args, "model", ""),
	}
	if v, ok := args["input"]; ok {
		req.Input = v
	}
	return req, nil
}

// opLLM runs one mid-pipeline inference call constrained by a declared
// type.
func opLLM(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	req, err := inferRequest(args)
	if err != nil {
		return nil, err
	}
	v, _, err := octx.Invoker.Call(octx.Ctx, req)
	return v, err
}

// opLLMBatch runs one inference call per item and collects the results.
func opLLMBatch(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	req, err := inferRequest(args)
	if err != nil {
		return nil, err
	}
	items, err := argList(args, "items")
	if err != nil {
		return nil, err
	}
	out, _, err := octx.Invoker.CallBatch(octx.Ctx, req, items)
	return out, err
}

func registerCombinators(r *exec.Registry) {
	r.Register("map_each", opMapEach)
	r.Register("llm", opLLM)
	r.Register("llm_batch", opLLMBatch)
}
