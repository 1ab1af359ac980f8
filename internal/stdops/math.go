package stdops

import (
	"fmt"
	"math"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
)

func binary(f func(a, b float64) (float64, error)) exec.Handler {
	return func(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
		a, err := argNumber(args, "a")
		if err != nil {
			return nil, err
		}
		b, err := argNumber(args, "b")
		if err != nil {
			return nil, err
		}
		out, err := f(a, b)
		if err != nil {
			return nil, err
		}
		return ir.Number(out), nil
	}
}

func unary(f func(v float64) float64) exec.Handler {
	return func(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
		v, err := argNumber(args, "value")
		if err != nil {
			return nil, err
		}
		return ir.Number(f(v)), nil
	}
}

func opAdd(a, b float64) (float64, error) { return a + b, nil }
func opSub(a, b float64) (float64, error) { return a - b, nil }
func opMul(a, b float64) (float64, error) { return a * b, nil }
func opPow(a, b float64) (float64, error) { return math.Pow(a, b), nil }
func opMin(a, b float64) (float64, error) { return math.Min(a, b), nil }
func opMax(a, b float64) (float64, error) { return math.Max(a, b), nil }

func opDiv(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func aggregate(f func(values []float64) float64) exec.Handler {
	return func(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
		items, err := argList(args, "values")
		if err != nil {
			return nil, err
		}
		nums := make([]float64, 0, len(items))
		for i, item := range items {
			n, ok := ir.AsNumber(item)
			if !ok {
				return nil, fmt.Errorf("values[%d]: want number", i)
			}
			nums = append(nums, n)
		}
		return ir.Number(f(nums)), nil
	}
}

func opSum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func opAvg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return opSum(values) / float64(len(values))
}

// opCalcEval evaluates an arithmetic expression string and returns its
// numeric value.
func opCalcEval(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	expr, err := argString(args, "expr")
	if err != nil {
		return nil, err
	}
	n, err := evalExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("calc_eval: %w", err)
	}
	return ir.Number(n), nil
}

// opToCalcResult wraps a number in the {"value": n} envelope downstream
// contracts expect.
func opToCalcResult(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	v, err := argNumber(args, "value")
	if err != nil {
		return nil, err
	}
	return ir.Object{"value": ir.Number(v)}, nil
}

func registerMath(r *exec.Registry) {
	r.Register("add", binary(opAdd))
	r.Register("sub", binary(opSub))
	r.Register("mul", binary(opMul))
	r.Register("div", binary(opDiv))
	r.Register("pow", binary(opPow))
	r.Register("min", binary(opMin))
	r.Register("max", binary(opMax))
	r.Register("neg", unary(func(v float64) float64 { return -v }))
	r.Register("abs", unary(math.Abs))
	r.Register("round", unary(math.Round))
	r.Register("sum", aggregate(opSum))
	r.Register("avg", aggregate(opAvg))
	r.Register("calc_eval", opCalcEval)
	r.Register("to_calc_result", opToCalcResult)
}
