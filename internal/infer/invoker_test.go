package infer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/typesys"
)

func testTypes() *typesys.System {
	return typesys.New(map[string]*typesys.Decl{
		"CalcResult": {
			Name:   "CalcResult",
			Fields: []typesys.Field{{Name: "value", Type: "float"}},
		},
		"Status": {
			Name:    "Status",
			Derived: true,
			Alias:   ir.List{ir.String("pending"), ir.String("done")},
		},
	})
}

// scripted replays a fixed sequence of replies, recording the prompts it
// was given.
type scripted struct {
	replies []ir.Value
	errs    []error
	prompts []Prompt
}

func (*scripted) Name() string { return "scripted" }

func (s *scripted) Generate(_ context.Context, p Prompt) (ir.Value, error) {
	s.prompts = append(s.prompts, p)
	i := len(s.prompts) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.replies) {
		return ir.Null{}, nil
	}
	return s.replies[i], nil
}

func TestMockFirstAttemptConforms(t *testing.T) {
	inv := NewInvoker(testTypes())

	v, traces, err := inv.Call(context.Background(), Request{Task: "compute", Target: "CalcResult"})
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.True(t, traces[0].Conforming)

	obj, ok := ir.AsObject(v)
	require.True(t, ok)
	assert.True(t, ir.Equal(obj["value"], ir.Number(0)))
}

func TestMockEnumPicksFirstMember(t *testing.T) {
	inv := NewInvoker(testTypes())
	v, _, err := inv.Call(context.Background(), Request{Target: "Status"})
	require.NoError(t, err)
	assert.True(t, ir.Equal(v, ir.String("pending")))
}

func TestCritiqueRetry(t *testing.T) {
	p := &scripted{replies: []ir.Value{
		ir.String("not an object"),
		ir.Object{"value": ir.Number(8)},
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	original := ir.Object{"question": ir.String("2+2")}
	v, traces, err := inv.Call(context.Background(), Request{
		Task:   "compute",
		Input:  original,
		Target: "CalcResult",
	})
	require.NoError(t, err)
	assert.True(t, ir.Equal(v, ir.Object{"value": ir.Number(8)}))

	require.Len(t, traces, 2)
	assert.False(t, traces[0].Conforming)
	assert.True(t, traces[1].Conforming)

	// The second prompt wraps the first attempt's input with the failure.
	require.Len(t, p.prompts, 2)
	crit, ok := ir.AsObject(p.prompts[1].Input)
	require.True(t, ok)
	assert.True(t, ir.Equal(crit["original"], original))
	_, hasError := crit["error"]
	assert.True(t, hasError)
	_, hasSchema := crit["expected_schema"]
	assert.True(t, hasSchema)
}

func TestCritiqueNests(t *testing.T) {
	// Two rejections deep, the critique wraps the previous critique.
	p := &scripted{replies: []ir.Value{
		ir.String("bad"),
		ir.String("still bad"),
		ir.Object{"value": ir.Number(1)},
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	original := ir.Object{"q": ir.String("x")}
	_, _, err := inv.Call(context.Background(), Request{Input: original, Target: "CalcResult"})
	require.NoError(t, err)

	require.Len(t, p.prompts, 3)
	outer, ok := ir.AsObject(p.prompts[2].Input)
	require.True(t, ok)
	inner, ok := ir.AsObject(outer["original"])
	require.True(t, ok)
	assert.True(t, ir.Equal(inner["original"], original))
}

func TestTransportErrorBuildsCritique(t *testing.T) {
	p := &scripted{
		errs:    []error{fmt.Errorf("transport down"), nil},
		replies: []ir.Value{nil, ir.Object{"value": ir.Number(2)}},
	}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	original := ir.Object{"q": ir.String("x")}
	v, _, err := inv.Call(context.Background(), Request{Input: original, Target: "CalcResult"})
	require.NoError(t, err)
	assert.True(t, ir.Equal(v, ir.Object{"value": ir.Number(2)}))

	require.Len(t, p.prompts, 2)
	crit, ok := ir.AsObject(p.prompts[1].Input)
	require.True(t, ok)
	assert.True(t, ir.Equal(crit["original"], original))
	assert.True(t, ir.Equal(crit["error"], ir.String("transport down")))
}

func TestExhaustedAfterBudget(t *testing.T) {
	p := &scripted{replies: []ir.Value{
		ir.String("bad"), ir.String("bad"), ir.String("bad"), ir.String("bad"),
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	_, traces, err := inv.Call(context.Background(), Request{Target: "CalcResult", MaxAttempts: 2})
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.Len(t, traces, 2)
	assert.Len(t, p.prompts, 2)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, "CalcResult", exhausted.Target)
}

func TestProviderErrorRetriedThenExhausted(t *testing.T) {
	p := &scripted{errs: []error{
		fmt.Errorf("transport down"),
		fmt.Errorf("transport down"),
		fmt.Errorf("transport down"),
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	_, _, err := inv.Call(context.Background(), Request{Target: "CalcResult"})
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.Contains(t, err.Error(), "transport down")
}

func TestUnknownProvider(t *testing.T) {
	inv := NewInvoker(testTypes())
	_, _, err := inv.Call(context.Background(), Request{Target: "CalcResult", Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknownProvider)
}

func TestUnknownTarget(t *testing.T) {
	inv := NewInvoker(testTypes())
	_, _, err := inv.Call(context.Background(), Request{Target: "Nope"})
	require.Error(t, err)
}

func TestCallBatch(t *testing.T) {
	inv := NewInvoker(testTypes())
	inputs := ir.List{
		ir.Object{"q": ir.String("a")},
		ir.Object{"q": ir.String("b")},
	}
	out, traces, err := inv.CallBatch(context.Background(), Request{Target: "Status"}, inputs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, traces, 2)
	assert.True(t, ir.Equal(out[0], ir.String("pending")))
}

func TestCallBatchRetriesWholeList(t *testing.T) {
	// The second item's rejection aborts the attempt; the retry
	// re-prompts every item with a critique wrapper.
	p := &scripted{replies: []ir.Value{
		ir.Object{"value": ir.Number(1)},
		ir.String("bad"),
		ir.Object{"value": ir.Number(1)},
		ir.Object{"value": ir.Number(2)},
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	items := ir.List{
		ir.Object{"q": ir.String("a")},
		ir.Object{"q": ir.String("b")},
	}
	out, _, err := inv.CallBatch(context.Background(), Request{Target: "CalcResult"}, items)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, ir.Equal(out[1], ir.Object{"value": ir.Number(2)}))

	// Four prompts total: both items, then both again after the failure.
	require.Len(t, p.prompts, 4)
	critFirst, ok := ir.AsObject(p.prompts[2].Input)
	require.True(t, ok)
	assert.True(t, ir.Equal(critFirst["original"], items[0]))
	critSecond, ok := ir.AsObject(p.prompts[3].Input)
	require.True(t, ok)
	assert.True(t, ir.Equal(critSecond["original"], items[1]))
}

func TestCallBatchExhausted(t *testing.T) {
	p := &scripted{replies: []ir.Value{
		ir.String("bad"), ir.String("bad"),
	}}
	inv := NewInvoker(testTypes(), WithProvider(p), WithDefaultProvider("scripted"))

	items := ir.List{ir.Object{"q": ir.String("a")}}
	_, _, err := inv.CallBatch(context.Background(), Request{Target: "CalcResult", MaxAttempts: 2}, items)
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
}
