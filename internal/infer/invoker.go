package infer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/typesys"
)

const defaultMaxAttempts = 3

// Request is one inference call: a task brief, its input value,
// and the declared type the reply must satisfy.
type Request struct {
	Task  string
	Input ir.Value
	// Target names the declared type constraining the reply.
	Target string
	// Provider and Model override the invoker defaults when non-empty.
	Provider string
	Model    string
	// MaxAttempts bounds total attempts for this request. Zero means the
	// invoker default.
	MaxAttempts int
}

// Trace records one provider attempt for provenance.
type Trace struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	InputHash  string `json:"input_hash"`
	OutputHash string `json:"output_hash,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Conforming bool   `json:"conforming"`
}

// Invoker validates provider replies against declared types and drives
// the critique-retry loop.
type Invoker struct {
	types       *typesys.System
	providers   map[string]Provider
	defaultName string
	maxAttempts int
	now         func() time.Time
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithProvider registers an additional backend.
func WithProvider(p Provider) Option {
	return func(inv *Invoker) { inv.providers[p.Name()] = p }
}

// WithDefaultProvider sets the backend used when a request names none.
func WithDefaultProvider(name string) Option {
	return func(inv *Invoker) { inv.defaultName = name }
}

// WithMaxAttempts sets the default attempt budget.
func WithMaxAttempts(n int) Option {
	return func(inv *Invoker) {
		if n > 0 {
			inv.maxAttempts = n
		}
	}
}

// WithClock injects the timestamp source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(inv *Invoker) { inv.now = now }
}

// NewInvoker builds an invoker with the mock provider registered. More
// backends and the default selection come in through options.
func NewInvoker(types *typesys.System, opts ...Option) *Invoker {
	inv := &Invoker{
		types:       types,
		providers:   map[string]Provider{"mock": Mock{}},
		defaultName: "mock",
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Call runs the attempt loop for one request. Every failed attempt,
// transport errors included, wraps the attempt's input and the failure
// into a critique payload that becomes the next attempt's input, so the
// provider can repair its reply. Traces cover every attempt made.
func (inv *Invoker) Call(ctx context.Context, req Request) (ir.Value, []Trace, error) {
	provider, err := inv.resolve(req.Provider)
	if err != nil {
		return nil, nil, err
	}
	schema, err := inv.types.Schema(req.Target)
	if err != nil {
		return nil, nil, err
	}

	budget := req.MaxAttempts
	if budget <= 0 {
		budget = inv.maxAttempts
	}

	var traces []Trace
	input := req.Input
	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		prompt := Prompt{Task: req.Task, Input: input, Schema: schema, Model: req.Model}
		start := inv.now()
		reply, genErr := provider.Generate(ctx, prompt)
		trace := Trace{
			Provider:   provider.Name(),
			Model:      req.Model,
			InputHash:  ir.Hash(input),
			DurationMS: inv.now().Sub(start).Milliseconds(),
		}
		if genErr != nil {
			traces = append(traces, trace)
			lastErr = genErr
			slog.Debug("inference attempt failed", "target", req.Target, "attempt", attempt, "err", genErr)
			input = critique(input, genErr, schema)
			continue
		}
		trace.OutputHash = ir.Hash(reply)

		if valErr := inv.types.Validate(reply, req.Target); valErr != nil {
			trace.Conforming = false
			traces = append(traces, trace)
			lastErr = valErr
			slog.Debug("inference reply rejected", "target", req.Target, "attempt", attempt, "err", valErr)
			input = critique(input, valErr, schema)
			continue
		}

		trace.Conforming = true
		traces = append(traces, trace)
		return reply, traces, nil
	}
	return nil, traces, &ExhaustedError{Task: req.Task, Target: req.Target, Attempts: budget, Last: lastErr}
}

// CallBatch generates one reply per input and retries the whole batch
// when any reply fails: every item's input is wrapped in a critique
// carrying the failure, and the full list is re-prompted against the
// same budget.
func (inv *Invoker) CallBatch(ctx context.Context, req Request, items ir.List) (ir.List, []Trace, error) {
	provider, err := inv.resolve(req.Provider)
	if err != nil {
		return nil, nil, err
	}
	schema, err := inv.types.Schema(req.Target)
	if err != nil {
		return nil, nil, err
	}

	budget := req.MaxAttempts
	if budget <= 0 {
		budget = inv.maxAttempts
	}

	inputs := make(ir.List, len(items))
	copy(inputs, items)

	var traces []Trace
	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		results := make(ir.List, 0, len(inputs))
		var attemptErr error
		for _, item := range inputs {
			prompt := Prompt{Task: req.Task, Input: item, Schema: schema, Model: req.Model}
			start := inv.now()
			reply, genErr := provider.Generate(ctx, prompt)
			trace := Trace{
				Provider:   provider.Name(),
				Model:      req.Model,
				InputHash:  ir.Hash(item),
				DurationMS: inv.now().Sub(start).Milliseconds(),
			}
			if genErr != nil {
				traces = append(traces, trace)
				attemptErr = genErr
				break
			}
			trace.OutputHash = ir.Hash(reply)
			if valErr := inv.types.Validate(reply, req.Target); valErr != nil {
				traces = append(traces, trace)
				attemptErr = valErr
				break
			}
			trace.Conforming = true
			traces = append(traces, trace)
			results = append(results, reply)
		}
		if attemptErr == nil {
			return results, traces, nil
		}
		lastErr = attemptErr
		slog.Debug("inference batch attempt failed", "target", req.Target, "attempt", attempt, "err", attemptErr)
		for i := range inputs {
			inputs[i] = critique(inputs[i], attemptErr, schema)
		}
	}
	return nil, traces, &ExhaustedError{Task: req.Task, Target: req.Target, Attempts: budget, Last: lastErr}
}

func (inv *Invoker) resolve(name string) (Provider, error) {
	if name == "" {
		name = inv.defaultName
	}
	p, ok := inv.providers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %q", ErrCodeUnknownProvider, name)
	}
	return p, nil
}

// critique wraps a failed attempt's input for the repair attempt.
func critique(original ir.Value, failure error, schema ir.Object) ir.Object {
	if original == nil {
		original = ir.Null{}
	}
	return ir.Object{
		"original":        original,
		"error":           ir.String(failure.Error()),
		"expected_schema": schema,
	}
}
