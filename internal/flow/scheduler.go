package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
)

// RunResult is the outcome of one program run. Trace holds a provenance
// record per executed node in execution order, and is populated even
// when the run fails partway.
type RunResult struct {
	RunID  string
	Result ir.Value
	Trace  []*exec.Provenance
}

// Scheduler drives a loaded program through the executor.
type Scheduler struct {
	prog  *program.Program
	exec  *exec.Executor
	newID func() string
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunID pins the run identifier. Tests use it for stable output.
func WithRunID(id string) SchedulerOption {
	return func(s *Scheduler) { s.newID = func() string { return id } }
}

// NewScheduler wires a scheduler over a program and executor. Run IDs
// are time-ordered UUIDs by default.
func NewScheduler(prog *program.Program, ex *exec.Executor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{prog: prog, exec: ex, newID: runID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func runID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Run executes the program against an input value. Nodes run in
// topological order, ties broken lexicographically. Each node receives
// the first declared inbound edge's produced result, falling back to
// the most recently produced result overall; the program input seeds
// that chain. A successor only becomes runnable when the edge that
// completed its dependencies carries a satisfied guard, and nothing
// downstream of a skipped node runs. The run result is the most
// recently produced result across the whole walk.
func (s *Scheduler) Run(ctx context.Context, input ir.Value) (*RunResult, error) {
	res := &RunResult{RunID: s.newID()}

	edges := s.prog.Edges
	if len(edges) == 0 {
		start, err := s.implicitStart()
		if err != nil {
			return res, err
		}
		edges = []program.FlowEdge{{Source: start}}
	}

	if err := s.checkGraph(edges); err != nil {
		return res, err
	}

	indeg := map[string]int{}
	outbound := map[string][]program.FlowEdge{}
	inbound := map[string][]program.FlowEdge{}
	for _, e := range edges {
		if _, ok := indeg[e.Source]; !ok {
			indeg[e.Source] = 0
		}
		if e.Dest == "" {
			continue
		}
		indeg[e.Dest]++
		outbound[e.Source] = append(outbound[e.Source], e)
		inbound[e.Dest] = append(inbound[e.Dest], e)
	}

	var queue []string
	for node, deg := range indeg {
		if deg == 0 {
			queue = append(queue, node)
		}
	}
	sort.Strings(queue)

	results := map[string]ir.Value{}
	executed := map[string]bool{}
	last := input

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		if executed[nodeID] {
			continue
		}
		fn := s.prog.Functions[nodeID]

		in := ir.Value(nil)
		for _, e := range inbound[nodeID] {
			if executed[e.Source] {
				in = results[e.Source]
				break
			}
		}
		if ir.IsNull(in) {
			in = last
		}

		out, prov, err := s.exec.Run(ctx, fn, in)
		if prov != nil {
			res.Trace = append(res.Trace, prov)
		}
		if err != nil {
			return res, fmt.Errorf("node %q: %w", nodeID, err)
		}

		results[nodeID] = out
		executed[nodeID] = true
		last = out

		var ready []string
		for _, e := range outbound[nodeID] {
			indeg[e.Dest]--
			if indeg[e.Dest] > 0 {
				continue
			}
			if EvalGuard(e.Guard(), out) {
				ready = append(ready, e.Dest)
			} else {
				slog.Debug("edge guard unsatisfied, destination skipped",
					"src", nodeID, "dst", e.Dest, "run_id", res.RunID)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	res.Result = last
	if res.Result == nil {
		res.Result = ir.Null{}
	}
	return res, nil
}

// implicitStart picks the entry point for a program declaring no flow:
// the lexicographically first node with no declared inputs runs as a
// single start.
func (s *Scheduler) implicitStart() (string, error) {
	var candidates []string
	for id, fn := range s.prog.Functions {
		if len(fn.Inputs) == 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no runnable nodes: no flow declared and every node takes an input")
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// checkGraph verifies edge endpoints and rejects cycles before the walk
// starts.
func (s *Scheduler) checkGraph(edges []program.FlowEdge) error {
	indeg := map[string]int{}
	succ := map[string][]string{}
	for _, e := range edges {
		if _, ok := s.prog.Functions[e.Source]; !ok {
			return fmt.Errorf("edge references undefined node %q", e.Source)
		}
		if _, ok := indeg[e.Source]; !ok {
			indeg[e.Source] = 0
		}
		if e.Dest == "" {
			continue
		}
		if _, ok := s.prog.Functions[e.Dest]; !ok {
			return fmt.Errorf("edge references undefined node %q", e.Dest)
		}
		indeg[e.Dest]++
		succ[e.Source] = append(succ[e.Source], e.Dest)
	}

	var queue []string
	for node, deg := range indeg {
		if deg == 0 {
			queue = append(queue, node)
		}
	}
	seen := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		seen++
		for _, next := range succ[node] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if seen < len(indeg) {
		var stuck []string
		for node, deg := range indeg {
			if deg > 0 {
				stuck = append(stuck, node)
			}
		}
		sort.Strings(stuck)
		return fmt.Errorf("flow graph has a cycle involving %v", stuck)
	}
	return nil
}
