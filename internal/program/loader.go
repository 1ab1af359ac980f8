package program

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/typesys"
)

// record is the envelope every program line decodes into. Kind selects
// which of the remaining fields are meaningful.
type record struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`

	// @shape and @def
	Fields     json.RawMessage `json:"fields"`
	Defaults   json.RawMessage `json:"defaults"`
	Doc        string          `json:"doc"`
	Type       json.RawMessage `json:"type"`
	Constraint json.RawMessage `json:"constraint"`

	// @import
	Path string `json:"path"`

	// @flow
	Edges json.RawMessage `json:"edges"`

	// @tool
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	InputSchema    string          `json:"input_schema"`
	OutputSchema   string          `json:"output_schema"`
	Implementation json.RawMessage `json:"implementation"`

	// @fn
	In     json.RawMessage `json:"in"`
	Const  json.RawMessage `json:"@const"`
	Ops    json.RawMessage `json:"@op"`
	LLM    json.RawMessage `json:"@llm"`
	Expect json.RawMessage `json:"@expect"`
	Retry  json.RawMessage `json:"@retry"`
}

// Load parses a program file and its transitive imports into a Program.
// A malformed line fails the whole load.
func Load(path string) (*Program, error) {
	prog := NewProgram()
	if err := loadFile(path, prog, map[string]bool{}); err != nil {
		return nil, err
	}
	return prog, nil
}

func loadFile(path string, prog *Program, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &LoadError{Code: ErrCodeUnreadable, Path: path, Message: err.Error(), Err: err}
	}
	if visited[abs] {
		// Import cycles stop silently; re-entry is not an error.
		slog.Debug("import already loaded, skipping", "path", abs)
		return nil
	}
	visited[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return &LoadError{Code: ErrCodeUnreadable, Path: path, Message: err.Error(), Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: abs, Line: line, Message: err.Error(), Err: err}
		}
		if err := applyRecord(&rec, abs, line, prog, visited); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &LoadError{Code: ErrCodeUnreadable, Path: abs, Message: err.Error(), Err: err}
	}
	return nil
}

func applyRecord(rec *record, path string, line int, prog *Program, visited map[string]bool) error {
	switch rec.Kind {
	case "@import":
		if rec.Path == "" {
			return &LoadError{Code: ErrCodeBadImport, Path: path, Line: line, Message: "import record missing path"}
		}
		child := filepath.Join(filepath.Dir(path), rec.Path)
		return loadFile(child, prog, visited)

	case "@shape":
		decl, err := parseShape(rec)
		if err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: path, Line: line, Message: err.Error(), Err: err}
		}
		prog.Types[decl.Name] = decl

	case "@def":
		decl, err := parseDef(rec)
		if err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: path, Line: line, Message: err.Error(), Err: err}
		}
		prog.Types[decl.Name] = decl

	case "@fn":
		fn, err := parseFn(rec)
		if err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: path, Line: line, Message: err.Error(), Err: err}
		}
		prog.Functions[fn.ID] = fn

	case "@flow":
		edges, err := parseEdges(rec.Edges)
		if err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: path, Line: line, Message: err.Error(), Err: err}
		}
		prog.Edges = append(prog.Edges, edges...)

	case "@tool":
		tool, err := parseTool(rec)
		if err != nil {
			return &LoadError{Code: ErrCodeMalformed, Path: path, Line: line, Message: err.Error(), Err: err}
		}
		prog.Tools[tool.ID] = tool

	default:
		// Unrecognized kinds are skipped for forward compatibility.
		slog.Warn("skipping unrecognized record kind", "kind", rec.Kind, "path", path, "line", line)
	}
	return nil
}

func parseShape(rec *record) (*typesys.Decl, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("shape record missing id")
	}
	decl := &typesys.Decl{Name: rec.ID, Doc: rec.Doc}
	if len(rec.Fields) > 0 {
		keys, vals, err := decodeOrderedObject(rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("shape %q fields: %w", rec.ID, err)
		}
		for _, k := range keys {
			var expr string
			if err := json.Unmarshal(vals[k], &expr); err != nil {
				return nil, fmt.Errorf("shape %q field %q: type expression must be a string", rec.ID, k)
			}
			decl.Fields = append(decl.Fields, typesys.ParseField(k, expr))
		}
	}
	if len(rec.Defaults) > 0 {
		v, err := ir.Decode(rec.Defaults)
		if err != nil {
			return nil, fmt.Errorf("shape %q defaults: %w", rec.ID, err)
		}
		obj, ok := ir.AsObject(v)
		if !ok {
			return nil, fmt.Errorf("shape %q defaults: not an object", rec.ID)
		}
		decl.Defaults = obj
	}
	return decl, nil
}

func parseDef(rec *record) (*typesys.Decl, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("def record missing id")
	}
	decl := &typesys.Decl{Name: rec.ID, Doc: rec.Doc, Derived: true}
	if len(rec.Type) > 0 {
		v, err := ir.Decode(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("def %q type: %w", rec.ID, err)
		}
		decl.Alias = v
	} else {
		decl.Alias = ir.String("str")
	}
	if len(rec.Constraint) > 0 {
		v, err := ir.Decode(rec.Constraint)
		if err != nil {
			return nil, fmt.Errorf("def %q constraint: %w", rec.ID, err)
		}
		obj, ok := ir.AsObject(v)
		if !ok {
			return nil, fmt.Errorf("def %q constraint: not an object", rec.ID)
		}
		decl.Constraint = obj
	}
	return decl, nil
}

func parseFn(rec *record) (*FunctionNode, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("fn record missing id")
	}
	fn := &FunctionNode{ID: rec.ID}

	if len(rec.In) > 0 {
		switch rec.In[0] {
		case '"':
			// Single type-name reference declares one input of that name.
			var name string
			if err := json.Unmarshal(rec.In, &name); err != nil {
				return nil, fmt.Errorf("fn %q in: %w", rec.ID, err)
			}
			fn.Inputs = []string{name}
		case '{':
			keys, _, err := decodeOrderedObject(rec.In)
			if err != nil {
				return nil, fmt.Errorf("fn %q in: %w", rec.ID, err)
			}
			fn.Inputs = keys
		case 'n': // null
		default:
			return nil, fmt.Errorf("fn %q in: must be a string or object", rec.ID)
		}
	}

	if len(rec.Const) > 0 {
		keys, vals, err := decodeOrderedObject(rec.Const)
		if err != nil {
			return nil, fmt.Errorf("fn %q @const: %w", rec.ID, err)
		}
		for _, k := range keys {
			v, err := ir.Decode(vals[k])
			if err != nil {
				return nil, fmt.Errorf("fn %q @const %q: %w", rec.ID, k, err)
			}
			fn.Consts = append(fn.Consts, ConstBinding{Name: k, Value: v})
		}
	}

	if len(rec.Ops) > 0 {
		steps, err := parseOps(rec.Ops)
		if err != nil {
			return nil, fmt.Errorf("fn %q @op: %w", rec.ID, err)
		}
		fn.Ops = steps
	}

	if len(rec.LLM) > 0 && !bytes.Equal(rec.LLM, []byte("null")) {
		spec, err := parseInfer(rec.LLM)
		if err != nil {
			return nil, fmt.Errorf("fn %q @llm: %w", rec.ID, err)
		}
		fn.Infer = spec
	}

	if len(rec.Expect) > 0 && !bytes.Equal(rec.Expect, []byte("null")) {
		expect, err := parseExpect(rec.Expect)
		if err != nil {
			return nil, fmt.Errorf("fn %q @expect: %w", rec.ID, err)
		}
		fn.Expect = expect
	}

	if len(rec.Retry) > 0 {
		var retry struct {
			Max int `json:"max"`
		}
		if err := json.Unmarshal(rec.Retry, &retry); err != nil {
			return nil, fmt.Errorf("fn %q @retry: %w", rec.ID, err)
		}
		fn.RetryMax = retry.Max
	}

	return fn, nil
}

func parseOps(raw json.RawMessage) ([]OpStep, error) {
	var rawSteps []json.RawMessage
	if err := json.Unmarshal(raw, &rawSteps); err != nil {
		return nil, err
	}
	steps := make([]OpStep, 0, len(rawSteps))
	for i, rawStep := range rawSteps {
		var parts []json.RawMessage
		if err := json.Unmarshal(rawStep, &parts); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("step %d: empty", i)
		}
		var step OpStep
		if err := json.Unmarshal(parts[0], &step.Name); err != nil {
			return nil, fmt.Errorf("step %d: operation name must be a string", i)
		}
		if len(parts) > 1 && !bytes.Equal(parts[1], []byte("null")) {
			v, err := ir.Decode(parts[1])
			if err != nil {
				return nil, fmt.Errorf("step %d args: %w", i, err)
			}
			if obj, ok := ir.AsObject(v); ok {
				step.Args = obj
			}
		}
		if len(parts) > 2 {
			var meta struct {
				As string `json:"as"`
			}
			if err := json.Unmarshal(parts[2], &meta); err == nil {
				step.Bind = meta.As
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseInfer(raw json.RawMessage) (*InferSpec, error) {
	var spec struct {
		Task     string          `json:"task"`
		Input    json.RawMessage `json:"input"`
		Schema   string          `json:"schema"`
		Provider string          `json:"provider"`
		Model    string          `json:"model"`
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	out := &InferSpec{Task: spec.Task, Target: spec.Schema, Provider: spec.Provider, Model: spec.Model}
	if len(spec.Input) > 0 && !bytes.Equal(spec.Input, []byte("null")) {
		v, err := ir.Decode(spec.Input)
		if err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
		if obj, ok := ir.AsObject(v); ok {
			out.Input = obj
		}
	}
	return out, nil
}

func parseExpect(raw json.RawMessage) (*OutputContract, error) {
	v, err := ir.Decode(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := ir.AsObject(v)
	if !ok {
		return nil, fmt.Errorf("must be an object")
	}
	if typ, ok := ir.AsString(obj["type"]); ok && typ != "" {
		synth, _ := ir.AsBool(obj["synthesize"])
		return &OutputContract{Type: typ, Synthesize: synth}, nil
	}
	// An @expect without a type is an inline result template.
	return &OutputContract{Template: obj}, nil
}

func parseEdges(raw json.RawMessage) ([]FlowEdge, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rawEdges []json.RawMessage
	if err := json.Unmarshal(raw, &rawEdges); err != nil {
		return nil, err
	}
	edges := make([]FlowEdge, 0, len(rawEdges))
	for i, rawEdge := range rawEdges {
		var parts []json.RawMessage
		if err := json.Unmarshal(rawEdge, &parts); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if len(parts) < 2 {
			return nil, fmt.Errorf("edge %d: want [source, destination, meta]", i)
		}
		var edge FlowEdge
		if err := json.Unmarshal(parts[0], &edge.Source); err != nil {
			return nil, fmt.Errorf("edge %d: source must be a string", i)
		}
		if !bytes.Equal(parts[1], []byte("null")) {
			if err := json.Unmarshal(parts[1], &edge.Dest); err != nil {
				return nil, fmt.Errorf("edge %d: destination must be a string or null", i)
			}
		}
		if len(parts) > 2 && !bytes.Equal(parts[2], []byte("null")) {
			v, err := ir.Decode(parts[2])
			if err != nil {
				return nil, fmt.Errorf("edge %d meta: %w", i, err)
			}
			if obj, ok := ir.AsObject(v); ok {
				edge.Meta = obj
			}
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func parseTool(rec *record) (*ToolDecl, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("tool record missing id")
	}
	tool := &ToolDecl{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		InputType:   rec.InputSchema,
		OutputType:  rec.OutputSchema,
	}
	if len(rec.Implementation) > 0 {
		var impl struct {
			Type    string          `json:"type"`
			Command string          `json:"command"`
			URL     string          `json:"url"`
			Method  string          `json:"method"`
			Func    string          `json:"func"`
			Headers json.RawMessage `json:"headers"`
		}
		if err := json.Unmarshal(rec.Implementation, &impl); err != nil {
			return nil, fmt.Errorf("tool %q implementation: %w", rec.ID, err)
		}
		tool.Impl = ToolImpl{Kind: impl.Type, Command: impl.Command, URL: impl.URL, Method: impl.Method, Func: impl.Func}
		if len(impl.Headers) > 0 {
			v, err := ir.Decode(impl.Headers)
			if err == nil {
				if obj, ok := ir.AsObject(v); ok {
					tool.Impl.Headers = obj
				}
			}
		}
	}
	return tool, nil
}

// decodeOrderedObject decodes a JSON object preserving key declaration
// order, which encoding/json maps discard. Field order matters for
// deterministic synthesis and schema projection.
func decodeOrderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("not an object")
	}
	var keys []string
	vals := map[string]json.RawMessage{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("non-string key")
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		vals[key] = val
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}
