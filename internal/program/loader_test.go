package program

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tberndt/weft/internal/ir"
)

func writeProgram(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadShapesAndDefs(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@shape", "id": "CalcResult", "fields": {"value": "float", "note?": "str"}, "defaults": {"value": 0}}
{"kind": "@def", "id": "Status", "type": ["pending", "done"]}
{"kind": "@def", "id": "ShortName", "type": "str", "constraint": {"minLength": 2}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, prog.Types, 3)

	calc := prog.Types["CalcResult"]
	require.NotNil(t, calc)
	require.Len(t, calc.Fields, 2)
	assert.Equal(t, "value", calc.Fields[0].Name)
	assert.False(t, calc.Fields[0].Optional)
	assert.Equal(t, "note", calc.Fields[1].Name)
	assert.True(t, calc.Fields[1].Optional)
	assert.True(t, ir.Equal(calc.Defaults["value"], ir.Number(0)))

	status := prog.Types["Status"]
	require.NotNil(t, status)
	assert.True(t, status.Derived)
	assert.True(t, ir.Equal(status.Alias, ir.List{ir.String("pending"), ir.String("done")}))

	short := prog.Types["ShortName"]
	require.NotNil(t, short)
	assert.True(t, ir.Equal(short.Constraint["minLength"], ir.Number(2)))
}

func TestLoadFunctionNode(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@fn", "id": "compute", "in": {"a": "float", "b": "float"}, "@const": {"scale": 2}, "@op": [["add", {"a": "$a", "b": "$b"}, {"as": "total"}], ["mul", {"a": "$total", "b": "$scale"}]], "@expect": {"type": "CalcResult"}, "@retry": {"max": 5}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	fn := prog.Functions["compute"]
	require.NotNil(t, fn)

	assert.Equal(t, []string{"a", "b"}, fn.Inputs)
	require.Len(t, fn.Consts, 1)
	assert.Equal(t, "scale", fn.Consts[0].Name)

	require.Len(t, fn.Ops, 2)
	assert.Equal(t, "add", fn.Ops[0].Name)
	assert.Equal(t, "total", fn.Ops[0].Bind)
	assert.True(t, ir.Equal(fn.Ops[0].Args["a"], ir.String("$a")))
	assert.Equal(t, "mul", fn.Ops[1].Name)
	assert.Empty(t, fn.Ops[1].Bind)

	require.NotNil(t, fn.Expect)
	assert.Equal(t, "CalcResult", fn.Expect.Type)
	assert.Equal(t, 5, fn.RetryMax)
}

func TestLoadInferenceAndTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@fn", "id": "classify", "in": "text", "@llm": {"task": "classify sentiment", "input": {"text": "$text"}, "schema": "Status", "provider": "mock"}}
{"kind": "@fn", "id": "wrap", "@expect": {"value": "$result"}}
`)

	prog, err := Load(path)
	require.NoError(t, err)

	classify := prog.Functions["classify"]
	require.NotNil(t, classify)
	assert.Equal(t, []string{"text"}, classify.Inputs)
	require.NotNil(t, classify.Infer)
	assert.Equal(t, "classify sentiment", classify.Infer.Task)
	assert.Equal(t, "Status", classify.Infer.Target)
	assert.Equal(t, "mock", classify.Infer.Provider)

	wrap := prog.Functions["wrap"]
	require.NotNil(t, wrap)
	require.NotNil(t, wrap.Expect)
	assert.Empty(t, wrap.Expect.Type)
	assert.True(t, ir.Equal(wrap.Expect.Template["value"], ir.String("$result")))
}

func TestLoadFlowEdges(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@flow", "id": "main", "edges": [["a", "b", {"when": {"gte": ["$result.value", 4]}}], ["b", null, null]]}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, prog.Edges, 2)

	assert.Equal(t, "a", prog.Edges[0].Source)
	assert.Equal(t, "b", prog.Edges[0].Dest)
	require.NotNil(t, prog.Edges[0].Guard())

	assert.Equal(t, "b", prog.Edges[1].Source)
	assert.Empty(t, prog.Edges[1].Dest)
	assert.Nil(t, prog.Edges[1].Guard())
}

func TestLoadTool(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@tool", "id": "word_count", "name": "Word Count", "input_schema": "TextIn", "output_schema": "CountOut", "implementation": {"type": "command", "command": "wc -w {file}"}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	tool := prog.Tools["word_count"]
	require.NotNil(t, tool)
	assert.Equal(t, "Word Count", tool.Name)
	assert.Equal(t, "command", tool.Impl.Kind)
	assert.Equal(t, "wc -w {file}", tool.Impl.Command)
}

func TestLoadImports(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "types.jsonl", `
{"kind": "@shape", "id": "CalcResult", "fields": {"value": "float"}}
`)
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@import", "path": "types.jsonl"}
{"kind": "@fn", "id": "compute", "@expect": {"type": "CalcResult"}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, prog.Types, "CalcResult")
	assert.Contains(t, prog.Functions, "compute")
}

func TestLoadImportCycleIsSilent(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "a.jsonl", `
{"kind": "@import", "path": "b.jsonl"}
{"kind": "@shape", "id": "A", "fields": {}}
`)
	writeProgram(t, dir, "b.jsonl", `
{"kind": "@import", "path": "a.jsonl"}
{"kind": "@shape", "id": "B", "fields": {}}
`)

	prog, err := Load(filepath.Join(dir, "a.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, prog.Types, "A")
	assert.Contains(t, prog.Types, "B")
}

func TestLoadMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@shape", "id": "Good", "fields": {}}
{not json at all
`)

	_, err := Load(path)
	require.Error(t, err)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeMalformed, loadErr.Code)
	assert.Equal(t, 3, loadErr.Line)
}

func TestLoadUnknownKindSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@future_thing", "id": "x"}
{"kind": "@shape", "id": "Good", "fields": {}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, prog.Types, "Good")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeUnreadable, loadErr.Code)
}

func TestLoadPreservesFieldOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "main.jsonl", `
{"kind": "@shape", "id": "Ordered", "fields": {"zeta": "str", "alpha": "str", "mid": "int"}}
`)

	prog, err := Load(path)
	require.NoError(t, err)
	decl := prog.Types["Ordered"]
	require.NotNil(t, decl)
	require.Len(t, decl.Fields, 3)
	assert.Equal(t, "zeta", decl.Fields[0].Name)
	assert.Equal(t, "alpha", decl.Fields[1].Name)
	assert.Equal(t, "mid", decl.Fields[2].Name)
}
