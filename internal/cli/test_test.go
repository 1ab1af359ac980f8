package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandSuitePasses(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", "testdata/suite.yaml", "--format", "json"})

	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "test-suite", buf.Bytes())
}

func TestTestCommandFailingCase(t *testing.T) {
	dir := t.TempDir()
	program := `{"kind": "@fn", "id": "three", "@op": [["add", {"a": 1, "b": 2}]]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.jsonl"), []byte(program+"\n"), 0o644))
	suite := `cases:
  - name: wrong-expectation
    program: prog.jsonl
    input: null
    expect: 4
`
	suitePath := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(suite), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", suitePath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "wrong-expectation")
}

func TestTestCommandEmptySuite(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte("cases: []\n"), 0o644))

	_, err := executeCommand(t, "test", suitePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommandOK(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "testdata/calc.jsonl", "--format", "json"})

	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "validate-ok", buf.Bytes())
}

func TestValidateCommandReportsIssues(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "testdata/bad.jsonl", "--format", "json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "validate-issues", buf.Bytes())
}
