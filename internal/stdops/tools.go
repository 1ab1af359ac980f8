package stdops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	osexec "os/exec"
	"strings"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
	"github.com/tberndt/weft/internal/program"
)

// opToolCall dispatches to a declared tool by id. The implementation
// kind selects the strategy: a shell command with {placeholder}
// substitution, an HTTP POST of the input payload, or a registered
// builtin operation.
func opToolCall(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	id, err := argString(args, "tool")
	if err != nil {
		return nil, err
	}
	tool, ok := octx.Tools[id]
	if !ok {
		return nil, fmt.Errorf("tool_call: no declared tool %q", id)
	}
	input, _ := ir.AsObject(args["input"])

	switch tool.Impl.Kind {
	case "command":
		return runCommandTool(octx, tool.Impl.Command, input)
	case "http":
		return runHTTPTool(octx, tool, input)
	case "builtin":
		return octx.Call(tool.Impl.Func, input)
	default:
		return nil, fmt.Errorf("tool_call: tool %q has unsupported implementation %q", id, tool.Impl.Kind)
	}
}

func runCommandTool(octx *exec.OpContext, template string, input ir.Object) (ir.Value, error) {
	cmdline := substitute(template, input)

	if len(octx.Cfg.ToolAllowlist) > 0 {
		head := strings.Fields(cmdline)
		allowed := false
		if len(head) > 0 {
			for _, name := range octx.Cfg.ToolAllowlist {
				if name == head[0] {
					allowed = true
					break
				}
			}
		}
		if !allowed {
			return nil, &exec.RuntimeError{
				Code:    exec.ErrCodeSandbox,
				Message: "command not on the tool allowlist: " + cmdline,
			}
		}
	}

	ctx, cancel := context.WithTimeout(octx.Ctx, octx.Cfg.ToolTimeout)
	defer cancel()
	cmd := osexec.CommandContext(ctx, "sh", "-c", cmdline)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeExternalCall,
			Message: fmt.Sprintf("command failed: %v: %s", err, strings.TrimSpace(stderr.String())),
			Err:     err,
		}
	}
	return parseToolOutput(stdout.Bytes()), nil
}

func runHTTPTool(octx *exec.OpContext, tool *program.ToolDecl, input ir.Object) (ir.Value, error) {
	u, err := checkTarget(octx, tool.Impl.URL)
	if err != nil {
		return nil, err
	}
	method := tool.Impl.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if input != nil {
		body = bytes.NewReader(ir.MarshalCanonical(input))
	}
	req, err := http.NewRequestWithContext(octx.Ctx, method, u.String(), body)
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range tool.Impl.Headers {
		if s, ok := ir.AsString(v); ok {
			req.Header.Set(k, s)
		}
	}

	client := &http.Client{Timeout: octx.Cfg.ToolTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, octx.Cfg.HTTPMaxBytes))
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeExternalCall,
			Message: fmt.Sprintf("tool returned status %d", resp.StatusCode),
		}
	}
	return parseToolOutput(raw), nil
}

// substitute fills {name} placeholders from the input object. Values
// render as canonical JSON except bare strings, which stay unquoted.
func substitute(template string, input ir.Object) string {
	out := template
	for k, v := range input {
		var repl string
		if s, ok := ir.AsString(v); ok {
			repl = s
		} else {
			repl = string(ir.MarshalCanonical(v))
		}
		out = strings.ReplaceAll(out, "{"+k+"}", repl)
	}
	return out
}

// parseToolOutput decodes tool output as JSON when it parses, otherwise
// returns the trimmed text.
func parseToolOutput(raw []byte) ir.Value {
	trimmed := strings.TrimSpace(string(raw))
	if v, err := ir.Decode([]byte(trimmed)); err == nil {
		return v
	}
	return ir.String(trimmed)
}

func registerTools(r *exec.Registry) {
	r.Register("tool_call", opToolCall)
}
