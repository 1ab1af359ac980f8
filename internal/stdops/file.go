package stdops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
)

// safeJoin resolves a program-supplied path under the IO root, rejecting
// absolute paths and any traversal that would escape it.
func safeJoin(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "absolute paths are not allowed: " + rel,
		}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	joined := filepath.Clean(filepath.Join(absRoot, rel))
	if joined != absRoot && !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "path escapes the IO root: " + rel,
		}
	}
	return joined, nil
}

func opReadFile(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	rel, err := argString(args, "path")
	if err != nil {
		return nil, err
	}
	path, err := safeJoin(octx.Cfg.IORoot, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeExternalCall,
			Message: err.Error(),
			Err:     err,
		}
	}
	return ir.String(data), nil
}

func opWriteFile(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	if !octx.Cfg.AllowWrite {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "writes are disabled",
		}
	}
	rel, err := argString(args, "path")
	if err != nil {
		return nil, err
	}
	content, err := argString(args, "content")
	if err != nil {
		return nil, err
	}
	path, err := safeJoin(octx.Cfg.IORoot, rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	return ir.Object{"path": ir.String(rel), "bytes": ir.Number(len(content))}, nil
}

func registerFile(r *exec.Registry) {
	r.Register("read_file", opReadFile)
	r.Register("write_file", opWriteFile)
}
