package stdops

import (
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
)

// checkTarget enforces the outbound HTTP policy: the host must be on the
// allowlist (empty list denies everything), and local or private targets
// are rejected unless the block is lifted.
func checkTarget(octx *exec.OpContext, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "not an http(s) url: " + raw,
		}
	}
	host := u.Hostname()

	allowed := false
	for _, h := range octx.Cfg.HTTPAllowlist {
		if h == host {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "host not on the allowlist: " + host,
		}
	}

	if octx.Cfg.HTTPBlockLocal && isLocalHost(host) {
		return nil, &exec.RuntimeError{
			Code:    exec.ErrCodeSandbox,
			Message: "local or private target blocked: " + host,
		}
	}
	return u, nil
}

func isLocalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

func opHTTPGet(octx *exec.OpContext, args ir.Object) (ir.Value, error) {
	raw, err := argString(args, "url")
	if err != nil {
		return nil, err
	}
	u, err := checkTarget(octx, raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(octx.Ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	if headers, ok := ir.AsObject(args["headers"]); ok {
		for k, v := range headers {
			if s, ok := ir.AsString(v); ok {
				req.Header.Set(k, s)
			}
		}
	}

	client := &http.Client{Timeout: octx.Cfg.HTTPTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, octx.Cfg.HTTPMaxBytes))
	if err != nil {
		return nil, &exec.RuntimeError{Code: exec.ErrCodeExternalCall, Message: err.Error(), Err: err}
	}
	return ir.Object{
		"status": ir.Number(resp.StatusCode),
		"body":   ir.String(body),
	}, nil
}

func registerHTTP(r *exec.Registry) {
	r.Register("http_get", opHTTPGet)
}
