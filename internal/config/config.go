// Package config resolves runtime settings from the environment. Every
// knob has a safe default: the mock provider, a sandboxed read-only IO
// root, and outbound HTTP denied unless explicitly allowlisted.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Provider selects the inference backend: "mock", "openai", or
	// "anthropic".
	Provider string
	// Model overrides the provider's default model when non-empty.
	Model string

	// IORoot is the directory file operations are confined to.
	IORoot string
	// AllowWrite enables the write_file operation.
	AllowWrite bool

	// HTTPAllowlist is the set of hosts http_get may contact. Empty means
	// all outbound HTTP is denied.
	HTTPAllowlist []string
	HTTPTimeout   time.Duration
	// HTTPMaxBytes caps the bytes read from a response body.
	HTTPMaxBytes int64
	// HTTPBlockLocal rejects loopback, private, and link-local targets.
	HTTPBlockLocal bool

	// Trace enables per-node environment snapshots in debug logs.
	Trace bool
	// MinimalProvenance drops inference sub-records from provenance.
	MinimalProvenance bool

	// MaxDepth bounds nested operation calls.
	MaxDepth int

	ToolTimeout   time.Duration
	ToolAllowlist []string
}

// Load reads configuration from WEFT_-prefixed environment variables.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "mock")
	v.SetDefault("model", "")
	v.SetDefault("io_root", ".")
	v.SetDefault("allow_write", false)
	v.SetDefault("http_allowlist", "")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("http_max_bytes", 1_000_000)
	v.SetDefault("http_block_local", true)
	v.SetDefault("trace", false)
	v.SetDefault("minimal_provenance", false)
	v.SetDefault("max_depth", 64)
	v.SetDefault("tool_timeout", "30s")
	v.SetDefault("tool_allowlist", "")

	return &Config{
		Provider:          v.GetString("provider"),
		Model:             v.GetString("model"),
		IORoot:            v.GetString("io_root"),
		AllowWrite:        v.GetBool("allow_write"),
		HTTPAllowlist:     splitList(v.GetString("http_allowlist")),
		HTTPTimeout:       v.GetDuration("http_timeout"),
		HTTPMaxBytes:      v.GetInt64("http_max_bytes"),
		HTTPBlockLocal:    v.GetBool("http_block_local"),
		Trace:             v.GetBool("trace"),
		MinimalProvenance: v.GetBool("minimal_provenance"),
		MaxDepth:          v.GetInt("max_depth"),
		ToolTimeout:       v.GetDuration("tool_timeout"),
		ToolAllowlist:     splitList(v.GetString("tool_allowlist")),
	}
}

// Default returns the built-in configuration without consulting the
// environment. Tests use it for hermetic runs.
func Default() *Config {
	return &Config{
		Provider:       "mock",
		IORoot:         ".",
		HTTPTimeout:    10 * time.Second,
		HTTPMaxBytes:   1_000_000,
		HTTPBlockLocal: true,
		MaxDepth:       64,
		ToolTimeout:    30 * time.Second,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
