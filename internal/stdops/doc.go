// Package stdops provides the built-in operation library: arithmetic
// and expression evaluation, string and JSON manipulation, sandboxed
// file access, allowlisted HTTP, declared-tool invocation, and the
// combinators that compose other operations or inference calls.
package stdops
