// Package ir defines the tagged value representation that flows through a
// program run: a sealed variant over the six JSON-shaped forms (null, bool,
// number, string, list, object), plus canonical serialization and short
// content hashes used for provenance.
//
// Values are dynamic by design - programs carry arbitrary JSON - but every
// use site goes through explicit, type-checked accessors rather than
// interface{} assertions scattered through the runtime.
package ir
