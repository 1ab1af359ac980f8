// Package exec runs individual function nodes: it binds inputs into an
// environment, drives the operation pipeline through the registry, hands
// inference steps to the invoker, enforces the node's output contract,
// and emits a provenance record for every run.
package exec
