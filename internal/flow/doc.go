// Package flow schedules a program's nodes over its edge graph. Nodes
// run in topological order; guarded edges decide at traversal time
// whether a successor receives its predecessor's result. A run carries
// a UUID identity and accumulates the provenance trace of every node
// executed, including the node that failed.
package flow
