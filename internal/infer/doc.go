// Package infer brokers schema-constrained inference calls. A provider
// turns a task brief plus an interchange schema into a candidate value;
// the invoker validates the candidate against the declared target type
// and re-prompts with a critique of the failure until the reply conforms
// or the retry budget runs out. The mock provider synthesizes conforming
// values directly from the schema and is the default backend.
package infer
