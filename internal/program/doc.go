// Package program loads a graph program from its line-delimited record
// format. Each line is one self-describing JSON record with a "kind"
// discriminator; imports are resolved relative to the importing file and
// merged transitively. The loader produces four immutable tables: type
// declarations, function nodes, flow edges, and tool declarations.
package program
