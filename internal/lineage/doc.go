// Package lineage recovers table and column lineage from raw SQL text.
//
// The input is untrusted, often LLM-authored, and frequently malformed, so
// this package deliberately avoids a grammar. Extraction is a fixed set of
// independent structural patterns (quoted identifiers, FROM/JOIN clauses,
// ON/USING predicates, WHERE, GROUP BY, SELECT-list aliases) applied to the
// raw string. A pattern that fails to match leaves its field empty; nothing
// in this package panics or returns an error for any input.
//
// Known limitations, accepted by design:
//
//   - Pattern tokens inside string literals produce false positives.
//   - WHERE splitting on AND does not descend into parentheses.
//   - The USING join heuristic pairs the two most recently declared
//     aliases, which is not provably correct for 3+ way joins.
//
// The output is a flat Facts value. Downstream packages turn Facts into a
// typed graph and a flow layout; nothing here holds state between calls.
package lineage
