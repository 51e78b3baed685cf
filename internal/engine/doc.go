// Package engine drives a generation run and holds the machinery every
// flavor shares.
//
// Generate looks the flavor up in the registry, validates its template
// sections, and collects its documents in memory; nothing touches the output
// directory until the caller hands the documents to the output package, so a
// fatal error leaves no partial output behind.
//
// Env wraps the per-run dependencies with the node lifecycle each device goes
// through: tracked as Pending, resolved, then either emitted or skipped with
// a ledger entry. Instantiation, expression linting and the whole-building
// meter lookup live here too.
package engine
