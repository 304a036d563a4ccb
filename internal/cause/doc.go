// Package cause models why a run started.
//
// A run carries a Chain: an ordered list of root Cause values. Causes form a
// closed set of variants (manual, user, timer, remote, SCM, upstream, and the
// deeply-nested placeholder). An UpstreamCause embeds a value copy of the
// triggering run's own chain, so provenance nests as a tree that is built
// bottom-up and can never contain a cycle.
//
// Size is bounded at construction time by a Policy:
//   - MaxDepth: levels of UpstreamCause nesting below a run
//   - MaxUpstreams: UpstreamCause nodes embedded in one upstream snapshot
//   - MaxCauses: root entries retained in one chain
//
// Every Chain produced by a Policy already satisfies these bounds, and every
// UpstreamCause snapshots an already-bounded chain, so the bounds hold
// incrementally without whole-graph walks. Chains restored from storage may
// violate the current bounds; they are accepted as-is and re-bounded the next
// time a new chain references them.
//
// Values in this package are immutable once constructed and safe for
// concurrent use. Nothing here performs I/O; identity lookup for rendering
// is injected through the Resolver interface.
package cause
