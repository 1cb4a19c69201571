// Package engine implements the compliance matching and deviation engine.
//
// The engine consumes a validated procedure (package sop) and a
// timestamp-ordered stream of observed worker actions, and produces a list
// of severity-tagged deviations plus a run summary. Internally it is built
// from four collaborators:
//
//   - Matcher: scores each observed action against every procedure step
//     using an injected Embedder and picks the best candidate, with a
//     continuity-biased tie-break.
//   - Tracker: a per-run state machine that follows the procedure cursor,
//     detecting skipped, repeated, and out-of-order steps.
//   - RuleChecker: stateless tool, safety-equipment, and zone checks for
//     each matched action; timing overruns are checked once at end of run.
//   - Classifier: maps raw deviations to severities using a configurable
//     policy table and optional expression-based escalation rules.
//
// Processing within one run is strictly sequential over the action stream;
// the tracker cursor is order-dependent. Embedding lookups are pure and may
// be cached or batched by the Embedder implementation (see package
// providers).
package engine
