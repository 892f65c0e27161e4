// Package policy compiles declared access rules into installed row-level
// policies.
//
// Declared rules accumulate over time and overlap: several permissive
// predicates for the same table and action force the enforcement layer to
// evaluate and OR them on every row, and inline identity calls get
// re-resolved once per row instead of once per query. Compile is a pure
// function from the full rule set to a minimal policy set: one permissive
// predicate per (table, action, audience), with every identity reference
// lifted into a single bound parameter. Install applies a compiled batch
// transactionally and idempotently, so re-running compilation against an
// unchanged rule set is a no-op and a failed run leaves the previously
// installed policies intact.
package policy
