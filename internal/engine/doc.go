// Package engine implements the moa incompatibility-propagation rule engine.
//
// A Matrix is assembled from a Reader (categories, choices, options and
// filters keyed by name). Options inside one Choice are mutually
// incompatible; Filters disable options whose attribute value falls outside
// the selected range.
//
// REFERENCE COUNTING:
//
// An option is disabled while at least one reason is active. Reasons are
// kept as a set rather than a bare counter:
//   - {sibling, X}: option X in the same choice is selected
//   - {filter, F}:  filter F's range excludes this option
//
// IncompatibilityCount() is the size of that set. Adding a reason that is
// already active, or releasing one that is not, panics with an
// InvariantViolation instead of clamping.
//
// INVARIANTS:
//   - Disabled() == (IncompatibilityCount() > 0), at every observation point
//   - An option is never both selected and disabled; a filter that excludes
//     a selected option deselects it first
//   - Choice wiring is symmetric and happens exactly once
//
// CONCURRENCY:
//
// Matrix and its entities are not safe for concurrent use. Hosts with more
// than one goroutine route every mutation through Engine, a single-writer
// event loop that processes one event at a time:
//   - Events enqueued to a FIFO queue (toggles and range changes)
//   - Engine.Run() dequeues events one at a time
//   - Each event runs to completion and is stamped with a logical seq
//   - Option state flips are recorded in the trace and fanned out to observers
package engine
