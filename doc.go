// Package obs provides a structured-observability runtime built around
// units of work.
//
// Typical flow:
//  1. Register one or more sinks on a Registry (or use the process default,
//     which ships with a console sink).
//  2. Wrap an operation in Observe. The runtime creates a Unit, binds it
//     into the context, and runs the work.
//  3. Inside the work, attach telemetry to the current unit with Set, Push
//     and Merge. Nested Observe calls shadow the outer unit; concurrent
//     call trees never see each other.
//  4. When the work returns, the finished unit is fanned out to every
//     registered sink exactly once, matching the work's outcome.
//
// Network-bound sinks ship units through the batch package, which provides
// a bounded retrying delivery queue. See sinks/redisink for a complete
// example.
package obs
