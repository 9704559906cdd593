// Package tasks turns a parsed setlist into catalog candidates and a confirmed selection into a playlist, with progress reporting.
//
// # Core Operations
//
//  1. [Resolver.Resolve] : one bounded catalog search per normalized title
//     - Query is the title plus a quoted artist filter
//     - Empty titles are never searched
//     - Results keep the catalog's order, truncated to the bound
//
//  2. [Engine.BuildResolutions] : normalizes and resolves a whole setlist
//     - Duplicate titles collapse to their first position and are searched once
//     - Songs with no candidates stay in the result
//     - Optional bounded parallelism, reassembled in setlist order
//
//  3. [Reconciler.Reconcile] : creates a playlist or appends to one
//     - A failed add after a successful create is a PartialAdd carrying the playlist ID
//     - Catalog failures are Upstream and are not retried
//
// # Progress Reporting
//
// All operations accept an optional channel for [ProgressUpdate] values.
// Updates use select with default so reporting never blocks.
//
// # State
//
// None of the types here hold per-request state. The [models.Resolutions] value returned
// to the caller is the only record of what was offered.
package tasks
