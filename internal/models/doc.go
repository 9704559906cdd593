// Package models defines the domain entities shared by the setlist import engine.
//
// The package contains two categories of types:
//
// 1. Engine values: request-scoped data that flows from a setlist page to a playlist
//   - [SetlistPage] : Artist and ordered raw titles read from one setlist page
//   - [TrackCandidate] : One catalog search result offered for a song
//   - [Resolutions] : Ordered song -> candidates mapping shown to the user
//   - [SelectionRequest] : The user's confirmed tracks plus create or append target
//   - [ReconciliationResult] : Outcome of a playlist create or append
//
// 2. Persistent Entities: Database-backed records
//   - [ImportRecord] : Outcome of one reconciliation, kept for the history command
//
// Persistent entities implement the Model interface. The Repository[T] interface defines standard CRUD operations for database access.
package models
