// Package ui implements an interactive terminal picker using bubbletea's Elm architecture.
//
// The TUI walks a setlist import from URL to playlist:
//  1. [InputView] : Enter the setlist.fm URL
//  2. [ResolveView] : Fetch the setlist and search every song, with live progress
//  3. [PickView] : Toggle candidates per song (first candidate preselected, misses shown)
//  4. [TargetView] : Choose a new playlist or one of the user's playlists
//  5. [NameView] : Name the new playlist
//  6. [ConfirmView] : Confirm the import
//  7. [ReconcileView] : Create or append while progress is reported
//  8. [ResultView] : Show the outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the engine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
