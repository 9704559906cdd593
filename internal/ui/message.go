package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgResolved MsgKind = iota
	MsgPlaylistsFetched
	MsgProgressUpdate
	MsgReconciled
)

type resolvedData struct {
	page        *models.SetlistPage
	resolutions *models.Resolutions
	err         error
}

type playlistsData struct {
	playlists []models.PlaylistSummary
	err       error
}

type reconciledData struct {
	result *models.ReconciliationResult
	err    error
}

// resolvedMsg is the constructor for [MsgResolved]
func resolvedMsg(page *models.SetlistPage, resolutions *models.Resolutions, err error) Msg {
	return Msg{kind: MsgResolved, data: resolvedData{page, resolutions, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.PlaylistSummary, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsData{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// reconciledMsg is the constructor for [MsgReconciled]
func reconciledMsg(result *models.ReconciliationResult, err error) Msg {
	return Msg{kind: MsgReconciled, data: reconciledData{result, err}}
}
