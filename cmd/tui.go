package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/formatter"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/ui"
)

const tuiLogPath = "./tmp/spotiplay-tui.log"

// TUI launches the interactive terminal UI for setlist import.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	return r.runTUI(ctx,
		strings.TrimSpace(cmd.StringArg("url")),
		strings.TrimSpace(cmd.String("name")),
		strings.TrimSpace(cmd.String("playlist-id")),
	)
}

func (r *Runner) runTUI(ctx context.Context, url, name, playlistID string) error {
	if name != "" && playlistID != "" {
		return fmt.Errorf("%w: --name and --playlist-id are mutually exclusive", shared.ErrInvalidArgument)
	}

	if err := r.requireEngine(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	opts := ui.Options{
		Engine:       r.engine,
		Playlists:    r.catalog,
		ListLimit:    r.config.Playlist.ListLimit,
		Logger:       fileLogger,
		URL:          url,
		PlaylistName: name,
		PlaylistID:   playlistID,
	}

	if repo, closeDB, err := r.openHistory(); err != nil {
		fileLogger.Warn("import history unavailable", "error", err)
	} else {
		defer closeDB()
		opts.History = repo
	}

	model := ui.NewModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	if err != nil {
		return err
	}
	if result != nil {
		r.writePlain("%s\n", formatter.ResultToText(result))
	}
	return nil
}
