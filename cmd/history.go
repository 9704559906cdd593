package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/formatter"
)

// History lists recorded imports, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.List(map[string]any{
		"limit":       int(cmd.Int("limit")),
		"artist":      cmd.String("artist"),
		"playlist_id": cmd.String("playlist-id"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	_, err = r.output.Write(formatter.HistoryToText(records, time.Now()))
	return err
}
