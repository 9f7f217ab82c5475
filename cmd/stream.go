package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/ui"
	"github.com/urfave/cli/v3"
)

var openBrowser = shared.OpenBrowser

// Stream opens the trailer of a YouTube id, or of the movie named by --movie, in the system browser.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	youtubeID := cmd.StringArg("youtube-id")

	if imdbID := cmd.String("movie"); imdbID != "" {
		movie, err := r.movies.Movie(ctx, imdbID)
		if err != nil {
			return err
		}
		youtubeID = movie.YouTubeID
		r.logger.Debug("resolved trailer", "imdb_id", imdbID, "youtube_id", youtubeID)
	}

	if youtubeID == "" {
		return fmt.Errorf("%w: youtube-id or --movie", shared.ErrMissingArgument)
	}

	trailer := shared.TrailerURL(r.config.Browser.TrailerURL, youtubeID)
	if cmd.Bool("print") {
		return r.writePlain("%s\n", trailer)
	}

	if err := openBrowser(trailer); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Opened %s", trailer))
}
