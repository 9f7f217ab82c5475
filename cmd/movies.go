package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/tasks"
	"github.com/desertthunder/reelx/internal/ui"
	"github.com/urfave/cli/v3"
)

// MoviesList lists every movie, optionally filtered by genre.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	movies, err := r.movies.Movies(ctx)
	if err != nil {
		return err
	}

	title := "Movies"
	if genre := cmd.String("genre"); genre != "" {
		movies = filterGenre(movies, genre)
		title = fmt.Sprintf("%s movies", genre)
	}

	r.logger.Debug("listed movies", "count", len(movies))
	return r.renderMovies(format, title, movies, cmd.String("output"))
}

// MoviesGet shows a single movie. Requires a session.
func (r *Runner) MoviesGet(ctx context.Context, cmd *cli.Command) error {
	imdbID := cmd.StringArg("imdb-id")
	if imdbID == "" {
		return fmt.Errorf("%w: imdb-id", shared.ErrMissingArgument)
	}

	movie, err := r.movies.Movie(ctx, imdbID)
	if err != nil {
		return err
	}

	if path := cmd.String("poster"); path != "" {
		data, err := formatter.DownloadImage(r.httpClient, movie.PosterPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write poster: %w", err)
		}
		r.logger.Info("poster saved", "file", path, "bytes", len(data))
	}

	if cmd.Bool("json") {
		return r.writeJSON(movie, true)
	}

	_, err = r.output.Write(formatter.MovieToText(movie, shared.TrailerURL(r.config.Browser.TrailerURL, movie.YouTubeID)))
	return err
}

// MoviesAdd adds a movie. Genres are given by name and resolved against GET /genres.
func (r *Runner) MoviesAdd(ctx context.Context, cmd *cli.Command) error {
	genres, err := r.resolveGenres(ctx, cmd.String("genres"))
	if err != nil {
		return err
	}

	movie := models.Movie{
		ImdbID:     cmd.String("imdb-id"),
		Title:      cmd.String("title"),
		PosterPath: cmd.String("poster"),
		YouTubeID:  cmd.String("youtube-id"),
		Genre:      genres,
	}

	if err := r.movies.AddMovie(ctx, movie); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Added %s (%s)", movie.Title, movie.ImdbID))
}

// MoviesGenres lists the genres.
func (r *Runner) MoviesGenres(ctx context.Context, cmd *cli.Command) error {
	genres, err := r.movies.Genres(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(genres, true)
	}
	_, err = r.output.Write(formatter.GenresToText(genres))
	return err
}

// MoviesRecommended lists the movies recommended for the logged in user.
func (r *Runner) MoviesRecommended(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	movies, err := r.movies.Recommended(ctx)
	if err != nil {
		return err
	}

	title := "Recommended"
	if name := r.identityName(); name != "" {
		title = fmt.Sprintf("Recommended for %s", name)
	}
	return r.renderMovies(format, title, movies, "")
}

// MoviesReview submits an admin review.
func (r *Runner) MoviesReview(ctx context.Context, cmd *cli.Command) error {
	imdbID := cmd.StringArg("imdb-id")

	result, err := r.movies.UpdateReview(ctx, imdbID, cmd.String("review"))
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK("Review saved for %s, ranked %s", imdbID, result.RankingName))
}

// MoviesFetch fetches many movies concurrently through the session guard.
func (r *Runner) MoviesFetch(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.FetchOpts{
		NumWorkers:    int(cmd.Int("workers")),
		RateLimit:     cmd.Float("rate"),
		Cache:         cmd.Bool("cache"),
		Output:        cmd.String("output"),
		Format:        cmd.String("format"),
		TrailerFormat: r.config.Browser.TrailerURL,
	}
	ids := cmd.Args().Slice()

	r.logger.Info("fetching movies", "ids", len(ids), "workers", opts.NumWorkers, "rate", opts.RateLimit)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	start := time.Now()
	result, err := r.engine.Fetch(ctx, progressCh, ids, opts)
	close(progressCh)
	<-done

	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	r.writePlainln("%s", ui.Title("Fetch complete in %s", time.Since(start).Round(time.Millisecond)))
	r.writePlain("Total:      %d\n", result.Total)
	r.writePlain("Successful: %d\n", result.Successful)
	r.writePlain("Failed:     %d\n", result.Failed)
	if opts.Cache {
		r.writePlain("Cached:     %d\n", result.Cached)
	}
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("%s\n", ui.Err("%s: %v", res.ImdbID, res.Error))
		}
	}
	if result.OutputPath != "" {
		r.writePlain("%s\n", ui.OK("Saved to %s", result.OutputPath))
	}
	return nil
}

// MoviesCached lists the locally cached movies.
func (r *Runner) MoviesCached(ctx context.Context, cmd *cli.Command) error {
	cached, err := r.cache.List(cmd.String("genre"))
	if err != nil {
		return fmt.Errorf("failed to list cached movies: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(cached, true)
	}

	if len(cached) == 0 {
		return r.writePlain("%s\n", ui.Help("No cached movies. Run 'reelx movies fetch --cache' first."))
	}

	for _, c := range cached {
		r.writePlain("%-10s  %-40s  %s  (cached %s)\n", c.Movie.ImdbID, c.Movie.Title,
			strings.Join(c.Movie.GenreNames(), ", "), c.CachedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (r *Runner) renderMovies(format, title string, movies []models.Movie, output string) error {
	if output != "" {
		path, err := formatter.WriteMovies(movies, format, title, r.config.Browser.TrailerURL, output)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", ui.OK("Wrote %d movies to %s", len(movies), path))
	}

	data, err := formatter.RenderMovies(format, title, movies, r.config.Browser.TrailerURL)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// resolveGenres maps comma separated genre names to the genres known by the API.
func (r *Runner) resolveGenres(ctx context.Context, names string) ([]models.Genre, error) {
	wanted := shared.SplitList(names)
	if len(wanted) == 0 {
		return []models.Genre{}, nil
	}

	known, err := r.movies.Genres(ctx)
	if err != nil {
		return nil, err
	}

	genres := make([]models.Genre, 0, len(wanted))
	for _, name := range wanted {
		found := false
		for _, g := range known {
			if strings.EqualFold(g.GenreName, name) {
				genres = append(genres, g)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, name)
		}
	}
	return genres, nil
}

func filterGenre(movies []models.Movie, genre string) []models.Movie {
	out := []models.Movie{}
	for _, m := range movies {
		for _, g := range m.Genre {
			if strings.EqualFold(g.GenreName, genre) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
