package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/reelx/internal/formatter"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
	"golang.org/x/time/rate"
)

// FetchOpts contains configuration for concurrent movie fetches.
type FetchOpts struct {
	NumWorkers    int     // Concurrent workers (default: 4, max: 16)
	RateLimit     float64 // Requests per second (default: 5)
	Cache         bool    // Cache fetched movies when a [MovieCacher] is configured
	Output        string  // Optional file the fetched movies are written to
	Format        string  // Output format (see [formatter.ParseFormat])
	TrailerFormat string  // Trailer URL format used by Markdown output
}

// MovieFetchResult is the outcome of fetching a single movie.
type MovieFetchResult struct {
	ImdbID string
	Movie  *models.Movie
	Error  error
}

// FetchResult summarizes a concurrent fetch. Results are in input order.
type FetchResult struct {
	Total      int
	Successful int
	Failed     int
	Cached     int
	OutputPath string
	Results    []MovieFetchResult
}

// Movies returns the fetched movies in input order.
func (r *FetchResult) Movies() []models.Movie {
	movies := make([]models.Movie, 0, r.Successful)
	for _, res := range r.Results {
		if res.Movie != nil {
			movies = append(movies, *res.Movie)
		}
	}
	return movies
}

type fetchJob struct {
	index  int
	imdbID string
}

// Fetch fetches movies by IMDb id concurrently with rate limiting and progress tracking.
//
// Without ids every listed movie is fetched. Individual failures are recorded in the result; a session error
// (unrecoverable or failed refresh) cancels the remaining work and is returned.
func (e *MovieEngine) Fetch(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts FetchOpts) (*FetchResult, error) {
	if e.movies == nil {
		return nil, fmt.Errorf("%w: movie service not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 16 {
		opts.NumWorkers = 16
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if len(ids) == 0 {
		e.sendProgress(prog, listingUpdate())
		listed, err := e.movies.Movies(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list movies: %w", err)
		}
		for _, m := range listed {
			ids = append(ids, m.ImdbID)
		}
	}
	ids = dedupe(ids)

	result := &FetchResult{
		Total:   len(ids),
		Results: make([]MovieFetchResult, len(ids)),
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan fetchJob)
	results := make(chan fetchResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.fetchWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- fetchJob{index: i, imdbID: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results[res.index] = res.MovieFetchResult

		if res.Error != nil {
			result.Failed++
			e.sendProgress(prog, fetchFailedUpdate(completed, len(ids), res.ImdbID, res.Error))
			if isSessionError(res.Error) {
				cancel(res.Error)
			}
			continue
		}

		result.Successful++
		e.sendProgress(prog, fetchCompletedUpdate(completed, len(ids), res.Movie))

		if opts.Cache && e.cache != nil {
			if err := e.cache.CacheMovie(*res.Movie); err != nil {
				e.logger.Warn("failed to cache movie", "imdb_id", res.ImdbID, "error", err)
			} else {
				result.Cached++
			}
		}
	}

	for i, res := range result.Results {
		if res.ImdbID == "" {
			result.Results[i] = MovieFetchResult{ImdbID: ids[i], Error: fmt.Errorf("not fetched: %w", context.Cause(ctx))}
			result.Failed++
		}
	}

	if cause := context.Cause(ctx); cause != nil && isSessionError(cause) {
		return result, cause
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if opts.Output != "" {
		e.sendProgress(prog, writeOutputUpdate(opts.Output))
		path, err := formatter.WriteMovies(result.Movies(), format, "Movies", opts.TrailerFormat, opts.Output)
		if err != nil {
			return result, fmt.Errorf("fetch completed but failed to write output: %w", err)
		}
		result.OutputPath = path
	}

	return result, nil
}

type fetchResult struct {
	MovieFetchResult
	index int
}

// fetchWorker fetches movies from the jobs channel until it is closed.
func (e *MovieEngine) fetchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan fetchJob, results chan<- fetchResult) {
	defer wg.Done()

	for job := range jobs {
		movie, err := e.movies.Movie(ctx, job.imdbID)
		results <- fetchResult{
			index:            job.index,
			MovieFetchResult: MovieFetchResult{ImdbID: job.imdbID, Movie: movie, Error: err},
		}
	}
}

// isSessionError reports whether err means no further protected call can succeed.
func isSessionError(err error) bool {
	return errors.Is(err, shared.ErrRefreshUnrecoverable) || errors.Is(err, shared.ErrRefreshFailed)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
