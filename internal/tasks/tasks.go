package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/shared"
)

// MovieSource fetches movies from the API.
type MovieSource interface {
	Movies(ctx context.Context) ([]models.Movie, error)
	Movie(ctx context.Context, imdbID string) (*models.Movie, error)
}

// MovieCacher persists fetched movies.
type MovieCacher interface {
	CacheMovie(movie models.Movie) error
}

// APIClient defines the interface for making raw API requests.
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// MovieEngine runs multi-request movie operations.
type MovieEngine struct {
	movies MovieSource
	api    APIClient
	cache  MovieCacher
	logger *log.Logger
}

// MovieEngineOpts configures a [MovieEngine]. Cache is optional.
type MovieEngineOpts struct {
	Movies MovieSource
	API    APIClient
	Cache  MovieCacher
	Logger *log.Logger
}

// NewMovieEngine creates a new [MovieEngine]
func NewMovieEngine(opts MovieEngineOpts) *MovieEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MovieEngine{
		movies: opts.Movies,
		api:    opts.API,
		cache:  opts.Cache,
		logger: shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *MovieEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Data     any
	Error    error
}

// DumpResult contains the data of every read endpoint.
type DumpResult struct {
	Health      any
	Movies      any
	Genres      any
	Recommended any
	Errors      []EndpointResult
}

// DumpData is the serialized form of [DumpResult].
type DumpData struct {
	Health      any      `json:"health"`
	Movies      any      `json:"movies,omitempty"`
	Genres      any      `json:"genres,omitempty"`
	Recommended any      `json:"recommended,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// Data converts the result for JSON output.
func (r *DumpResult) Data() DumpData {
	data := DumpData{
		Health:      r.Health,
		Movies:      r.Movies,
		Genres:      r.Genres,
		Recommended: r.Recommended,
	}
	for _, e := range r.Errors {
		data.Errors = append(data.Errors, fmt.Sprintf("%s: %v", e.Endpoint, e.Error))
	}
	return data
}

type endpointOperation struct {
	path    string
	target  *any
	phase   Phase
	message string
}

// Dump fetches every read endpoint. Endpoint failures are collected in [DumpResult.Errors].
//
// Session errors (an unrecoverable refresh) abort the dump since every later protected call would fail the same way.
func (e *MovieEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{Errors: []EndpointResult{}}

	endpoints := []endpointOperation{
		{path: "/health", target: &result.Health, phase: FetchHealth, message: "Fetching health status..."},
		{path: "/movies", target: &result.Movies, phase: FetchMovies, message: "Fetching movies..."},
		{path: "/genres", target: &result.Genres, phase: FetchGenres, message: "Fetching genres..."},
		{path: "/recommendedmovies", target: &result.Recommended, phase: FetchRecommended, message: "Fetching recommendations..."},
	}

	for i, endpoint := range endpoints {
		e.sendProgress(progress, operationUpdate(endpoint, i+1, len(endpoints)))

		resp, err := e.api.Get(ctx, endpoint.path)
		switch {
		case err != nil:
			if isSessionError(err) {
				return result, err
			}
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: err})
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: endpoint.path,
				Data:     resp.JSONData,
				Error:    fmt.Errorf("status %d", resp.StatusCode),
			})
		default:
			*endpoint.target = resp.JSONData
		}
	}

	return result, nil
}
