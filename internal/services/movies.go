package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
)

// MovieService reads and updates movies.
type MovieService struct {
	public   session.Transport
	private  session.Transport
	identity IdentityReader
	logger   *log.Logger
}

// MovieServiceOpts configures a [MovieService].
//
// Private must be the session guard. Identity enables the local admin check before review updates.
type MovieServiceOpts struct {
	Public   session.Transport
	Private  session.Transport
	Identity IdentityReader
	Logger   *log.Logger
}

// NewMovieService creates a new [MovieService]
func NewMovieService(opts MovieServiceOpts) *MovieService {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MovieService{
		public:   opts.Public,
		private:  opts.Private,
		identity: opts.Identity,
		logger:   shared.WithLogger(logger, "component", "movies"),
	}
}

// Movies lists every movie.
func (s *MovieService) Movies(ctx context.Context) ([]models.Movie, error) {
	var movies []models.Movie
	if err := getJSON(ctx, s.public, "/movies", &movies); err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, nil
}

// Genres lists the known genres.
func (s *MovieService) Genres(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	if err := getJSON(ctx, s.public, "/genres", &genres); err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// Movie fetches a single movie by IMDb id.
func (s *MovieService) Movie(ctx context.Context, imdbID string) (*models.Movie, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, fmt.Errorf("%w: imdb id", shared.ErrMissingArgument)
	}

	var movie models.Movie
	if err := getJSON(ctx, s.private, "/movie/"+url.PathEscape(imdbID), &movie); err != nil {
		return nil, fmt.Errorf("failed to get movie %s: %w", imdbID, err)
	}
	return &movie, nil
}

// AddMovie validates and creates movie.
func (s *MovieService) AddMovie(ctx context.Context, movie models.Movie) error {
	if err := movie.Validate(); err != nil {
		return err
	}

	if err := sendJSON(ctx, s.private, http.MethodPost, "/movie", movie, nil); err != nil {
		return fmt.Errorf("failed to add movie %s: %w", movie.ImdbID, err)
	}

	s.logger.Info("movie added", "imdb_id", movie.ImdbID, "title", movie.Title)
	return nil
}

// Recommended lists the movies recommended for the logged in user.
func (s *MovieService) Recommended(ctx context.Context) ([]models.Movie, error) {
	var movies []models.Movie
	if err := getJSON(ctx, s.private, "/recommendedmovies", &movies); err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	return movies, nil
}

// UpdateReview submits an admin review and returns the ranking the API assigned to it.
//
// The API answers 401 for non-admin users, which the guard would treat as an expired session, so the role is
// checked locally first.
func (s *MovieService) UpdateReview(ctx context.Context, imdbID, review string) (*models.ReviewResult, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, fmt.Errorf("%w: imdb id", shared.ErrMissingArgument)
	}

	update := models.ReviewUpdate{AdminReview: strings.TrimSpace(review)}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	if s.identity != nil {
		identity, ok := s.identity.Identity()
		if !ok {
			return nil, fmt.Errorf("%w: run 'reelx auth login' first", shared.ErrNotAuthenticated)
		}
		if !identity.IsAdmin() {
			return nil, fmt.Errorf("%w: reviews require the %s role", shared.ErrForbidden, models.RoleAdmin)
		}
	}

	var result models.ReviewResult
	if err := sendJSON(ctx, s.private, http.MethodPatch, "/updatereview/"+url.PathEscape(imdbID), update, &result); err != nil {
		return nil, fmt.Errorf("failed to update review for %s: %w", imdbID, err)
	}

	s.logger.Info("review updated", "imdb_id", imdbID, "ranking", result.RankingName)
	return &result, nil
}
