package repositories

import (
	"github.com/desertthunder/reelx/internal/models"
)

// MovieCacheAdapter implements tasks.MovieCacher using [MovieRepository].
//
// Caching is best effort: movies without an IMDb id are skipped silently.
type MovieCacheAdapter struct {
	repo *MovieRepository
}

// NewMovieCacheAdapter creates a new MovieCacheAdapter with the given repository
func NewMovieCacheAdapter(repo *MovieRepository) *MovieCacheAdapter {
	return &MovieCacheAdapter{repo: repo}
}

// CacheMovie stores or refreshes the cached copy of movie.
func (a *MovieCacheAdapter) CacheMovie(movie models.Movie) error {
	if movie.ImdbID == "" {
		return nil
	}
	_, err := a.repo.Upsert(&movie)
	return err
}
