package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// MovieRepository caches [models.Movie] rows keyed by IMDb id.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository with the given database connection
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Upsert inserts the movie or refreshes the cached copy with the same IMDb id.
func (r *MovieRepository) Upsert(movie *models.Movie) (*models.CachedMovie, error) {
	if movie.ImdbID == "" {
		return nil, fmt.Errorf("validation failed: %w: movie has no imdb_id", shared.ErrInvalidInput)
	}

	genres, err := encodeJSON(movie.Genre)
	if err != nil {
		return nil, err
	}

	cached := &models.CachedMovie{
		ID:       shared.GenerateID(),
		Movie:    *movie,
		CachedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO movies (id, imdb_id, title, poster_path, youtube_id, genres, admin_review, ranking_name, ranking_value, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (imdb_id) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			youtube_id = excluded.youtube_id,
			genres = excluded.genres,
			admin_review = excluded.admin_review,
			ranking_name = excluded.ranking_name,
			ranking_value = excluded.ranking_value,
			cached_at = excluded.cached_at
		RETURNING id
	`

	err = r.db.QueryRow(query,
		cached.ID,
		movie.ImdbID,
		movie.Title,
		movie.PosterPath,
		movie.YouTubeID,
		genres,
		movie.AdminReview,
		movie.Ranking.RankingName,
		movie.Ranking.RankingValue,
		cached.CachedAt,
	).Scan(&cached.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to cache movie: %w", err)
	}

	return cached, nil
}

// GetByImdbID retrieves a cached movie.
func (r *MovieRepository) GetByImdbID(imdbID string) (*models.CachedMovie, error) {
	query := `
		SELECT id, imdb_id, title, poster_path, youtube_id, genres, admin_review, ranking_name, ranking_value, cached_at
		FROM movies
		WHERE imdb_id = ?
	`

	cached, err := r.scan(r.db.QueryRow(query, imdbID))
	if err != nil {
		return nil, notFound(err, "movie "+imdbID)
	}
	return cached, nil
}

// List returns cached movies ordered by title. A non-empty genre filters on genre name (case insensitive).
func (r *MovieRepository) List(genre string) ([]*models.CachedMovie, error) {
	rows, err := r.db.Query(`
		SELECT id, imdb_id, title, poster_path, youtube_id, genres, admin_review, ranking_name, ranking_value, cached_at
		FROM movies
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var movies []*models.CachedMovie
	for rows.Next() {
		cached, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		if genre != "" && !hasGenre(&cached.Movie, genre) {
			continue
		}
		movies = append(movies, cached)
	}

	return movies, rows.Err()
}

// Delete removes a cached movie.
func (r *MovieRepository) Delete(imdbID string) error {
	result, err := r.db.Exec("DELETE FROM movies WHERE imdb_id = ?", imdbID)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("movie %s: %w", imdbID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *MovieRepository) scan(row scanner) (*models.CachedMovie, error) {
	var (
		cached models.CachedMovie
		genres string
	)

	m := &cached.Movie
	err := row.Scan(
		&cached.ID,
		&m.ImdbID,
		&m.Title,
		&m.PosterPath,
		&m.YouTubeID,
		&genres,
		&m.AdminReview,
		&m.Ranking.RankingName,
		&m.Ranking.RankingValue,
		&cached.CachedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(genres, &m.Genre); err != nil {
		return nil, err
	}
	return &cached, nil
}

func hasGenre(m *models.Movie, genre string) bool {
	for _, name := range m.GenreNames() {
		if strings.EqualFold(name, genre) {
			return true
		}
	}
	return false
}
