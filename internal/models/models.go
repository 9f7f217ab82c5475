// package models defines the data model for the MagicStream client
package models

import (
	"time"

	"github.com/desertthunder/reelx/internal/shared"
)

// Model is implemented by every payload sent to the API.
type Model interface {
	Validate() error // Validate checks struct tags and returns [shared.ErrInvalidInput] on failure
}

// Genre is a movie genre.
type Genre struct {
	GenreID   int    `json:"genre_id"`
	GenreName string `json:"genre_name" validate:"required"`
}

// Ranking is the sentiment class assigned to an admin review.
// Lower values rank higher in recommendations.
type Ranking struct {
	RankingValue int    `json:"ranking_value"`
	RankingName  string `json:"ranking_name"`
}

// Movie is a movie as served by GET /movies and GET /movie/:imdb_id.
type Movie struct {
	ImdbID      string  `json:"imdb_id" validate:"required"`
	Title       string  `json:"title" validate:"required,min=2,max=500"`
	PosterPath  string  `json:"poster_path" validate:"required,url"`
	YouTubeID   string  `json:"youtube_id" validate:"required"`
	Genre       []Genre `json:"genre" validate:"required,min=1,dive"`
	AdminReview string  `json:"admin_review"`
	Ranking     Ranking `json:"ranking"`
}

func (m *Movie) Validate() error { return shared.ValidateStruct(m) }

// GenreNames returns the genre names in order.
func (m *Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genre))
	for _, g := range m.Genre {
		names = append(names, g.GenreName)
	}
	return names
}

// CachedMovie is a [Movie] persisted in the local cache.
type CachedMovie struct {
	ID       string
	Movie    Movie
	CachedAt time.Time
}

// Registration is the body of POST /register.
type Registration struct {
	FirstName      string  `json:"first_name" validate:"required,min=2,max=100"`
	LastName       string  `json:"last_name" validate:"required,min=2,max=100"`
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=6"`
	Role           string  `json:"role" validate:"oneof=ADMIN USER"`
	FavoriteGenres []Genre `json:"favorite_genres" validate:"required,dive"`
}

func (r *Registration) Validate() error { return shared.ValidateStruct(r) }

// Credentials is the body of POST /login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (c *Credentials) Validate() error { return shared.ValidateStruct(c) }

// ReviewUpdate is the body of PATCH /updatereview/:imdb_id.
type ReviewUpdate struct {
	AdminReview string `json:"admin_review" validate:"required"`
}

func (r *ReviewUpdate) Validate() error { return shared.ValidateStruct(r) }

// ReviewResult is the response of a review update.
type ReviewResult struct {
	RankingName string `json:"ranking_name"`
	AdminReview string `json:"admin_review"`
}
