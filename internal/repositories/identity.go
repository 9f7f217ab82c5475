package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/reelx/internal/models"
)

// IdentityRepository persists the single logged in [models.Identity].
type IdentityRepository struct {
	db *sql.DB
}

// NewIdentityRepository creates a new [IdentityRepository] with the given database connection
func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Save replaces the stored identity.
func (r *IdentityRepository) Save(identity *models.Identity) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	genres, err := encodeJSON(identity.FavoriteGenres)
	if err != nil {
		return err
	}

	identity.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO identity (id, user_id, email, first_name, last_name, role, favorite_genres, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role,
			favorite_genres = excluded.favorite_genres,
			updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query,
		identity.UserID,
		identity.Email,
		identity.FirstName,
		identity.LastName,
		identity.Role,
		genres,
		identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}

	return nil
}

// Load returns the stored identity or [ErrNotFound].
func (r *IdentityRepository) Load() (*models.Identity, error) {
	query := `
		SELECT user_id, email, first_name, last_name, role, favorite_genres, updated_at
		FROM identity
		WHERE id = 1
	`

	var (
		identity models.Identity
		genres   string
	)

	err := r.db.QueryRow(query).Scan(
		&identity.UserID,
		&identity.Email,
		&identity.FirstName,
		&identity.LastName,
		&identity.Role,
		&genres,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "identity")
	}

	if err := decodeJSON(genres, &identity.FavoriteGenres); err != nil {
		return nil, err
	}

	return &identity, nil
}

// Delete removes the stored identity. Deleting when nothing is stored is not an error.
func (r *IdentityRepository) Delete() error {
	if _, err := r.db.Exec("DELETE FROM identity WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}
