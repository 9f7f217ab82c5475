package repositories

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// CookieRepository persists cookies per API origin (scheme://host).
type CookieRepository struct {
	db *sql.DB
}

// NewCookieRepository creates a new [CookieRepository] with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db}
}

// Upsert stores each cookie, replacing an existing cookie with the same name and path.
// Cookies with MaxAge < 0 or an expiry in the past are deleted instead.
func (r *CookieRepository) Upsert(origin string, cookies []*http.Cookie) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}

		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			if _, err := tx.Exec("DELETE FROM cookies WHERE origin = ? AND name = ? AND path = ?", origin, c.Name, path); err != nil {
				return fmt.Errorf("failed to delete cookie %s: %w", c.Name, err)
			}
			continue
		}

		var expires sql.NullTime
		switch {
		case c.MaxAge > 0:
			expires = sql.NullTime{Time: now.Add(time.Duration(c.MaxAge) * time.Second), Valid: true}
		case !c.Expires.IsZero():
			expires = sql.NullTime{Time: c.Expires.UTC(), Valid: true}
		}

		_, err := tx.Exec(`
			INSERT INTO cookies (origin, name, value, path, domain, expires_at, secure, http_only, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (origin, name, path) DO UPDATE SET
				value = excluded.value,
				domain = excluded.domain,
				expires_at = excluded.expires_at,
				secure = excluded.secure,
				http_only = excluded.http_only,
				updated_at = excluded.updated_at
		`, origin, c.Name, c.Value, path, c.Domain, expires, c.Secure, c.HttpOnly, now)
		if err != nil {
			return fmt.Errorf("failed to store cookie %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cookies: %w", err)
	}
	return nil
}

// List returns the unexpired cookies stored for origin.
func (r *CookieRepository) List(origin string) ([]*http.Cookie, error) {
	rows, err := r.db.Query(`
		SELECT name, value, path, domain, expires_at, secure, http_only
		FROM cookies
		WHERE origin = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY name
	`, origin, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []*http.Cookie
	for rows.Next() {
		var (
			c       http.Cookie
			expires sql.NullTime
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &c.Domain, &expires, &c.Secure, &c.HttpOnly); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expires.Valid {
			c.Expires = expires.Time
		}
		cookies = append(cookies, &c)
	}

	return cookies, rows.Err()
}

// DeleteAll removes every cookie stored for origin.
func (r *CookieRepository) DeleteAll(origin string) error {
	if _, err := r.db.Exec("DELETE FROM cookies WHERE origin = ?", origin); err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}
