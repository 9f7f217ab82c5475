// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [IdentityRepository] : The single logged in identity; backs the auth store
//   - [CookieRepository] : Cookies of the API origin, so the refresh credential survives between runs
//   - [MovieRepository] : Movie cache keyed by IMDb id
//   - [MovieCacheAdapter] : Best effort caching used by fetch tasks
//
// Queries use the schema created by the embedded migrations in the shared package.
package repositories
