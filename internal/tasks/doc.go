// Package tasks runs multi-request operations against the MagicStream API with real-time progress reporting.
//
// # Core Operations
//
//  1. [MovieEngine.Fetch] : concurrent movie fetch
//     - Resolves the IMDb ids to fetch (all listed movies when none are given)
//     - Feeds ids to a pool of workers through a rate limiter
//     - Each worker fetches through the session guard, so an expired session is refreshed once for the whole pool
//     - Optionally caches fetched movies and writes them to a file
//
//  2. [MovieEngine.Dump] : fetch every read endpoint (health, movies, genres, recommendations)
//     - Failed endpoints are collected instead of aborting the dump
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Movie Caching
//
// The optional [MovieCacher] interface (repositories.MovieCacheAdapter) persists fetched movies.
// Cache errors are logged and never fail a fetch.
package tasks
