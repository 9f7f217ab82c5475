// package services wraps the MagicStream API endpoints.
//
// Public endpoints (movies, genres, register, login, logout, health) are called over the plain transport.
// Protected endpoints (movie details, add movie, recommendations, reviews) are called through the session guard
// so an expired access cookie is refreshed transparently:
//
//	public := session.NewHTTPTransport(...)
//	guard := session.NewGuard(session.GuardOpts{Transport: public, Store: store})
//	movies := services.NewMovieService(services.MovieServiceOpts{Public: public, Private: guard, Identity: store})
//
// Status errors are mapped onto the sentinel errors in [shared] while the [*session.StatusError] stays reachable
// with [errors.As].
package services
