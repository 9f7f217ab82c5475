// Package session wraps the HTTP transport of the API client with the session refresh protocol.
//
// # Session Guard
//
// [Guard] decorates a [Transport]. Every request goes through [Guard.Send]:
//
//   - 2xx responses are returned unchanged.
//   - A 401 from the refresh endpoint itself is returned as-is. The refresh credential is gone and retrying would loop.
//   - A 401 on a first attempt starts (or joins) a refresh cycle and the request is replayed once it succeeds.
//   - A 401 on a replay is returned tagged with [shared.ErrUnauthorizedAfterRetry]; it never starts a second cycle.
//   - Everything else passes through untouched.
//
// # Refresh Cycle
//
// The first caller to observe no refresh in progress becomes the leader: it flips the refreshing flag under the
// guard's mutex and calls POST /refresh. Callers that hit a 401 while the flag is set are appended to a FIFO
// queue of pending requests and block on a channel.
//
// When the refresh call settles the leader drains the queue and resets the flag in one critical section, so the
// queue is never non-empty while no refresh is running. Pending requests are then released in arrival order:
// with nil on success (each replays its own request) or with the refresh error on failure (no replay).
//
// Refresh failures are tagged:
//   - [shared.ErrRefreshUnrecoverable] : the refresh endpoint answered 401
//   - [shared.ErrRefreshFailed] : network errors, 5xx and everything else
//
// On failure the identity in the auth store is cleared. Transient failures can be configured to keep it.
//
// The refresh call runs detached from the leader's context (bounded by the refresh timeout) so a cancelled leader
// cannot fail the cycle for every queued caller. Queued callers are not cancellable; they are always settled by
// their cycle.
//
// # Transport
//
// [HTTPTransport] resolves request paths against the API base URL, rate limits with [rate.Limiter] and reports
// non-2xx statuses as [*StatusError]. Credentials travel as cookies held by a [PersistentJar], which mirrors the
// API origin's cookies into SQLite so the refresh cookie survives between CLI invocations.
package session
