package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/reelx/internal/shared"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedAPI rejects every request with 401 until a refresh succeeds.
type scriptedAPI struct {
	mu        sync.Mutex
	valid     bool
	calls     map[string]int
	onRefresh func(ctx context.Context) error
	onRequest func(req Request) error
}

func newScriptedAPI() *scriptedAPI {
	return &scriptedAPI{calls: make(map[string]int)}
}

func (s *scriptedAPI) Do(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls[req.Path]++
	valid := s.valid
	onRefresh, onRequest := s.onRefresh, s.onRequest
	s.mu.Unlock()

	if req.route() == DefaultRefreshPath {
		if onRefresh != nil {
			if err := onRefresh(ctx); err != nil {
				return nil, err
			}
		}
		s.setValid(true)
		return &Response{StatusCode: http.StatusOK, Body: []byte(`{"message":"Tokens refreshed"}`)}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if onRequest != nil {
		if err := onRequest(req); err != nil {
			return nil, err
		}
	}
	if !valid {
		return nil, statusErr(req, http.StatusUnauthorized)
	}
	return &Response{StatusCode: http.StatusOK, Body: []byte(req.Path)}, nil
}

func (s *scriptedAPI) setValid(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = v
}

func (s *scriptedAPI) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func statusErr(req Request, code int) *StatusError {
	return &StatusError{Method: req.Method, Path: req.Path, StatusCode: code, Body: []byte(`{"error":"nope"}`)}
}

type identityStore struct {
	mu      sync.Mutex
	clears  int
	failing bool
}

func (s *identityStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	if s.failing {
		return errors.New("disk full")
	}
	return nil
}

func (s *identityStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

type result struct {
	path string
	resp *Response
	err  error
}

func newTestGuard(api Transport, store IdentityClearer, events chan Event) *Guard {
	return NewGuard(GuardOpts{
		Transport: api,
		Store:     store,
		Events:    events,
		Logger:    shared.NewLogger(io.Discard),
	})
}

func get(path string) Request {
	return NewRequest(http.MethodGet, path, nil)
}

// nextEvent waits for the next event of kind, skipping others.
func nextEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", kind)
			return Event{}
		}
	}
}

// holdRefresh blocks the refresh endpoint until the returned function is called.
func holdRefresh(api *scriptedAPI, outcome error) (release func()) {
	gate := make(chan struct{})
	api.mu.Lock()
	api.onRefresh = func(ctx context.Context) error {
		<-gate
		return outcome
	}
	api.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// startQueued sends the leader request, waits for it to start the refresh, then sends each follower and waits
// until it is queued. It returns the queued request ids in arrival order.
func startQueued(t *testing.T, g *Guard, events <-chan Event, results chan<- result, leader string, followers ...string) []string {
	t.Helper()
	send := func(path string) {
		resp, err := g.Send(context.Background(), get(path))
		results <- result{path: path, resp: resp, err: err}
	}

	go send(leader)
	nextEvent(t, events, EventRefreshStarted)

	ids := make([]string, 0, len(followers))
	for _, path := range followers {
		go send(path)
		e := nextEvent(t, events, EventQueued)
		if e.Request.Path != path {
			t.Fatalf("expected %s to be queued, got %s", path, e.Request.Path)
		}
		ids = append(ids, e.RequestID)
	}
	return ids
}

func collect(t *testing.T, results <-chan result, n int) map[string]result {
	t.Helper()
	out := make(map[string]result, n)
	for range n {
		select {
		case r := <-results:
			out[r.path] = r
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d results", len(out), n)
		}
	}
	return out
}

func TestGuard(t *testing.T) {
	t.Run("Passes Successful Responses Through", func(t *testing.T) {
		api := newScriptedAPI()
		api.setValid(true)
		g := newTestGuard(api, &identityStore{}, nil)

		resp, err := g.Send(context.Background(), get("/movies"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(resp.Body) != "/movies" {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if api.count("/refresh") != 0 {
			t.Error("expected no refresh")
		}
		if refreshing, waiting := g.State(); refreshing || waiting != 0 {
			t.Errorf("expected idle state, got refreshing=%v waiting=%d", refreshing, waiting)
		}
	})

	t.Run("Passes Other Failures Through", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
		}{
			{name: "not found", err: &StatusError{Method: "GET", Path: "/movie/x", StatusCode: http.StatusNotFound}},
			{name: "forbidden", err: &StatusError{Method: "GET", Path: "/movie/x", StatusCode: http.StatusForbidden}},
			{name: "server error", err: &StatusError{Method: "GET", Path: "/movie/x", StatusCode: http.StatusBadGateway}},
			{name: "network", err: errors.New("connection refused")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				api := newScriptedAPI()
				api.onRequest = func(Request) error { return tt.err }
				store := &identityStore{}
				g := newTestGuard(api, store, nil)

				_, err := g.Send(context.Background(), get("/movie/x"))
				if err != tt.err {
					t.Fatalf("expected error to pass through unchanged, got %v", err)
				}
				if api.count("/refresh") != 0 {
					t.Error("expected no refresh")
				}
				if store.count() != 0 {
					t.Error("expected identity to be kept")
				}
			})
		}
	})

	t.Run("Refreshes And Replays A Single Request", func(t *testing.T) {
		api := newScriptedAPI()
		g := newTestGuard(api, &identityStore{}, nil)

		resp, err := g.Send(context.Background(), get("/recommendedmovies"))
		if err != nil {
			t.Fatalf("expected replay to succeed, got %v", err)
		}
		if string(resp.Body) != "/recommendedmovies" {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if got := api.count("/refresh"); got != 1 {
			t.Errorf("expected 1 refresh, got %d", got)
		}
		if got := api.count("/recommendedmovies"); got != 2 {
			t.Errorf("expected original attempt and one replay, got %d calls", got)
		}
	})

	t.Run("Coordinates Leader And Queued Requests", func(t *testing.T) {
		api := newScriptedAPI()
		release := holdRefresh(api, nil)
		defer release()

		store := &identityStore{}
		events := make(chan Event, 32)
		results := make(chan result, 3)
		g := newTestGuard(api, store, events)

		queued := startQueued(t, g, events, results, "/a", "/b", "/c")

		if refreshing, waiting := g.State(); !refreshing || waiting != 2 {
			t.Fatalf("expected refresh in flight with 2 waiting, got refreshing=%v waiting=%d", refreshing, waiting)
		}
		if got := api.count("/b"); got != 1 {
			t.Fatalf("queued request replayed before refresh settled: %d calls", got)
		}

		release()
		got := collect(t, results, 3)

		for _, path := range []string{"/a", "/b", "/c"} {
			r := got[path]
			if r.err != nil {
				t.Errorf("%s: expected success, got %v", path, r.err)
				continue
			}
			if string(r.resp.Body) != path {
				t.Errorf("%s: got response for %q", path, r.resp.Body)
			}
			if calls := api.count(path); calls != 2 {
				t.Errorf("%s: expected exactly one replay, got %d calls", path, calls)
			}
		}

		if calls := api.count("/refresh"); calls != 1 {
			t.Errorf("expected exactly one refresh, got %d", calls)
		}

		var released []string
		for range queued {
			e := nextEvent(t, events, EventReleased)
			if e.Err != nil {
				t.Errorf("expected release without error, got %v", e.Err)
			}
			released = append(released, e.RequestID)
		}
		for i := range queued {
			if released[i] != queued[i] {
				t.Errorf("expected FIFO release %v, got %v", queued, released)
				break
			}
		}

		if refreshing, waiting := g.State(); refreshing || waiting != 0 {
			t.Errorf("expected idle state, got refreshing=%v waiting=%d", refreshing, waiting)
		}
		if store.count() != 0 {
			t.Error("expected identity to be kept after a successful refresh")
		}
	})

	t.Run("Issues One Refresh For Many Concurrent Requests", func(t *testing.T) {
		const n = 12

		api := newScriptedAPI()
		release := holdRefresh(api, nil)
		defer release()

		events := make(chan Event, 4*n)
		g := newTestGuard(api, &identityStore{}, events)

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := g.Send(context.Background(), get("/movie/tt"+string(rune('a'+i))))
				errs <- err
			}(i)
		}

		nextEvent(t, events, EventRefreshStarted)
		for range n - 1 {
			nextEvent(t, events, EventQueued)
		}
		release()

		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("expected all requests to succeed, got %v", err)
			}
		}
		if calls := api.count("/refresh"); calls != 1 {
			t.Errorf("expected exactly one refresh for %d requests, got %d", n, calls)
		}
	})

	t.Run("Rejects Everyone When Refresh Fails", func(t *testing.T) {
		refreshErr := statusErr(NewRequest(http.MethodPost, "/refresh", nil), http.StatusServiceUnavailable)

		api := newScriptedAPI()
		release := holdRefresh(api, refreshErr)
		defer release()

		store := &identityStore{}
		events := make(chan Event, 32)
		results := make(chan result, 3)
		g := newTestGuard(api, store, events)

		queued := startQueued(t, g, events, results, "/a", "/b", "/c")
		release()
		got := collect(t, results, 3)

		for _, path := range []string{"/a", "/b", "/c"} {
			err := got[path].err
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("%s: expected ErrRefreshFailed, got %v", path, err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
				t.Errorf("%s: expected refresh status error in chain, got %v", path, err)
			}
			if calls := api.count(path); calls != 1 {
				t.Errorf("%s: expected no replay, got %d calls", path, calls)
			}
		}

		for range queued {
			if e := nextEvent(t, events, EventReleased); !errors.Is(e.Err, shared.ErrRefreshFailed) {
				t.Errorf("expected release with refresh error, got %v", e.Err)
			}
		}

		if store.count() != 1 {
			t.Errorf("expected identity cleared once, got %d", store.count())
		}
		if refreshing, waiting := g.State(); refreshing || waiting != 0 {
			t.Errorf("expected idle state, got refreshing=%v waiting=%d", refreshing, waiting)
		}
	})

	t.Run("Tags Network Failures During Refresh", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(context.Context) error { return errors.New("connection reset") }
		store := &identityStore{}
		g := newTestGuard(api, store, nil)

		_, err := g.Send(context.Background(), get("/movie/tt1"))
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if store.count() != 1 {
			t.Error("expected identity to be cleared")
		}
	})

	t.Run("Keeps Identity On Transient Failure When Configured", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(context.Context) error { return errors.New("connection reset") }
		store := &identityStore{}
		g := NewGuard(GuardOpts{
			Transport:                  api,
			Store:                      store,
			Logger:                     shared.NewLogger(io.Discard),
			KeepIdentityOnRefreshError: true,
		})

		if _, err := g.Send(context.Background(), get("/movie/tt1")); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if store.count() != 0 {
			t.Error("expected identity to be kept")
		}
	})

	t.Run("Treats Rejected Refresh Credential As Unrecoverable", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(context.Context) error {
			return statusErr(NewRequest(http.MethodPost, "/refresh", nil), http.StatusUnauthorized)
		}
		store := &identityStore{}
		g := NewGuard(GuardOpts{
			Transport:                  api,
			Store:                      store,
			Logger:                     shared.NewLogger(io.Discard),
			KeepIdentityOnRefreshError: true,
		})

		_, err := g.Send(context.Background(), get("/recommendedmovies"))
		if !errors.Is(err, shared.ErrRefreshUnrecoverable) {
			t.Fatalf("expected ErrRefreshUnrecoverable, got %v", err)
		}
		if !IsUnauthorized(err) {
			t.Error("expected the 401 to stay reachable in the chain")
		}
		if store.count() != 1 {
			t.Error("expected identity to be cleared regardless of configuration")
		}
		if api.count("/recommendedmovies") != 1 {
			t.Error("expected no replay")
		}
	})

	t.Run("Surfaces 401 After Replay Without Second Refresh", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRequest = func(req Request) error { return statusErr(req, http.StatusUnauthorized) }
		store := &identityStore{}
		g := newTestGuard(api, store, nil)

		_, err := g.Send(context.Background(), get("/updatereview/tt1"))
		if !errors.Is(err, shared.ErrUnauthorizedAfterRetry) {
			t.Fatalf("expected ErrUnauthorizedAfterRetry, got %v", err)
		}
		if !IsUnauthorized(err) {
			t.Error("expected the 401 to stay reachable in the chain")
		}
		if calls := api.count("/refresh"); calls != 1 {
			t.Errorf("expected exactly one refresh, got %d", calls)
		}
		if calls := api.count("/updatereview/tt1"); calls != 2 {
			t.Errorf("expected exactly one replay, got %d calls", calls)
		}
		if store.count() != 0 {
			t.Error("expected identity to be kept")
		}
	})

	t.Run("Surfaces 401 After Queued Replay Without Second Refresh", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRequest = func(req Request) error {
			if req.Path == "/b" {
				return statusErr(req, http.StatusUnauthorized)
			}
			return nil
		}
		release := holdRefresh(api, nil)
		defer release()

		store := &identityStore{}
		events := make(chan Event, 16)
		results := make(chan result, 2)
		g := newTestGuard(api, store, events)

		startQueued(t, g, events, results, "/a", "/b")
		release()
		got := collect(t, results, 2)

		if err := got["/a"].err; err != nil {
			t.Errorf("/a: expected success, got %v", err)
		}
		err := got["/b"].err
		if !errors.Is(err, shared.ErrUnauthorizedAfterRetry) {
			t.Fatalf("/b: expected ErrUnauthorizedAfterRetry, got %v", err)
		}
		if !IsUnauthorized(err) {
			t.Error("expected the 401 to stay reachable in the chain")
		}
		if calls := api.count("/refresh"); calls != 1 {
			t.Errorf("expected exactly one refresh, got %d", calls)
		}
		if calls := api.count("/b"); calls != 2 {
			t.Errorf("expected exactly one replay of /b, got %d calls", calls)
		}
		if refreshing, waiting := g.State(); refreshing || waiting != 0 {
			t.Errorf("expected idle state, got refreshing=%v waiting=%d", refreshing, waiting)
		}
	})

	t.Run("Does Not Intercept 401 From Refresh Endpoint", func(t *testing.T) {
		for _, path := range []string{"/refresh", "/refresh?source=cli"} {
			t.Run(path, func(t *testing.T) {
				api := newScriptedAPI()
				api.onRefresh = func(context.Context) error {
					return statusErr(NewRequest(http.MethodPost, path, nil), http.StatusUnauthorized)
				}
				store := &identityStore{}
				events := make(chan Event, 8)
				g := newTestGuard(api, store, events)

				_, err := g.Send(context.Background(), NewRequest(http.MethodPost, path, nil))
				if !IsUnauthorized(err) {
					t.Fatalf("expected raw 401, got %v", err)
				}
				if errors.Is(err, shared.ErrRefreshUnrecoverable) || errors.Is(err, shared.ErrUnauthorizedAfterRetry) {
					t.Errorf("expected untagged error, got %v", err)
				}
				if calls := api.count(path); calls != 1 {
					t.Errorf("expected a single call, got %d", calls)
				}
				if len(events) != 0 {
					t.Errorf("expected no refresh cycle, got %d events", len(events))
				}
				if refreshing, waiting := g.State(); refreshing || waiting != 0 {
					t.Errorf("expected idle state, got refreshing=%v waiting=%d", refreshing, waiting)
				}
				if store.count() != 0 {
					t.Error("expected identity to be kept")
				}
			})
		}
	})

	t.Run("Starts A New Cycle After The Previous One Settles", func(t *testing.T) {
		api := newScriptedAPI()
		g := newTestGuard(api, &identityStore{}, nil)

		if _, err := g.Send(context.Background(), get("/movie/tt1")); err != nil {
			t.Fatalf("first cycle failed: %v", err)
		}

		api.setValid(false)
		if _, err := g.Send(context.Background(), get("/movie/tt1")); err != nil {
			t.Fatalf("second cycle failed: %v", err)
		}

		if calls := api.count("/refresh"); calls != 2 {
			t.Errorf("expected one refresh per cycle, got %d", calls)
		}
		if calls := api.count("/movie/tt1"); calls != 4 {
			t.Errorf("expected two attempts per cycle, got %d", calls)
		}
	})

	t.Run("Starts A New Cycle After A Failed One", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(context.Context) error { return errors.New("connection reset") }
		g := newTestGuard(api, &identityStore{}, nil)

		if _, err := g.Send(context.Background(), get("/movie/tt1")); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		api.mu.Lock()
		api.onRefresh = nil
		api.mu.Unlock()

		if _, err := g.Send(context.Background(), get("/movie/tt1")); err != nil {
			t.Fatalf("expected recovery on the next cycle, got %v", err)
		}
		if calls := api.count("/refresh"); calls != 2 {
			t.Errorf("expected 2 refresh calls, got %d", calls)
		}
	})

	t.Run("Leader Cancellation Does Not Fail Queued Requests", func(t *testing.T) {
		api := newScriptedAPI()
		release := holdRefresh(api, nil)
		defer release()

		events := make(chan Event, 16)
		g := newTestGuard(api, &identityStore{}, events)

		ctx, cancel := context.WithCancel(context.Background())
		leaderErr := make(chan error, 1)
		go func() {
			_, err := g.Send(ctx, get("/a"))
			leaderErr <- err
		}()
		nextEvent(t, events, EventRefreshStarted)

		followerErr := make(chan error, 1)
		go func() {
			_, err := g.Send(context.Background(), get("/b"))
			followerErr <- err
		}()
		nextEvent(t, events, EventQueued)

		cancel()
		release()

		if err := <-followerErr; err != nil {
			t.Errorf("expected queued request to replay, got %v", err)
		}
		if err := <-leaderErr; !errors.Is(err, context.Canceled) {
			t.Errorf("expected leader replay to observe its cancellation, got %v", err)
		}
		if calls := api.count("/refresh"); calls != 1 {
			t.Errorf("expected one refresh, got %d", calls)
		}
	})

	t.Run("Bounds Refresh By Timeout", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		g := NewGuard(GuardOpts{
			Transport:      api,
			Store:          &identityStore{},
			Logger:         shared.NewLogger(io.Discard),
			RefreshTimeout: 20 * time.Millisecond,
		})

		_, err := g.Send(context.Background(), get("/movie/tt1"))
		if !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected refresh deadline error, got %v", err)
		}
	})

	t.Run("Clear Failure Does Not Mask Refresh Error", func(t *testing.T) {
		api := newScriptedAPI()
		api.onRefresh = func(context.Context) error { return errors.New("connection reset") }
		store := &identityStore{failing: true}
		g := newTestGuard(api, store, nil)

		if _, err := g.Send(context.Background(), get("/movie/tt1")); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Custom Refresh Path", func(t *testing.T) {
		var refreshed bool
		api := TransportFunc(func(ctx context.Context, req Request) (*Response, error) {
			switch {
			case req.Path == "/auth/refresh":
				refreshed = true
				return &Response{StatusCode: http.StatusOK}, nil
			case !refreshed:
				return nil, statusErr(req, http.StatusUnauthorized)
			default:
				return &Response{StatusCode: http.StatusOK}, nil
			}
		})
		g := NewGuard(GuardOpts{Transport: api, RefreshPath: "/auth/refresh", Logger: shared.NewLogger(io.Discard)})

		if _, err := g.Send(context.Background(), get("/movie/tt1")); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !refreshed {
			t.Error("expected the configured refresh path to be called")
		}
	})
}
