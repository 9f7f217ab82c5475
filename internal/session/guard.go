package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/shared"
)

const (
	DefaultRefreshPath    = "/refresh"
	DefaultRefreshTimeout = 15 * time.Second
)

// IdentityClearer forgets the logged in identity when the session cannot be refreshed.
type IdentityClearer interface {
	Clear() error
}

// Guard decorates a [Transport] with the session refresh protocol.
//
// A single Guard must be shared by every caller of the API so they observe the same refresh state.
type Guard struct {
	transport Transport
	store     IdentityClearer
	logger    *log.Logger
	events    chan<- Event

	refreshPath    string
	refreshTimeout time.Duration
	keepIdentity   bool

	mu         sync.Mutex
	refreshing bool
	queue      []*pending
}

// GuardOpts configures a [Guard]. Transport is required.
type GuardOpts struct {
	Transport Transport
	Store     IdentityClearer
	Logger    *log.Logger
	// Events receives lifecycle notifications. Sends never block; events are dropped when the channel is full.
	Events chan<- Event

	RefreshPath    string
	RefreshTimeout time.Duration
	// KeepIdentityOnRefreshError keeps the identity when a refresh fails for a reason other than a 401.
	KeepIdentityOnRefreshError bool
}

// pending is a request parked until the running refresh settles.
type pending struct {
	id   string
	done chan error
}

// NewGuard creates a [Guard]
func NewGuard(opts GuardOpts) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	refreshTimeout := opts.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = DefaultRefreshTimeout
	}

	return &Guard{
		transport:      opts.Transport,
		store:          opts.Store,
		logger:         shared.WithLogger(logger, "component", "session"),
		events:         opts.Events,
		refreshPath:    refreshPath,
		refreshTimeout: refreshTimeout,
		keepIdentity:   opts.KeepIdentityOnRefreshError,
	}
}

// Do implements [Transport] so the guard can stand in for the transport it wraps.
func (g *Guard) Do(ctx context.Context, req Request) (*Response, error) {
	return g.Send(ctx, req)
}

// Send issues req, refreshing the session and replaying req once if the access credential is rejected.
func (g *Guard) Send(ctx context.Context, req Request) (*Response, error) {
	return g.send(ctx, req, false)
}

// Refresh calls the refresh endpoint directly.
//
// A 401 surfaces as-is and does not touch the refresh state or the identity.
func (g *Guard) Refresh(ctx context.Context) (*Response, error) {
	return g.send(ctx, NewRequest(http.MethodPost, g.refreshPath, nil), false)
}

// State reports whether a refresh is running and how many requests wait on it.
func (g *Guard) State() (refreshing bool, waiting int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshing, len(g.queue)
}

func (g *Guard) send(ctx context.Context, req Request, retried bool) (*Response, error) {
	resp, err := g.transport.Do(ctx, req)
	if err == nil {
		return resp, nil
	}

	if !IsUnauthorized(err) {
		return nil, err
	}

	if req.route() == g.refreshPath {
		g.logger.Debug("refresh credential rejected", "request", req)
		return nil, err
	}

	if retried {
		g.logger.Warn("request rejected after refresh", "request", req)
		return nil, fmt.Errorf("%w: %w", shared.ErrUnauthorizedAfterRetry, err)
	}

	g.mu.Lock()
	if g.refreshing {
		p := &pending{id: shared.GenerateID(), done: make(chan error, 1)}
		g.queue = append(g.queue, p)
		g.mu.Unlock()

		g.logger.Debug("waiting for refresh", "request", req, "id", p.id)
		g.emit(Event{Kind: EventQueued, RequestID: p.id, Request: req})

		if err := <-p.done; err != nil {
			return nil, err
		}
		return g.send(ctx, req, true)
	}
	g.refreshing = true
	g.mu.Unlock()

	return g.lead(ctx, req)
}

// lead runs one refresh cycle on behalf of every request that hit a 401 while it is running.
func (g *Guard) lead(ctx context.Context, req Request) (*Response, error) {
	g.logger.Debug("access credential rejected, refreshing session", "request", req)
	g.emit(Event{Kind: EventRefreshStarted, Request: req})

	refreshErr := g.refresh(ctx)
	if refreshErr != nil {
		g.logger.Warn("session refresh failed", "error", refreshErr)
		g.clearIdentity(refreshErr)
	}

	g.mu.Lock()
	queue := g.queue
	g.queue = nil
	g.refreshing = false
	g.mu.Unlock()

	if refreshErr == nil {
		g.logger.Info("session refreshed", "waiting", len(queue))
		g.emit(Event{Kind: EventRefreshSucceeded})
	} else {
		g.emit(Event{Kind: EventRefreshFailed, Err: refreshErr})
	}

	for _, p := range queue {
		p.done <- refreshErr
		g.emit(Event{Kind: EventReleased, RequestID: p.id, Err: refreshErr})
	}

	if refreshErr != nil {
		return nil, refreshErr
	}
	return g.send(ctx, req, true)
}

func (g *Guard) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
	defer cancel()

	_, err := g.Refresh(ctx)
	switch {
	case err == nil:
		return nil
	case IsUnauthorized(err):
		return fmt.Errorf("%w: %w", shared.ErrRefreshUnrecoverable, err)
	default:
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
}

func (g *Guard) clearIdentity(refreshErr error) {
	if g.store == nil {
		return
	}
	if g.keepIdentity && !errors.Is(refreshErr, shared.ErrRefreshUnrecoverable) {
		g.logger.Debug("keeping identity after transient refresh failure")
		return
	}
	if err := g.store.Clear(); err != nil {
		g.logger.Error("failed to clear identity", "error", err)
	}
}

func (g *Guard) emit(e Event) {
	if g.events == nil {
		return
	}
	select {
	case g.events <- e:
	default:
	}
}
