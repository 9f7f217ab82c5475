package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/shared"
)

// Cookie names set by the login and refresh endpoints.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// CookieStore persists cookies per origin.
type CookieStore interface {
	Upsert(origin string, cookies []*http.Cookie) error
	List(origin string) ([]*http.Cookie, error)
	DeleteAll(origin string) error
}

// PersistentJar is an [http.CookieJar] that mirrors the cookies of one origin into a [CookieStore].
//
// Cookies for other hosts are kept in memory only.
type PersistentJar struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar
	origin *url.URL
	store  CookieStore
	logger *log.Logger
}

// NewPersistentJar creates a jar for baseURL and loads the cookies stored for its origin.
func NewPersistentJar(baseURL string, store CookieStore, logger *log.Logger) (*PersistentJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", shared.ErrInvalidConfig, baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	j := &PersistentJar{
		jar:    jar,
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		store:  store,
		logger: shared.WithLogger(logger, "component", "cookies"),
	}

	if store != nil {
		cookies, err := store.List(j.Origin())
		if err != nil {
			return nil, fmt.Errorf("failed to load cookies: %w", err)
		}
		j.jar.SetCookies(j.origin, hostOnly(cookies))
		j.logger.Debug("loaded cookies", "count", len(cookies))
	}

	return j, nil
}

// Origin returns scheme://host of the jar's API.
func (j *PersistentJar) Origin() string {
	return j.origin.Scheme + "://" + j.origin.Host
}

// SetCookies implements [http.CookieJar].
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	j.jar.SetCookies(u, cookies)
	j.mu.RUnlock()

	if j.store == nil || u.Host != j.origin.Host {
		return
	}
	if err := j.store.Upsert(j.Origin(), cookies); err != nil {
		j.logger.Error("failed to persist cookies", "error", err)
	}
}

// Cookies implements [http.CookieJar].
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Current returns the cookies that would be sent to the API origin.
func (j *PersistentJar) Current() []*http.Cookie {
	return j.Cookies(j.origin)
}

// Has reports whether a cookie named name would be sent to the API origin.
func (j *PersistentJar) Has(name string) bool {
	for _, c := range j.Current() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Import adds cookies copied from elsewhere (e.g. a browser session) for the API origin.
func (j *PersistentJar) Import(cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies to import", shared.ErrInvalidInput)
	}

	cookies = hostOnly(cookies)
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}

	j.mu.RLock()
	j.jar.SetCookies(j.origin, cookies)
	j.mu.RUnlock()

	if j.store == nil {
		return nil
	}
	if err := j.store.Upsert(j.Origin(), cookies); err != nil {
		return fmt.Errorf("failed to persist cookies: %w", err)
	}
	return nil
}

// Clear drops every cookie, in memory and in the store.
func (j *PersistentJar) Clear() error {
	fresh, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to reset cookie jar: %w", err)
	}

	j.mu.Lock()
	j.jar = fresh
	j.mu.Unlock()

	if j.store == nil {
		return nil
	}
	return j.store.DeleteAll(j.Origin())
}

// hostOnly strips the Domain attribute so restored cookies bind to the API host.
func hostOnly(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cp := *c
		cp.Domain = ""
		out = append(out, &cp)
	}
	return out
}
