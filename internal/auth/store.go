// package auth holds the process-wide identity of the logged in user.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/repositories"
	"github.com/desertthunder/reelx/internal/shared"
)

// Persister stores a copy of the identity outside the process.
type Persister interface {
	Save(identity *models.Identity) error
	Load() (*models.Identity, error)
	Delete() error
}

// CookieCleaner forgets the ambient credentials tied to the identity.
type CookieCleaner interface {
	Clear() error
}

// Store is the process-wide holder of the current [models.Identity].
//
// The login flow sets it, the session guard clears it when the session cannot be refreshed.
type Store struct {
	mu       sync.RWMutex
	identity *models.Identity

	persister Persister
	cookies   CookieCleaner
	logger    *log.Logger
}

// StoreOpts configures a [Store]. Persister and Cookies are optional.
type StoreOpts struct {
	Persister Persister
	Cookies   CookieCleaner
	Logger    *log.Logger
}

// NewStore creates an empty [Store].
func NewStore(opts StoreOpts) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Store{
		persister: opts.Persister,
		cookies:   opts.Cookies,
		logger:    shared.WithLogger(opts.Logger, "component", "auth"),
	}
}

// Load restores the persisted identity, if any.
func (s *Store) Load() error {
	if s.persister == nil {
		return nil
	}

	identity, err := s.persister.Load()
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	s.logger.Debug("restored identity", "user_id", identity.UserID)
	return nil
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Require returns the current identity or [shared.ErrNotAuthenticated].
func (s *Store) Require() (models.Identity, error) {
	identity, ok := s.Identity()
	if !ok {
		return models.Identity{}, fmt.Errorf("%w: run 'reelx auth login' first", shared.ErrNotAuthenticated)
	}
	return identity, nil
}

// Set replaces the current identity and its persisted copy.
func (s *Store) Set(identity models.Identity) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if s.persister != nil {
		if err := s.persister.Save(&identity); err != nil {
			return fmt.Errorf("failed to persist identity: %w", err)
		}
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()

	s.logger.Info("identity stored", "user_id", identity.UserID)
	return nil
}

// Clear removes the current identity, its persisted copy and the stored cookies.
//
// The in-memory identity is always dropped; persistence errors are joined and returned.
func (s *Store) Clear() error {
	s.mu.Lock()
	had := s.identity != nil
	s.identity = nil
	s.mu.Unlock()

	var errs []error
	if s.persister != nil {
		if err := s.persister.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete identity: %w", err))
		}
	}
	if s.cookies != nil {
		if err := s.cookies.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear cookies: %w", err))
		}
	}

	if had {
		s.logger.Info("identity cleared")
	}
	return errors.Join(errs...)
}
