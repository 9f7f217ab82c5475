package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
)

// AccountService handles registration and the session lifecycle.
//
// Login, logout and registration use the plain transport: a 401 there means bad credentials, not an expired session.
type AccountService struct {
	public  session.Transport
	session Refresher
	store   IdentityStore
	logger  *log.Logger
}

// AccountServiceOpts configures an [AccountService].
type AccountServiceOpts struct {
	Public  session.Transport
	Session Refresher
	Store   IdentityStore
	Logger  *log.Logger
}

// NewAccountService creates a new [AccountService]
func NewAccountService(opts AccountServiceOpts) *AccountService {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AccountService{
		public:  opts.Public,
		session: opts.Session,
		store:   opts.Store,
		logger:  shared.WithLogger(logger, "component", "account"),
	}
}

// Register creates a user account.
func (s *AccountService) Register(ctx context.Context, reg models.Registration) error {
	if reg.Role == "" {
		reg.Role = "USER"
	}
	if reg.FavoriteGenres == nil {
		reg.FavoriteGenres = []models.Genre{}
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	if err := sendJSON(ctx, s.public, http.MethodPost, "/register", reg, nil); err != nil {
		return fmt.Errorf("failed to register %s: %w", reg.Email, err)
	}

	s.logger.Info("registered", "email", reg.Email)
	return nil
}

// Login authenticates with creds and stores the returned identity.
//
// The access and refresh cookies set by the API land in the transport's cookie jar.
func (s *AccountService) Login(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var identity models.Identity
	if err := sendJSON(ctx, s.public, http.MethodPost, "/login", creds, &identity); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.store.Set(identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Logout ends the session on the API and clears the local identity.
//
// The identity is cleared even if the API call fails.
func (s *AccountService) Logout(ctx context.Context) error {
	identity, ok := s.store.Identity()
	if !ok {
		return fmt.Errorf("%w: nobody is logged in", shared.ErrNotAuthenticated)
	}

	body := map[string]string{"user_id": identity.UserID}
	apiErr := sendJSON(ctx, s.public, http.MethodPost, "/logout", body, nil)
	if apiErr != nil {
		s.logger.Warn("logout request failed, clearing local session anyway", "error", apiErr)
		apiErr = fmt.Errorf("logout request failed: %w", apiErr)
	}

	return errors.Join(apiErr, s.store.Clear())
}

// Refresh asks the API for a new access cookie.
//
// A rejected refresh credential is reported as [shared.ErrRefreshUnrecoverable]. Unlike a refresh started by the
// guard, a direct refresh never clears the identity.
func (s *AccountService) Refresh(ctx context.Context) error {
	if _, err := s.session.Refresh(ctx); err != nil {
		if session.IsUnauthorized(err) {
			return fmt.Errorf("%w: %w", shared.ErrRefreshUnrecoverable, err)
		}
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	s.logger.Info("session refreshed")
	return nil
}
