package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
)

// IdentityReader exposes the logged in user.
type IdentityReader interface {
	Identity() (models.Identity, bool)
}

// IdentityStore is the auth store as seen by [AccountService].
type IdentityStore interface {
	IdentityReader
	Set(identity models.Identity) error
	Clear() error
}

// Refresher calls the refresh endpoint directly.
type Refresher interface {
	Refresh(ctx context.Context) (*session.Response, error)
}

// getJSON issues a GET and decodes the JSON response into out.
func getJSON(ctx context.Context, t session.Transport, path string, out any) error {
	resp, err := t.Do(ctx, session.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		return apiError(err)
	}
	return resp.DecodeJSON(out)
}

// sendJSON encodes body, issues the request and decodes the response into out when out is not nil.
func sendJSON(ctx context.Context, t session.Transport, method, path string, body, out any) error {
	req, err := session.JSONRequest(method, path, body)
	if err != nil {
		return err
	}

	resp, err := t.Do(ctx, req)
	if err != nil {
		return apiError(err)
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

// apiError tags status errors with the matching sentinel error.
//
// Session errors from the guard are already tagged and returned unchanged.
func apiError(err error) error {
	if errors.Is(err, shared.ErrRefreshUnrecoverable) ||
		errors.Is(err, shared.ErrRefreshFailed) ||
		errors.Is(err, shared.ErrUnauthorizedAfterRetry) {
		return err
	}

	switch code := session.StatusCode(err); {
	case code == 0:
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", shared.ErrForbidden, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", shared.ErrMovieNotFound, err)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %w", shared.ErrConflict, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
}
