package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/services"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin logs in with email and password. The session cookies are persisted by the cookie jar.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := models.Credentials{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}

	r.logger.Info("logging in", "email", creds.Email)

	identity, err := r.account.Login(ctx, creds)
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK("Logged in as %s (%s)", identity.DisplayName(), identity.Role))
}

// AuthLogout ends the session. The local identity and cookies are cleared even if the API call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.account.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Logged out"))
}

// AuthRegister creates an account. Favorite genres are given by name.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	genres, err := r.resolveGenres(ctx, cmd.String("genres"))
	if err != nil {
		return err
	}

	reg := models.Registration{
		FirstName:      cmd.String("first-name"),
		LastName:       cmd.String("last-name"),
		Email:          cmd.String("email"),
		Password:       cmd.String("password"),
		Role:           cmd.String("role"),
		FavoriteGenres: genres,
	}

	if err := r.account.Register(ctx, reg); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK("Registered %s", reg.Email))
	return r.writePlain("%s\n", ui.Help("Next: reelx auth login --email %s", reg.Email))
}

type statusReport struct {
	API           string           `json:"api"`
	Health        *services.Health `json:"health,omitempty"`
	HealthError   string           `json:"health_error,omitempty"`
	LoggedIn      bool             `json:"logged_in"`
	Identity      *models.Identity `json:"identity,omitempty"`
	AccessCookie  bool             `json:"access_cookie"`
	RefreshCookie bool             `json:"refresh_cookie"`
}

// AuthStatus reports API health, the stored identity and which session cookies are held.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	report := statusReport{API: r.config.API.BaseURL}
	if health, err := r.api.Health(ctx); err != nil {
		report.HealthError = err.Error()
	} else {
		report.Health = health
	}

	if identity, ok := r.store.Identity(); ok {
		report.LoggedIn = true
		report.Identity = &identity
	}
	if r.jar != nil {
		report.API = r.jar.Origin()
		report.AccessCookie = r.jar.Has(session.AccessCookie)
		report.RefreshCookie = r.jar.Has(session.RefreshCookie)
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("reelx status")
	if report.Health != nil {
		r.writePlain("%s\n", ui.OK("API %s is %s (%s %s)", report.API, report.Health.Status, report.Health.Service, report.Health.Version))
	} else {
		r.writePlain("%s\n", ui.Err("API %s: %s", report.API, report.HealthError))
	}

	if report.LoggedIn {
		r.writePlain("%s\n", ui.OK("Logged in as %s <%s> (%s)", report.Identity.DisplayName(), report.Identity.Email, report.Identity.Role))
	} else {
		r.writePlain("%s\n", ui.Warn("Not logged in"))
	}

	r.writePlain("Access cookie:  %s\n", yesNo(report.AccessCookie))
	r.writePlain("Refresh cookie: %s\n", yesNo(report.RefreshCookie))
	return nil
}

// AuthRefresh refreshes the access cookie directly.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.account.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Session refreshed"))
}

// AuthImportCookies imports session cookies from a cURL command copied from browser DevTools.
func (r *Runner) AuthImportCookies(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var curlReq *shared.CurlRequest
	var err error

	if curlFile != "" {
		curlReq, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		curlReq, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if u, err := url.Parse(curlReq.URL); err == nil && u.Host != "" && u.Scheme+"://"+u.Host != r.jar.Origin() {
		r.logger.Warn("cURL request targets another host, cookies are stored for the configured API", "url", curlReq.URL, "api", r.jar.Origin())
	}

	cookies, err := curlReq.Cookies()
	if err != nil {
		return err
	}
	if err := r.jar.Import(cookies); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK("Imported %d cookies for %s", len(cookies), r.jar.Origin()))
	if !r.jar.Has(session.RefreshCookie) {
		r.writePlain("%s\n", ui.Warn("No %s cookie imported, the session cannot be refreshed", session.RefreshCookie))
	}
	return nil
}

func yesNo(ok bool) string {
	if ok {
		return ui.OK("present")
	}
	return ui.Err("missing")
}
