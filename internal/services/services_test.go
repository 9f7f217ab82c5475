package services

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/desertthunder/reelx/internal/auth"
	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
	tu "github.com/desertthunder/reelx/internal/testing"
)

type testEnv struct {
	api     *tu.FakeAPI
	jar     *session.PersistentJar
	store   *auth.Store
	guard   *session.Guard
	movies  *MovieService
	account *AccountService
	raw     *APIService
}

// newTestEnv wires the services the way the CLI does, against a [tu.FakeAPI].
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	api := tu.NewFakeAPI(t)

	jar, err := session.NewPersistentJar(api.URL, nil, logger)
	if err != nil {
		t.Fatalf("failed to create jar: %v", err)
	}

	rt := &http.Transport{}
	t.Cleanup(rt.CloseIdleConnections)

	public := session.NewHTTPTransport(session.HTTPTransportOpts{
		BaseURL: api.URL,
		Client:  &http.Client{Transport: rt, Jar: jar},
		Logger:  logger,
	})
	store := auth.NewStore(auth.StoreOpts{Cookies: jar, Logger: logger})
	guard := session.NewGuard(session.GuardOpts{Transport: public, Store: store, Logger: logger})

	return &testEnv{
		api:     api,
		jar:     jar,
		store:   store,
		guard:   guard,
		movies:  NewMovieService(MovieServiceOpts{Public: public, Private: guard, Identity: store, Logger: logger}),
		account: NewAccountService(AccountServiceOpts{Public: public, Session: guard, Store: store, Logger: logger}),
		raw:     NewAPIService(guard),
	}
}

func (e *testEnv) login(t *testing.T, email string) models.Identity {
	t.Helper()
	identity, err := e.account.Login(context.Background(), models.Credentials{Email: email, Password: tu.FakePassword})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return *identity
}

func testMovie(imdbID string) models.Movie {
	return models.Movie{
		ImdbID:     imdbID,
		Title:      "Heat",
		PosterPath: "https://img.example.com/heat.jpg",
		YouTubeID:  "0xbBG6_mbH8",
		Genre:      []models.Genre{{GenreID: 3, GenreName: "Crime"}},
	}
}
