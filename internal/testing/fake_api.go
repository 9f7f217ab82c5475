package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/reelx/internal/models"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	FakePassword = "hunter22"
)

// FakeAPI is an in-process MagicStream API.
//
// Access tokens are tied to a generation; [FakeAPI.Expire] bumps the generation so every issued access token is
// rejected with 401 until the client calls POST /refresh.
type FakeAPI struct {
	*httptest.Server

	mu            sync.Mutex
	generation    int
	refreshToken  string
	refreshStatus int
	refreshGate   chan struct{}
	users         map[string]models.Identity
	movies        []models.Movie
	genres        []models.Genre
	hits          map[string]int
}

// NewFakeAPI starts a [FakeAPI] seeded with an admin, a regular user and two movies. It is closed on test cleanup.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		generation:   1,
		refreshToken: "refresh-1",
		users: map[string]models.Identity{
			"admin@example.com": {UserID: "u-admin", FirstName: "Ada", LastName: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
			"user@example.com":  {UserID: "u-user", FirstName: "Uma", LastName: "User", Email: "user@example.com", Role: "USER"},
		},
		genres: []models.Genre{{GenreID: 1, GenreName: "Comedy"}, {GenreID: 2, GenreName: "Drama"}},
		hits:   make(map[string]int),
	}
	f.movies = []models.Movie{
		{
			ImdbID: "tt0111161", Title: "The Shawshank Redemption", PosterPath: "https://img.example.com/shawshank.jpg",
			YouTubeID: "PLl99DlL6b4", Genre: []models.Genre{f.genres[1]},
			Ranking: models.Ranking{RankingValue: 1, RankingName: "Excellent"},
		},
		{
			ImdbID: "tt0109830", Title: "Forrest Gump", PosterPath: "https://img.example.com/gump.jpg",
			YouTubeID: "bLvqoHBptjg", Genre: []models.Genre{f.genres[0], f.genres[1]},
			Ranking: models.Ranking{RankingValue: 2, RankingName: "Good"},
		},
	}

	mux := http.NewServeMux()
	f.handle(mux, "GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": "magic-stream-api", "version": "1.0.0"})
	})
	f.handle(mux, "GET /movies", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.movies)
	})
	f.handle(mux, "GET /genres", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.genres)
	})
	f.handle(mux, "POST /register", f.handleRegister)
	f.handle(mux, "POST /login", f.handleLogin)
	f.handle(mux, "POST /logout", f.handleLogout)
	f.handle(mux, "POST /refresh", f.handleRefresh)
	f.handle(mux, "GET /movie/{imdb_id}", f.handleMovie, f.protected)
	f.handle(mux, "POST /movie", f.handleAddMovie, f.protected)
	f.handle(mux, "GET /recommendedmovies", f.handleRecommended, f.protected)
	f.handle(mux, "PATCH /updatereview/{imdb_id}", f.handleReview, f.protected)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Expire invalidates every access token issued so far.
func (f *FakeAPI) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
}

// RevokeRefresh makes POST /refresh answer 401.
func (f *FakeAPI) RevokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshToken = ""
}

// FailRefresh makes POST /refresh answer status. Zero restores normal behavior.
func (f *FakeAPI) FailRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

// HoldRefresh blocks POST /refresh until the returned function is called.
func (f *FakeAPI) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Hits returns how many times "METHOD /path" was served.
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// AccessToken returns the access token value accepted right now.
func (f *FakeAPI) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("access-%d", f.generation)
}

func (f *FakeAPI) hit(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.Method+" "+r.URL.Path]++
}

func (f *FakeAPI) setTokens(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: fmt.Sprintf("access-%d", f.generation), Path: "/", HttpOnly: true, MaxAge: 86400})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: f.refreshToken, Path: "/", HttpOnly: true, MaxAge: 604800})
}

// middleware wraps an [http.Handler] with additional behavior.
type middleware func(http.Handler) http.Handler

// handle registers h for pattern. Middleware is applied in order (the first one runs outermost)
// and every request is counted before any of it runs.
func (f *FakeAPI) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, middlewares ...middleware) {
	var wrapped http.Handler = h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	mux.Handle(pattern, f.count(wrapped))
}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		next.ServeHTTP(w, r)
	})
}

// protected rejects requests without the current access token.
func (f *FakeAPI) protected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(AccessCookie)
		f.mu.Lock()
		valid := err == nil && c.Value == fmt.Sprintf("access-%d", f.generation)
		f.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid input data"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[reg.Email]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "User already exists"})
		return
	}

	f.users[reg.Email] = models.Identity{
		UserID:         fmt.Sprintf("u-%d", len(f.users)+1),
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		Email:          reg.Email,
		Role:           reg.Role,
		FavoriteGenres: reg.FavoriteGenres,
	}
	writeJSON(w, http.StatusOK, map[string]string{"InsertedID": f.users[reg.Email].UserID})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid input data"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[creds.Email]
	if !ok || creds.Password != FakePassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid Password"})
		return
	}

	if f.refreshToken == "" {
		f.refreshToken = "refresh-1"
	}
	f.setTokens(w)
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	gate := f.refreshGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refreshStatus != 0 {
		writeJSON(w, f.refreshStatus, map[string]string{"error": "Error updating tokens"})
		return
	}

	c, err := r.Cookie(RefreshCookie)
	if err != nil || f.refreshToken == "" || c.Value != f.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired refresh token"})
		return
	}

	f.generation++
	f.setTokens(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tokens refreshed"})
}

func (f *FakeAPI) handleMovie(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("imdb_id")

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.movies {
		if m.ImdbID == id {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Movie not found"})
}

func (f *FakeAPI) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid Input"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.movies = append(f.movies, movie)
	writeJSON(w, http.StatusCreated, map[string]string{"InsertedID": movie.ImdbID})
}

func (f *FakeAPI) handleRecommended(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Movie
	for _, m := range f.movies {
		if m.Ranking.RankingValue == 1 {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleReview(w http.ResponseWriter, r *http.Request) {
	var body models.ReviewUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	id := r.PathValue("imdb_id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.movies {
		if m.ImdbID == id {
			f.movies[i].AdminReview = body.AdminReview
			f.movies[i].Ranking = models.Ranking{RankingValue: 2, RankingName: "Good"}
			writeJSON(w, http.StatusOK, models.ReviewResult{RankingName: "Good", AdminReview: body.AdminReview})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Movie not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
