package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"movie-reviews/internal/data/entity"
	"movie-reviews/internal/data/repository"
	"movie-reviews/internal/dto/response"
	"movie-reviews/pkg/broker"
	"movie-reviews/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	basePath   = "/api/reviews"
	testSecret = "wire-secret"
)

// ==================== TEST FIXTURE ====================

type testApp struct {
	app   *App
	store *repository.MemoryStore
	user  entity.User
	movie entity.Movie
	token string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	config := &utils.Config{
		HTTP:     utils.HTTPConfig{BasePath: basePath},
		Database: utils.DatabaseConfig{Driver: utils.DriverMemory},
		JWT:      utils.JWTConfig{Secret: testSecret},
		Review:   utils.ReviewConfig{DescriptionMax: 2000},
	}

	store := repository.NewMemoryStore()
	ta := &testApp{
		store: store,
		user:  entity.User{ID: utils.NewID(), UserName: "alice"},
		movie: entity.Movie{ID: utils.NewID(), Title: "Alien"},
	}
	store.SeedUser(ta.user)
	store.SeedMovie(ta.movie)

	repo := repository.NewMemoryRepository(store, config.Review, zap.NewNop())
	ta.app = Wiring(repo, broker.NopPublisher{}, nil, config, zap.NewNop())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   ta.user.ID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	ta.token = token
	return ta
}

func (ta *testApp) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, basePath+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) authHeader() []string {
	return []string{"Authorization", "Bearer " + ta.token}
}

func (ta *testApp) create(t *testing.T, description string) response.ReviewResponse {
	t.Helper()
	rec := ta.do(t, http.MethodPost, "/", map[string]string{
		"description": description,
		"user":        ta.user.ID.Hex(),
		"movie":       ta.movie.ID.Hex(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	env := decode[response.ReviewEnvelope](t, rec)
	if env.Message != "Review created successfully" || env.Review == nil {
		t.Fatalf("unexpected create response: %s", rec.Body.String())
	}
	return *env.Review
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func expectMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("got status %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decode[utils.ErrorResponse](t, rec).Message; got != message {
		t.Fatalf("got message %q, want %q", got, message)
	}
}

// ==================== CREATE / GET ====================

func TestCreateThenGet(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	if created.LikeCount != 0 || created.DislikeCount != 0 {
		t.Fatalf("new review should have zero counters: %+v", created)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("createdAt %v != updatedAt %v", created.CreatedAt, created.UpdatedAt)
	}

	rec := ta.do(t, http.MethodGet, "/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	got := decode[response.ReviewEnvelope](t, rec).Review
	if got.Description != "Great movie" || got.LikeCount != 0 || got.DislikeCount != 0 {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got.User.ID != ta.user.ID.Hex() || got.User.UserName != "alice" {
		t.Fatalf("user not resolved: %+v", got.User)
	}
	if got.Movie.ID != ta.movie.ID.Hex() || got.Movie.Title != "Alien" {
		t.Fatalf("movie not resolved: %+v", got.Movie)
	}
}

func TestCreate_MissingDescription(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/", map[string]string{
		"user":  ta.user.ID.Hex(),
		"movie": ta.movie.ID.Hex(),
	})
	expectMessage(t, rec, http.StatusBadRequest, "Validation error: description: This field is required")

	if ta.store.Len() != 0 {
		t.Fatalf("rejected review was stored")
	}
}

func TestCreate_InvalidReferences(t *testing.T) {
	ta := newTestApp(t)

	for name, body := range map[string]map[string]string{
		"bad user":  {"description": "x", "user": "123", "movie": ta.movie.ID.Hex()},
		"bad movie": {"description": "x", "user": ta.user.ID.Hex(), "movie": "zzz"},
		"missing":   {"description": "x"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/", body)
			expectMessage(t, rec, http.StatusBadRequest, "Invalid User or Movie ID format.")
		})
	}

	rec := ta.do(t, http.MethodPost, "/", "{not json")
	expectMessage(t, rec, http.StatusBadRequest, "Invalid request body.")

	if ta.store.Len() != 0 {
		t.Fatalf("rejected reviews were stored")
	}
}

func TestGet_NotFound(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/"+utils.NewID().Hex(), nil)
	expectMessage(t, rec, http.StatusNotFound, "Review not found.")
}

// ==================== MALFORMED IDS ====================

func TestMalformedIDs(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		method  string
		path    string
		body    any
		headers []string
		message string
	}{
		{http.MethodGet, "/not-an-id", nil, nil, "Invalid review ID format."},
		{http.MethodPatch, "/not-an-id", map[string]int{"likeCount": 1}, nil, "Invalid review ID format."},
		{http.MethodDelete, "/not-an-id", nil, nil, "Invalid review ID format."},
		{http.MethodPost, "/not-an-id/like", nil, nil, "Invalid review ID format."},
		{http.MethodPost, "/not-an-id/dislike", nil, nil, "Invalid review ID format."},
		{http.MethodGet, "/movie/not-an-id", nil, ta.authHeader(), "Invalid Movie ID format."},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ta.do(t, tt.method, tt.path, tt.body, tt.headers...)
			expectMessage(t, rec, http.StatusBadRequest, tt.message)
		})
	}
}

// ==================== LIST ====================

func TestListReviews(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"reviews\":[]}\n" {
		t.Fatalf("empty list should be an empty array, got %s", body)
	}

	const n = 3
	ids := make([]string, n)
	for i := range ids {
		ids[i] = ta.create(t, "review").ID
	}

	reviews := decode[response.ReviewListEnvelope](t, ta.do(t, http.MethodGet, "/", nil)).Reviews
	if len(reviews) != n {
		t.Fatalf("got %d reviews, want %d", len(reviews), n)
	}
	for i, review := range reviews {
		if review.ID != ids[i] {
			t.Fatalf("position %d: got %s, want %s", i, review.ID, ids[i])
		}
		if review.User.UserName != "alice" || review.Movie.Title != "Alien" {
			t.Fatalf("labels missing: %+v", review)
		}
	}
}

func TestListMovieReviews(t *testing.T) {
	ta := newTestApp(t)
	ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodGet, "/movie/"+ta.movie.ID.Hex(), nil)
	expectMessage(t, rec, http.StatusUnauthorized, "Authentication failed, missing token.")

	rec = ta.do(t, http.MethodGet, "/movie/"+ta.movie.ID.Hex(), nil, ta.authHeader()...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[response.ReviewListEnvelope](t, rec).Reviews; len(got) != 1 {
		t.Fatalf("got %d reviews, want 1", len(got))
	}

	rec = ta.do(t, http.MethodGet, "/movie/"+utils.NewID().Hex(), nil, ta.authHeader()...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := decode[response.ReviewListEnvelope](t, rec).Reviews; got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

// ==================== UPDATE / REACTIONS ====================

func TestUpdate_LikeCountOnly(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodPatch, "/"+created.ID, map[string]int{"likeCount": 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	env := decode[response.ReviewEnvelope](t, rec)
	if env.Message != "Review updated successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	got := env.Review
	if got.LikeCount != 5 || got.DislikeCount != 0 || got.Description != "Great movie" {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got.User.ID != created.User.ID || got.Movie.ID != created.Movie.ID {
		t.Fatal("references changed")
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt %v not after %v", got.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdate_EmptyBody(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodPatch, "/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	got := decode[response.ReviewEnvelope](t, rec).Review
	if got.Description != created.Description || got.LikeCount != 0 || got.DislikeCount != 0 {
		t.Fatalf("fields changed: %+v", got)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt %v not after %v", got.UpdatedAt, created.UpdatedAt)
	}

	rec = ta.do(t, http.MethodPatch, "/"+created.ID, "{")
	expectMessage(t, rec, http.StatusBadRequest, "Invalid request body.")
}

func TestUpdate_Errors(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodPatch, "/"+utils.NewID().Hex(), map[string]int{"likeCount": 1})
	expectMessage(t, rec, http.StatusNotFound, "Review not found.")

	rec = ta.do(t, http.MethodPatch, "/"+created.ID, map[string]int{"likeCount": -1})
	expectMessage(t, rec, http.StatusBadRequest, "Validation error: likeCount: Minimum value is 0")

	rec = ta.do(t, http.MethodPatch, "/"+created.ID, map[string]int{"likeCount": 1, "version": 3})
	expectMessage(t, rec, http.StatusConflict, "Review was modified by another request, reload and retry.")

	rec = ta.do(t, http.MethodPatch, "/"+created.ID, map[string]int{"likeCount": 1, "version": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("matching version: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestReactions(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodPost, "/"+created.ID+"/like", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status %d", rec.Code)
	}
	if msg := decode[response.ReviewEnvelope](t, rec).Message; msg != "Review liked successfully" {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = ta.do(t, http.MethodPost, "/"+created.ID+"/dislike", nil)
	got := decode[response.ReviewEnvelope](t, rec).Review
	if got.LikeCount != 1 || got.DislikeCount != 1 {
		t.Fatalf("unexpected counters: %+v", got)
	}

	rec = ta.do(t, http.MethodPost, "/"+utils.NewID().Hex()+"/like", nil)
	expectMessage(t, rec, http.StatusNotFound, "Review not found.")
}

// ==================== DELETE ====================

func TestDelete(t *testing.T) {
	ta := newTestApp(t)
	created := ta.create(t, "Great movie")

	rec := ta.do(t, http.MethodDelete, "/"+created.ID, nil)
	expectMessage(t, rec, http.StatusOK, "Review deleted successfully")

	rec = ta.do(t, http.MethodGet, "/"+created.ID, nil)
	expectMessage(t, rec, http.StatusNotFound, "Review not found.")

	rec = ta.do(t, http.MethodDelete, "/"+utils.NewID().Hex(), nil)
	expectMessage(t, rec, http.StatusOK, "Review deleted successfully")
}

// ==================== HEALTH ====================

func TestHealth(t *testing.T) {
	config := &utils.Config{HTTP: utils.HTTPConfig{BasePath: basePath}}
	repo := repository.NewMemoryRepository(repository.NewMemoryStore(), config.Review, zap.NewNop())

	healthy := Wiring(repo, nil, nil, config, zap.NewNop())
	rec := httptest.NewRecorder()
	healthy.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy: status %d", rec.Code)
	}

	down := Wiring(repo, nil, func(context.Context) error { return errors.New("no primary") }, config, zap.NewNop())
	rec = httptest.NewRecorder()
	down.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: status %d", rec.Code)
	}
}
