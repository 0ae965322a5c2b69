package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"movie-reviews/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTAuth(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "user-1"})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "user-1"})

	tests := []struct {
		name    string
		secret  string
		header  string
		status  int
		message string
	}{
		{"valid token", testSecret, "Bearer " + valid, http.StatusOK, ""},
		{"missing header", testSecret, "", http.StatusUnauthorized, "Authentication failed, missing token."},
		{"not bearer", testSecret, "Basic abc", http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>"},
		{"empty bearer", testSecret, "Bearer ", http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>"},
		{"expired", testSecret, "Bearer " + expired, http.StatusUnauthorized, "Authentication failed, invalid token."},
		{"wrong key", testSecret, "Bearer " + wrongKey, http.StatusUnauthorized, "Authentication failed, invalid token."},
		{"wrong algorithm", testSecret, "Bearer " + wrongAlg, http.StatusUnauthorized, "Authentication failed, invalid token."},
		{"garbage", testSecret, "Bearer not.a.jwt", http.StatusUnauthorized, "Authentication failed, invalid token."},
		{"no secret configured", "", "Bearer " + valid, http.StatusUnauthorized, "Authentication failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = utils.GetUserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/movie/507f1f77bcf86cd799439011", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			JWTAuth(tt.secret, zap.NewNop())(next).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("got status %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK {
				if subject != "user-1" {
					t.Fatalf("subject not stored in context, got %q", subject)
				}
				return
			}

			var body utils.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Message != tt.message {
				t.Fatalf("got message %q, want %q", body.Message, tt.message)
			}
		})
	}
}
