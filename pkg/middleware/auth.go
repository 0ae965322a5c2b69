package middleware

import (
	"errors"
	"net/http"
	"strings"

	"movie-reviews/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTAuth rejects requests without a valid HS256 bearer token and stores
// the token subject in the request context.
func JWTAuth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Authentication failed, missing token.")
				return
			}

			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			if len(key) == 0 {
				logger.Error("JWT secret is not configured, rejecting request",
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Authentication failed.")
				return
			}

			claims := jwt.RegisteredClaims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.Bool("expired", errors.Is(err, jwt.ErrTokenExpired)),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Authentication failed, invalid token.")
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
