package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserCtxKey = contextKey("user_id")

var errSigningMethod = errors.New("unexpected signing method")

// IssueToken signs an HS256 token carrying userID, valid for ttl.
func IssueToken(secret []byte, userID models.UserID, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": string(userID),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// JWTAuth rejects requests without a valid bearer token. Websocket clients
// that cannot set headers may pass the token as the "token" query parameter.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errSigningMethod
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok || models.UserID(userID).Validate() != nil {
				http.Error(w, "invalid user_id in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, models.UserID(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		t := r.URL.Query().Get("token")
		return t, t != ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// UserIDFromContext returns the authenticated user set by JWTAuth.
func UserIDFromContext(ctx context.Context) (models.UserID, bool) {
	id, ok := ctx.Value(UserCtxKey).(models.UserID)
	return id, ok
}
