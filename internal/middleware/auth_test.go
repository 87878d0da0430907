package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/timelinefeed/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id))
	})
}

func TestJWTAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "alice", -time.Hour)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), "alice", time.Hour)
	require.NoError(t, err)
	blank, err := IssueToken(testSecret, "  ", time.Hour)
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"valid bearer", "Bearer " + valid, "", http.StatusOK},
		{"valid query token", "", "?token=" + valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"blank user", "Bearer " + blank, "", http.StatusUnauthorized},
		{"none algorithm", "Bearer " + noneAlg, "", http.StatusUnauthorized},
	}

	h := JWTAuth(testSecret)(echoUser(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "alice", rec.Body.String())
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
	assert.Equal(t, models.UserID(""), id)
}
