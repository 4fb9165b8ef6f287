package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtTestRouter(cfg JWTConfig) *gin.Engine {
	r := gin.New()
	r.Use(JWTAuth(cfg))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   GetJWTUserID(c),
			"tenant_id": GetJWTTenantID(c),
		})
	})
	return r
}

func TestJWTAuthRoundTrip(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", Issuer: "varejo"}
	token, err := IssueToken(cfg, "user-1", "farmacia-centro", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	router := jwtTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "farmacia-centro", body["tenant_id"])
}

func TestJWTAuthRejections(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", Issuer: "varejo"}

	expired, err := IssueToken(cfg, "user-1", "loja1", nil, -time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := IssueToken(JWTConfig{Secret: "test-secret", Issuer: "other"}, "user-1", "loja1", nil, time.Hour)
	require.NoError(t, err)

	wrongSecret, err := IssueToken(JWTConfig{Secret: "not-the-secret", Issuer: "varejo"}, "user-1", "loja1", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing token", header: ""},
		{name: "malformed header", header: "Token abc"},
		{name: "garbage token", header: "Bearer not.a.jwt"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer},
		{name: "wrong secret", header: "Bearer " + wrongSecret},
	}

	router := jwtTestRouter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body errorEnvelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
		})
	}
}

func TestJWTAuthOptional(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", Issuer: "varejo", Optional: true}
	router := jwtTestRouter(cfg)

	// no token passes through with empty claims
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body["tenant_id"])

	// an invalid token is still rejected even in optional mode
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
