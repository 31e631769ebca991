package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(zap.NewNop(), "pair-me-42", "test-secret-at-least-32-characters!", time.Hour)
}

func TestIssueSessionWithValidKey(t *testing.T) {
	s := newTestService()

	token, sessionID, err := s.IssueSession("pair-me-42")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, "pinpad-bridge", claims.Issuer)
}

func TestIssueSessionRejectsWrongKey(t *testing.T) {
	s := newTestService()

	_, _, err := s.IssueSession("wrong")
	assert.ErrorIs(t, err, ErrInvalidPairingKey)
}

func TestIssueSessionRejectsWhenUnconfigured(t *testing.T) {
	s := NewService(zap.NewNop(), "", "secret", time.Hour)

	// An empty configured key must not mean "accept anything".
	_, _, err := s.IssueSession("")
	assert.ErrorIs(t, err, ErrInvalidPairingKey)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	s := newTestService()
	_, err := s.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	expired := NewService(zap.NewNop(), "pair-me-42", "test-secret-at-least-32-characters!", -time.Minute)
	token, _, err := expired.IssueSession("pair-me-42")
	require.NoError(t, err)

	_, err = expired.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestService()

	router := gin.New()
	router.GET("/protected", s.AuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token, _, err := s.IssueSession("pair-me-42")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
