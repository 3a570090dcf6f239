package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/middleware"
	jwtpkg "github.com/noticias/core/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := HashPassword("s3creto")
	require.NoError(t, err)
	tokens, err := jwtpkg.NewManager("test-secret", time.Hour, "noticias")
	require.NoError(t, err)
	svc := NewService("editor", hash, tokens, zap.NewNop())

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/admin"), middleware.Auth(tokens))
	return r, svc
}

func TestLogin(t *testing.T) {
	_, svc := setup(t)
	tok, exp, err := svc.Login("editor", "s3creto")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.True(t, exp.After(time.Now()))

	_, _, err = svc.Login("editor", "otra")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login("intruso", "s3creto")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnconfigured(t *testing.T) {
	tokens, err := jwtpkg.NewManager("x", time.Hour, "")
	require.NoError(t, err)
	_, _, err = NewService("", "", tokens, nil).Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHandlerLoginAndSession(t *testing.T) {
	r, svc := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/auth/login", strings.NewReader(`{"username":"editor","password":"mala"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := svc.Login("editor", "s3creto")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"editor"`)
}
