package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	redisErr := error(nil)
	r := gin.New()
	RegisterRoutes(r.Group(""), Deps{Checks: map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return redisErr }),
	}}, func(c *gin.Context) { c.Next() })

	w := serve(r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":true,"redis":true}`, w.Body.String())

	redisErr = errors.New("down")
	w = serve(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":false`)
}

func TestLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noticias_2026-05-04.log"), []byte("hola\n"), 0o644))
	r := gin.New()
	RegisterRoutes(r.Group(""), Deps{LogDir: dir}, func(c *gin.Context) { c.Next() })

	w := serve(r, http.MethodGet, "/health/log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "noticias_2026-05-04.log")

	w = serve(r, http.MethodGet, "/health/log/noticias_2026-05-04.log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hola\n", w.Body.String())
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/health/log/passwd").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, serve(r, http.MethodPost, "/health/email/test").Code)
}
