package bulletin

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func router(t *testing.T) (*gin.Engine, *dispatchFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newDispatcher(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(tenant.WithSite(c.Request.Context(), "hidalgo"))
	})
	h := NewHandler(f.d, zap.NewNop())
	h.RegisterRoutes(r.Group("/public-content"))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r, f
}

func call(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandlerPreview(t *testing.T) {
	r, f := router(t)
	put(f.store, "nota", time.Hour, 0)

	w := call(r, http.MethodGet, "/public-content/newsletter/preview/manana?format=html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Buenos días")

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/public-content/newsletter/preview/morning").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/public-content/newsletter/preview/deportes").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/public-content/newsletter/preview/mensual").Code)
}

func TestHandlerDispatchAndTrack(t *testing.T) {
	r, f := router(t)
	put(f.store, "nota", time.Hour, 0)

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/admin/bulletins/morning/dispatch").Code)
	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, "/admin/bulletins/morning/dispatch").Code)

	items, _, err := f.d.List(siteCtx(), pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	w := call(r, http.MethodGet, "/public-content/newsletter/track/open/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/public-content/newsletter/track/open/missing").Code)

	target := url.QueryEscape("https://hidalgo.test/noticias/nota")
	w = call(r, http.MethodGet, "/public-content/newsletter/track/click/"+id+"?u="+target)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://hidalgo.test/noticias/nota", w.Header().Get("Location"))
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/public-content/newsletter/track/click/"+id+"?u=https://evil.test").Code)

	w = call(r, http.MethodGet, "/admin/bulletins/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"opened":1`)
	assert.Contains(t, w.Body.String(), `"clicked":1`)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/admin/bulletins").Code)
}
