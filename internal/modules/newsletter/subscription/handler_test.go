package subscription

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/noticias/core/internal/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func router(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validate.Gin()
	f := setup(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(tenant.WithSite(c.Request.Context(), "hidalgo"))
	})
	h := NewHandler(f.svc, zap.NewNop())
	h.RegisterRoutes(r.Group("/public-content"))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r, f
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerSubscribeFlatAliases(t *testing.T) {
	r, f := router(t)
	w := do(r, http.MethodPost, "/public-content/newsletter/subscribe", `{"email":"a@b.com","manana":true,"deportes":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "Token")

	sub, err := f.svc.GetSubscriber(siteCtx(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, sub.Preferences.Morning)
	assert.True(t, sub.Preferences.Sports)
	assert.False(t, sub.Preferences.Weekly)
}

func TestHandlerSubscribeNestedPreferences(t *testing.T) {
	r, f := router(t)
	w := do(r, http.MethodPost, "/public-content/newsletter/subscribe", `{"email":"a@b.com","preferences":{"evening":true}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	sub, err := f.svc.GetSubscriber(siteCtx(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, sub.Preferences.Evening)
	assert.False(t, sub.Preferences.Morning)
}

func TestHandlerSubscribeRejectsBadEmail(t *testing.T) {
	r, _ := router(t)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/public-content/newsletter/subscribe", `{"email":"nope"}`).Code)
}

func TestHandlerConfirmAndUnsubscribe(t *testing.T) {
	r, f := router(t)
	sub, err := f.svc.Subscribe(siteCtx(), SubscribeInput{Email: "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/public-content/newsletter/confirm?token=bad", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/public-content/newsletter/confirm?token="+*sub.ConfirmationToken, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/public-content/newsletter/confirm?token="+*sub.ConfirmationToken, "").Code)

	w := do(r, http.MethodPatch, "/public-content/newsletter/preferences", `{"token":"`+sub.UnsubscribeToken+`","preferences":{"sports":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sports":true`)

	body := `{"token":"` + sub.UnsubscribeToken + `"}`
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/public-content/newsletter/unsubscribe", body).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/public-content/newsletter/unsubscribe", body).Code)

	missing := `{"token":"` + strings.Repeat("f", 64) + `"}`
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/public-content/newsletter/unsubscribe", missing).Code)
}

func TestHandlerAdminListing(t *testing.T) {
	r, f := router(t)
	_, err := f.svc.Subscribe(siteCtx(), SubscribeInput{Email: "a@b.com"})
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/admin/subscribers?confirmed=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@b.com")

	w = do(r, http.MethodGet, "/admin/subscribers/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}
