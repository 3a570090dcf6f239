package bulletin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/response"
	"go.uber.org/zap"
)

// pixel is a transparent 1x1 GIF.
var pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type Handler struct {
	svc    *Dispatcher
	logger *zap.Logger
}

func NewHandler(svc *Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/newsletter")
	g.GET("/preview/:type", h.preview)
	g.GET("/track/open/:id", h.trackOpen)
	g.GET("/track/click/:id", h.trackClick)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/bulletins", h.list)
	rg.GET("/bulletins/:id", h.get)
	rg.POST("/bulletins/:type/dispatch", h.dispatch)
}

func (h *Handler) bulletinType(c *gin.Context) (models.BulletinType, bool) {
	t, err := models.ParseBulletinType(c.Param("type"))
	if err != nil {
		response.BadRequest(c, "Tipo de boletín inválido")
		return "", false
	}
	return t, true
}

func (h *Handler) preview(c *gin.Context) {
	t, ok := h.bulletinType(c)
	if !ok {
		return
	}
	b, err := h.svc.Preview(c.Request.Context(), t)
	if err != nil {
		h.logger.Debug("preview bulletin", zap.Error(err))
		response.Error(c, err)
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.Content.HTML))
		return
	}
	response.OK(c, b)
}

// trackOpen always answers with the pixel so mail clients never show a
// broken image.
func (h *Handler) trackOpen(c *gin.Context) {
	if err := h.svc.TrackOpen(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Debug("track open", zap.String("id", c.Param("id")), zap.Error(err))
	}
	c.Header("Cache-Control", "no-store, max-age=0")
	c.Data(http.StatusOK, "image/gif", pixel)
}

func (h *Handler) trackClick(c *gin.Context) {
	target, err := h.svc.TrackClick(c.Request.Context(), c.Param("id"), c.Query("u"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		h.logger.Error("list bulletins", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}

func (h *Handler) dispatch(c *gin.Context) {
	t, ok := h.bulletinType(c)
	if !ok {
		return
	}
	b, err := h.svc.Dispatch(c.Request.Context(), t)
	if err != nil {
		h.logger.Warn("dispatch bulletin", zap.String("type", string(t)), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}
