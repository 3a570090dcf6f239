package category

import (
	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cats := rg.Group("/categories")
	cats.GET("", h.list)
	cats.GET("/:slug", h.get)
}

// RegisterAdminRoutes mounts cache maintenance under an authenticated group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, onInvalidate func(c *gin.Context, site string)) {
	rg.POST("/cache/categories/invalidate", func(c *gin.Context) {
		var body struct {
			Site string `json:"site"`
		}
		_ = c.ShouldBindJSON(&body)
		h.svc.Invalidate(body.Site)
		if onInvalidate != nil {
			onInvalidate(c, body.Site)
		}
		response.OK(c, gin.H{"invalidated": true, "site": body.Site})
	})
}

func (h *Handler) list(c *gin.Context) {
	cats, err := h.svc.GetCategories(c.Request.Context())
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, cats)
}

func (h *Handler) get(c *gin.Context) {
	cat, err := h.svc.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cat)
}
