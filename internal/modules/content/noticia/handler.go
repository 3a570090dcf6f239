package noticia

import (
	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/response"
	"github.com/noticias/core/internal/pkg/validate"
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
	rg.GET("/noticias/:slug", h.get)
	rg.GET("/categoria/:slug", h.byCategory)
	rg.GET("/tag/:slug", h.byTag)
	rg.GET("/autor/:slug", h.byAuthor)
	rg.GET("/search", h.search)
}

type slugURI struct {
	Slug string `uri:"slug" binding:"required,slug"`
}

type SearchQuery struct {
	Q        string `form:"q" binding:"required,max=200"`
	Category string `form:"category" binding:"omitempty,slug"`
	SortBy   string `form:"sortBy" binding:"omitempty,oneof=relevance date"`
}

func (h *Handler) bindSlug(c *gin.Context) (string, bool) {
	var uri slugURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, validate.Message(err))
		return "", false
	}
	return uri.Slug, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.logger.Debug(op, zap.Error(err))
	response.Error(c, err)
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.bindSlug(c)
	if !ok {
		return
	}
	a, err := h.svc.GetNoticia(c.Request.Context(), s)
	if err != nil {
		h.fail(c, "get noticia", err)
		return
	}
	response.OK(c, a)
}

func (h *Handler) byCategory(c *gin.Context) {
	s, ok := h.bindSlug(c)
	if !ok {
		return
	}
	items, pag, err := h.svc.ByCategory(c.Request.Context(), s, pagination.FromContext(c))
	if err != nil {
		h.fail(c, "list by category", err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) byTag(c *gin.Context) {
	s, ok := h.bindSlug(c)
	if !ok {
		return
	}
	items, pag, err := h.svc.ByTag(c.Request.Context(), s, pagination.FromContext(c))
	if err != nil {
		h.fail(c, "list by tag", err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) byAuthor(c *gin.Context) {
	s, ok := h.bindSlug(c)
	if !ok {
		return
	}
	items, pag, err := h.svc.ByAuthor(c.Request.Context(), s, pagination.FromContext(c))
	if err != nil {
		h.fail(c, "list by author", err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	items, pag, err := h.svc.Search(c.Request.Context(), q.Q, q.Category, models.ArticleSort(q.SortBy), pagination.FromContext(c))
	if err != nil {
		h.fail(c, "search", err)
		return
	}
	response.Paged(c, items, pag)
}
