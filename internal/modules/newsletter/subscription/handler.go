package subscription

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
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
	g := rg.Group("/newsletter")
	g.POST("/subscribe", h.subscribe)
	g.GET("/confirm", h.confirm)
	g.POST("/unsubscribe", h.unsubscribe)
	g.GET("/preferences", h.getPreferences)
	g.PATCH("/preferences", h.updatePreferences)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscribers", h.list)
	rg.GET("/subscribers/stats", h.stats)
}

// SubscribeRequest accepts preferences nested under "preferences" or as top
// level flags, as older forms post them.
type SubscribeRequest struct {
	Email       string                   `json:"email" binding:"required,email,max=254"`
	Name        string                   `json:"name" binding:"max=120"`
	Source      string                   `json:"source" binding:"max=60"`
	Preferences *models.PreferencesPatch `json:"preferences"`
}

type UnsubscribeRequest struct {
	Token    string `json:"token" binding:"required,hexadecimal,len=64"`
	Reason   string `json:"reason" binding:"max=500"`
	Bulletin string `json:"b" binding:"max=64"`
}

type tokenQuery struct {
	Token string `form:"token" binding:"required,hexadecimal,len=64"`
}

type PreferencesRequest struct {
	Token       string                  `json:"token" binding:"required,hexadecimal,len=64"`
	Preferences models.PreferencesPatch `json:"preferences"`
}

type ListQuery struct {
	Active    *bool `form:"active"`
	Confirmed *bool `form:"confirmed"`
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.logger.Debug(op, zap.Error(err))
	response.Error(c, err)
}

func (h *Handler) subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	var prefs models.PreferencesPatch
	if req.Preferences != nil {
		prefs = *req.Preferences
	} else if err := c.ShouldBindBodyWith(&prefs, binding.JSON); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), SubscribeInput{
		Email:       req.Email,
		Name:        req.Name,
		Source:      req.Source,
		Preferences: prefs,
	})
	if err != nil {
		h.logger.Error("subscribe", zap.Error(err))
		response.Error(c, err)
		return
	}
	if sub.IsConfirmed {
		response.OK(c, gin.H{"message": "Tus preferencias fueron actualizadas", "subscriber": sub})
		return
	}
	response.Created(c, gin.H{"message": "Te enviamos un correo para confirmar tu suscripción", "subscriber": sub})
}

func (h *Handler) confirm(c *gin.Context) {
	var q tokenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, models.ErrExpiredOrInvalidToken)
		return
	}
	sub, err := h.svc.ConfirmSubscription(c.Request.Context(), q.Token)
	if err != nil {
		h.fail(c, "confirm subscription", err)
		return
	}
	response.OK(c, gin.H{"message": "Suscripción confirmada", "subscriber": sub})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	if err := h.svc.Unsubscribe(c.Request.Context(), req.Token, req.Reason, req.Bulletin); err != nil {
		h.fail(c, "unsubscribe", err)
		return
	}
	response.OK(c, gin.H{"message": "Cancelaste tu suscripción"})
}

func (h *Handler) getPreferences(c *gin.Context) {
	var q tokenQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	sub, err := h.svc.GetPreferences(c.Request.Context(), q.Token)
	if err != nil {
		h.fail(c, "get preferences", err)
		return
	}
	response.OK(c, sub)
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	sub, err := h.svc.UpdatePreferences(c.Request.Context(), req.Token, req.Preferences)
	if err != nil {
		h.fail(c, "update preferences", err)
		return
	}
	response.OK(c, sub)
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	items, pag, err := h.svc.List(c.Request.Context(), ListFilter(q), pagination.FromContext(c))
	if err != nil {
		h.logger.Error("list subscribers", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("subscriber stats", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, st)
}
