package contact

import (
	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/models"
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
	rg.POST("/contact", h.submit)
}

type SubmitRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"omitempty,max=30"`
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	msg, err := h.svc.Submit(c.Request.Context(), Input(req), models.ContactOrigin{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		h.logger.Error("contact submit", zap.Error(err))
		response.Error(c, err)
		return
	}
	// Spam gets the same answer so filters cannot be probed.
	response.Created(c, gin.H{"id": msg.ID, "message": "Gracias, recibimos tu mensaje"})
}
