// Package auth issues admin bearer tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/middleware"
	jwtpkg "github.com/noticias/core/internal/pkg/jwt"
	"github.com/noticias/core/internal/pkg/response"
	"github.com/noticias/core/internal/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginDTO struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service checks the single configured admin account.
type Service struct {
	username     string
	passwordHash []byte
	tokens       *jwtpkg.Manager
	logger       *zap.Logger
}

func NewService(username, passwordHash string, tokens *jwtpkg.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		username:     username,
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
		logger:       logger.Named("AuthService"),
	}
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) Login(username, password string) (string, time.Time, error) {
	if s.username == "" || len(s.passwordHash) == 0 {
		return "", time.Time{}, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// The hash is always checked so timing does not reveal the username.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		s.logger.Info("admin login rejected", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.tokens.Sign(username)
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", h.login)
	a.GET("/session", authMW, h.session)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, validate.Message(err))
		return
	}
	token, exp, err := h.svc.Login(dto.Username, dto.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		response.Unauthorized(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, ExpiresAt: exp})
}

func (h *Handler) session(c *gin.Context) {
	response.OK(c, gin.H{"username": middleware.CurrentAdmin(c)})
}
