package auth

import (
	"log/slog"
	"net/http"

	"leave-service/internal/config"
	"leave-service/internal/httputil"
	"leave-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the response for successful authentication
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expiresAt"`
	User      *user.User `json:"user"`
}

type Handler struct {
	users    user.Service
	tokens   *TokenManager
	cfg      config.AuthConfig
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(users user.Service, tokens *TokenManager, cfg config.AuthConfig, logger *slog.Logger) *Handler {
	return &Handler{
		users:    users,
		tokens:   tokens,
		cfg:      cfg,
		validate: httputil.NewValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the public login/logout routes on router and /auth/me
// behind the auth middleware.
func (h *Handler) RegisterRoutes(router gin.IRouter, authMiddleware gin.HandlerFunc) {
	router.POST("/auth/login", h.Login)
	router.POST("/auth/logout", h.Logout)
	router.GET("/auth/me", authMiddleware, h.Me)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := httputil.BindJSON(c, h.validate, &req); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user logged in", "user_id", u.ID, "role", u.Role)

	SetAuthCookie(c.Writer, h.cfg, token, h.tokens.TTL())
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      u,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	ClearAuthCookie(c.Writer, h.cfg)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := ActorFrom(c.Request.Context())
	if !ok {
		httputil.RespondError(c, h.logger, ErrAuthRequired)
		return
	}
	c.JSON(http.StatusOK, actor)
}
