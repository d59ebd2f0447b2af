package admin

import (
	"fmt"
	"log/slog"
	"net/http"

	"leave-service/internal/auth"
	"leave-service/internal/httputil"
	"leave-service/internal/leave"
	"leave-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type CreateUserResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user"`
}

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: httputil.NewValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts /admin behind the admin role gate. router must already
// run the auth middleware.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	admin := router.Group("/admin", auth.RequireRole(user.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard)
	admin.GET("/stats/department", h.DepartmentStats)
	admin.POST("/create-user", h.CreateUser)
	admin.PATCH("/override-leave/:id", h.OverrideLeave)
}

func (h *Handler) Dashboard(c *gin.Context) {
	actor, _ := auth.ActorFrom(c.Request.Context())

	dashboard, err := h.service.Dashboard(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) DepartmentStats(c *gin.Context) {
	actor, _ := auth.ActorFrom(c.Request.Context())

	stats, err := h.service.DepartmentStats(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) CreateUser(c *gin.Context) {
	actor, _ := auth.ActorFrom(c.Request.Context())

	var req user.CreateInput
	if err := httputil.BindJSON(c, h.validate, &req); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	u, err := h.service.CreateUser(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, CreateUserResponse{
		Message: "User created successfully",
		User:    u,
	})
}

func (h *Handler) OverrideLeave(c *gin.Context) {
	actor, _ := auth.ActorFrom(c.Request.Context())
	id, ok := leave.ParseID(c, h.logger)
	if !ok {
		return
	}

	var req leave.DecideRequest
	if err := httputil.BindJSON(c, h.validate, &req); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	l, err := h.service.OverrideLeave(c.Request.Context(), actor, id, req.Input())
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, leave.DecisionResponse{
		Message: fmt.Sprintf("Leave %s by admin override", l.Status),
		Leave:   l,
	})
}
