package leave

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"leave-service/internal/apperr"
	"leave-service/internal/auth"
	"leave-service/internal/httputil"
	"leave-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// ApplyRequest is the request body for a leave application.
type ApplyRequest struct {
	LeaveType string `json:"leaveType" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// DecideRequest is the request body for a decision or an admin override.
type DecideRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment"`
}

func (r DecideRequest) Input() DecideInput {
	return DecideInput{Status: Status(strings.ToLower(strings.TrimSpace(r.Status))), Comment: r.Comment}
}

type ApplyResponse struct {
	Message  string        `json:"message"`
	Leave    *LeaveRequest `json:"leave"`
	Warnings []string      `json:"warnings,omitempty"`
}

type DecisionResponse struct {
	Message string        `json:"message"`
	Leave   *LeaveRequest `json:"leave"`
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

// RegisterRoutes mounts the /leaves routes. router must already run the auth
// middleware.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	leaves := router.Group("/leaves")
	leaves.POST("/apply", h.Apply)
	leaves.GET("/my-leaves", auth.RequireRole(user.RoleStudent), h.MyLeaves)
	leaves.GET("/pending", auth.RequireRole(user.RoleFaculty), h.Pending)
	leaves.GET("/faculty-leaves", auth.RequireRole(user.RoleFaculty), h.FacultyLeaves)
	leaves.GET("/all", auth.RequireRole(user.RoleAdmin), h.All)
	leaves.GET("/:id", h.Get)
	leaves.PATCH("/:id/status", auth.RequireRole(user.RoleFaculty, user.RoleAdmin), h.UpdateStatus)
}

func (h *Handler) Apply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ApplyRequest
	if err := httputil.BindJSON(c, h.validate, &req); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	in, err := req.input()
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), actor, in)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, ApplyResponse{
		Message:  "Leave application submitted successfully",
		Leave:    result.Leave,
		Warnings: result.Warnings,
	})
}

func (h *Handler) MyLeaves(c *gin.Context) {
	h.list(c, h.service.MyLeaves)
}

func (h *Handler) Pending(c *gin.Context) {
	h.list(c, h.service.PendingForApprover)
}

func (h *Handler) FacultyLeaves(c *gin.Context) {
	h.list(c, h.service.ApproverLeaves)
}

func (h *Handler) All(c *gin.Context) {
	h.list(c, h.service.AllLeaves)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.leaveID(c)
	if !ok {
		return
	}

	l, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.leaveID(c)
	if !ok {
		return
	}

	var req DecideRequest
	if err := httputil.BindJSON(c, h.validate, &req); err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	l, err := h.service.Decide(c.Request.Context(), actor, id, req.Input())
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, DecisionResponse{
		Message: fmt.Sprintf("Leave %s successfully", l.Status),
		Leave:   l,
	})
}

func (h *Handler) list(c *gin.Context, query func(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	leaves, err := query(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, leaves)
}

func (h *Handler) actor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.ActorFrom(c.Request.Context())
	if !ok {
		httputil.RespondError(c, h.logger, auth.ErrAuthRequired)
		return auth.Actor{}, false
	}
	return actor, true
}

func (h *Handler) leaveID(c *gin.Context) (uuid.UUID, bool) {
	return ParseID(c, h.logger)
}

// ParseID reads the :id path parameter. A malformed id cannot name a leave,
// so it answers 404.
func ParseID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondError(c, logger, ErrLeaveNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (r ApplyRequest) input() (CreateInput, error) {
	verr := apperr.NewValidationError()

	start, err := ParseDate(r.StartDate)
	if err != nil {
		verr.Add("startDate", "Invalid start date")
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		verr.Add("endDate", "Invalid end date")
	}
	if verr.HasErrors() {
		return CreateInput{}, verr
	}

	return CreateInput{
		LeaveType: Type(strings.ToLower(strings.TrimSpace(r.LeaveType))),
		StartDate: start,
		EndDate:   end,
		Reason:    r.Reason,
	}, nil
}

// ParseDate accepts a calendar date (UTC midnight) or an RFC 3339 instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}
