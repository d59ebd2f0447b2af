// Package admin serves the administrator surface: the dashboard, per-department
// statistics, account creation and the leave override.
package admin

import (
	"context"
	"log/slog"

	"leave-service/internal/auth"
	"leave-service/internal/leave"
	"leave-service/internal/user"

	"github.com/google/uuid"
)

// LeaveStats is the aggregate view of stored leaves. leave.Repository satisfies it.
type LeaveStats interface {
	CountByStatus(ctx context.Context) (leave.StatusCounts, error)
	CountByDepartment(ctx context.Context) ([]leave.DepartmentStats, error)
}

type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalStudents int `json:"totalStudents"`
	TotalFaculty  int `json:"totalFaculty"`
	TotalAdmins   int `json:"totalAdmins"`
	leave.StatusCounts
}

type Dashboard struct {
	Stats        Stats                `json:"stats"`
	RecentLeaves []leave.LeaveRequest `json:"recentLeaves"`
}

type Service interface {
	Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error)
	DepartmentStats(ctx context.Context, actor auth.Actor) ([]leave.DepartmentStats, error)
	CreateUser(ctx context.Context, actor auth.Actor, in user.CreateInput) (*user.User, error)
	OverrideLeave(ctx context.Context, actor auth.Actor, id uuid.UUID, in leave.DecideInput) (*leave.LeaveRequest, error)
}

type service struct {
	users  user.Service
	leaves leave.Service
	stats  LeaveStats
	logger *slog.Logger
}

func NewService(users user.Service, leaves leave.Service, stats LeaveStats, logger *slog.Logger) Service {
	return &service{
		users:  users,
		leaves: leaves,
		stats:  stats,
		logger: logger,
	}
}

func (s *service) Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error) {
	if err := leave.CanOverride(actor); err != nil {
		return nil, err
	}

	roles, err := s.users.Counts(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.stats.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.leaves.Recent(ctx, actor, leave.RecentLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Stats: Stats{
			TotalUsers:    roles.Total,
			TotalStudents: roles.Students,
			TotalFaculty:  roles.Faculty,
			TotalAdmins:   roles.Admins,
			StatusCounts:  counts,
		},
		RecentLeaves: recent,
	}, nil
}

func (s *service) DepartmentStats(ctx context.Context, actor auth.Actor) ([]leave.DepartmentStats, error) {
	if err := leave.CanOverride(actor); err != nil {
		return nil, err
	}
	return s.stats.CountByDepartment(ctx)
}

func (s *service) CreateUser(ctx context.Context, actor auth.Actor, in user.CreateInput) (*user.User, error) {
	if err := leave.CanOverride(actor); err != nil {
		return nil, err
	}

	u, err := s.users.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "admin created user", "admin_id", actor.ID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *service) OverrideLeave(ctx context.Context, actor auth.Actor, id uuid.UUID, in leave.DecideInput) (*leave.LeaveRequest, error) {
	l, err := s.leaves.Override(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "leave overridden", "admin_id", actor.ID, "leave_id", l.ID, "status", l.Status)
	return l, nil
}
