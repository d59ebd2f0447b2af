package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leave-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	FirstFaculty(ctx context.Context, department string) (*User, error)
	LeastLoadedFaculty(ctx context.Context, department string) (*User, error)
	CountByRole(ctx context.Context) (RoleCounts, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, u *User) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(u).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "users", time.Since(start), err)

	if isUniqueViolation(err) {
		return ErrUserExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().
		Model(u).
		Where("lower(u.email) = lower(?)", email).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// FirstFaculty returns the earliest-created faculty member of the department.
func (r *repository) FirstFaculty(ctx context.Context, department string) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().
		Model(u).
		Where("u.role = ?", RoleFaculty).
		Where("u.department = ?", department).
		OrderExpr("u.created_at ASC, u.id ASC").
		Limit(1).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// LeastLoadedFaculty returns the department's faculty member with the fewest
// pending leave requests, ties broken by creation order.
func (r *repository) LeastLoadedFaculty(ctx context.Context, department string) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().
		Model(u).
		ColumnExpr("u.*").
		Join("LEFT JOIN leave_requests AS lr ON lr.faculty_id = u.id AND lr.status = 'pending'").
		Where("u.role = ?", RoleFaculty).
		Where("u.department = ?", department).
		Group("u.id").
		OrderExpr("count(lr.id) ASC, u.created_at ASC, u.id ASC").
		Limit(1).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) CountByRole(ctx context.Context) (RoleCounts, error) {
	start := time.Now()
	var rows []struct {
		Role  Role `bun:"role"`
		Count int  `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*User)(nil)).
		Column("u.role").
		ColumnExpr("count(*) AS count").
		Group("u.role").
		Scan(ctx, &rows)

	r.metrics.Database.RecordQuery(ctx, "select", "users", time.Since(start), err)

	if err != nil {
		return RoleCounts{}, err
	}

	var counts RoleCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Role {
		case RoleStudent:
			counts.Students = row.Count
		case RoleFaculty:
			counts.Faculty = row.Count
		case RoleAdmin:
			counts.Admins = row.Count
		}
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
