package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leave-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, l *LeaveRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)
	// UpdateDecision persists the decision fields of l only if the stored
	// version still equals prevVersion.
	UpdateDecision(ctx context.Context, l *LeaveRequest, prevVersion int) error
	List(ctx context.Context, f Filter) ([]LeaveRequest, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
	CountByDepartment(ctx context.Context) ([]DepartmentStats, error)
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

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(l).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "leave_requests", time.Since(start), err)

	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*LeaveRequest, error) {
	start := time.Now()
	l := new(LeaveRequest)
	err := r.db.NewSelect().
		Model(l).
		Relation("Student").
		Relation("Faculty").
		Where("lr.id = ?", id).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "leave_requests", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaveNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *repository) UpdateDecision(ctx context.Context, l *LeaveRequest, prevVersion int) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(l).
		Column("status", "decided_by", "decision_comment", "approved_at", "rejected_at", "updated_at", "version").
		WherePK().
		Where("version = ?", prevVersion).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "leave_requests", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		r.metrics.Database.RecordConflict(ctx, "leave_requests")
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *repository) List(ctx context.Context, f Filter) ([]LeaveRequest, error) {
	start := time.Now()
	var leaves []LeaveRequest
	q := r.db.NewSelect().
		Model(&leaves).
		Relation("Student").
		Relation("Faculty").
		OrderExpr("lr.created_at DESC, lr.id DESC")

	if f.StudentID != nil {
		q = q.Where("lr.student_id = ?", *f.StudentID)
	}
	if f.FacultyID != nil {
		q = q.Where("lr.faculty_id = ?", *f.FacultyID)
	}
	if f.Status != "" {
		q = q.Where("lr.status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	err := q.Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "leave_requests", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if leaves == nil {
		leaves = []LeaveRequest{}
	}
	return leaves, nil
}

func (r *repository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	start := time.Now()
	var counts StatusCounts
	err := r.db.NewSelect().
		Model((*LeaveRequest)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS pending", StatusPending).
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS approved", StatusApproved).
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS rejected", StatusRejected).
		Scan(ctx, &counts.Total, &counts.Pending, &counts.Approved, &counts.Rejected)

	r.metrics.Database.RecordQuery(ctx, "select", "leave_requests", time.Since(start), err)

	return counts, err
}

func (r *repository) CountByDepartment(ctx context.Context) ([]DepartmentStats, error) {
	start := time.Now()
	var stats []DepartmentStats
	err := r.db.NewSelect().
		Model((*LeaveRequest)(nil)).
		ColumnExpr("s.department AS department").
		ColumnExpr("count(*) AS total").
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS pending", StatusPending).
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS approved", StatusApproved).
		ColumnExpr("count(*) FILTER (WHERE lr.status = ?) AS rejected", StatusRejected).
		Join("JOIN users AS s ON s.id = lr.student_id").
		GroupExpr("s.department").
		OrderExpr("s.department ASC").
		Scan(ctx, &stats)

	r.metrics.Database.RecordQuery(ctx, "select", "leave_requests", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []DepartmentStats{}
	}
	return stats, nil
}
