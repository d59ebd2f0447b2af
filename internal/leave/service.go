package leave

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"leave-service/internal/apperr"
	"leave-service/internal/auth"
	"leave-service/internal/metrics"
	"leave-service/internal/notify"
	"leave-service/internal/user"

	"github.com/google/uuid"
)

// RecentLimit bounds the admin dashboard's recent leaves.
const RecentLimit = 10

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service interface {
	Create(ctx context.Context, actor auth.Actor, in CreateInput) (*CreateResult, error)
	Decide(ctx context.Context, actor auth.Actor, id uuid.UUID, in DecideInput) (*LeaveRequest, error)
	Override(ctx context.Context, actor auth.Actor, id uuid.UUID, in DecideInput) (*LeaveRequest, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*LeaveRequest, error)
	MyLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error)
	PendingForApprover(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error)
	ApproverLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error)
	AllLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error)
	Recent(ctx context.Context, actor auth.Actor, limit int) ([]LeaveRequest, error)
}

type Option func(*service)

// WithClock replaces the wall clock, used by tests.
func WithClock(c Clock) Option {
	return func(s *service) { s.clock = c }
}

type service struct {
	repo     Repository
	resolver Resolver
	notifier notify.Notifier
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(repo Repository, resolver Resolver, notifier notify.Notifier, logger *slog.Logger, m *metrics.Metrics, opts ...Option) Service {
	s := &service{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
		clock:    realClock{},
		logger:   logger,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*CreateResult, error) {
	if err := CanApply(actor); err != nil {
		return nil, err
	}

	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, ErrInvalidDateRange
	}

	now := s.clock.Now()
	if in.StartDate.Before(now) {
		return nil, ErrPastDate
	}

	faculty, err := s.resolver.Resolve(ctx, actor.Department)
	if err != nil {
		return nil, err
	}

	l := &LeaveRequest{
		ID:        uuid.New(),
		StudentID: actor.ID,
		FacultyID: faculty.ID,
		LeaveType: in.LeaveType,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		Reason:    in.Reason,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}

	created, err := s.repo.GetByID(ctx, l.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload created leave", "leave_id", l.ID, "error", err)
		created = l
		created.Student = &user.User{
			ID:         actor.ID,
			Name:       actor.Name,
			Email:      actor.Email,
			Role:       actor.Role,
			Department: actor.Department,
		}
		created.Faculty = faculty
	}

	s.logger.InfoContext(ctx, "leave created",
		"leave_id", created.ID,
		"student_id", actor.ID,
		"faculty_id", faculty.ID,
		"leave_type", created.LeaveType,
	)
	s.metrics.Leaves.RecordApplied(ctx, string(created.LeaveType))

	result := &CreateResult{Leave: created}
	event := notify.NewEvent(notify.KindApplicationSubmitted, faculty.Email, s.payload(created, actor.Name), now)
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue application notification", "leave_id", created.ID, "error", err)
		result.Warnings = append(result.Warnings, "Faculty notification could not be queued: "+err.Error())
	}
	return result, nil
}

func (s *service) Decide(ctx context.Context, actor auth.Actor, id uuid.UUID, in DecideInput) (*LeaveRequest, error) {
	in, err := validateDecision(in)
	if err != nil {
		return nil, err
	}

	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := CanDecide(actor, l); err != nil {
		return nil, err
	}
	if err := checkTransition(l, actor.IsAdmin()); err != nil {
		return nil, err
	}

	override := !l.IsPending()
	if err := s.commit(ctx, actor, l, in); err != nil {
		return nil, err
	}

	if override {
		s.metrics.Leaves.RecordOverridden(ctx, string(in.Status))
	} else {
		s.metrics.Leaves.RecordDecided(ctx, string(in.Status))
	}
	return l, nil
}

func (s *service) Override(ctx context.Context, actor auth.Actor, id uuid.UUID, in DecideInput) (*LeaveRequest, error) {
	if err := CanOverride(actor); err != nil {
		return nil, err
	}

	in, err := validateDecision(in)
	if err != nil {
		return nil, err
	}

	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, actor, l, in); err != nil {
		return nil, err
	}

	s.metrics.Leaves.RecordOverridden(ctx, string(in.Status))
	return l, nil
}

// commit applies the decision, persists it with a version check and then
// enqueues the student's notification.
func (s *service) commit(ctx context.Context, actor auth.Actor, l *LeaveRequest, in DecideInput) error {
	now := s.clock.Now()
	from := l.Status
	prev := applyDecision(l, actor, in, now)

	if err := s.repo.UpdateDecision(ctx, l, prev); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "leave decided",
		"leave_id", l.ID,
		"from", from,
		"to", l.Status,
		"decided_by", actor.ID,
		"role", actor.Role,
		"version", l.Version,
	)

	if l.Student == nil || l.Student.Email == "" {
		s.logger.WarnContext(ctx, "leave has no student email, skipping notification", "leave_id", l.ID)
		return nil
	}
	event := notify.NewEvent(notify.KindDecisionMade, l.Student.Email, s.payload(l, l.Student.Name), now)
	event.Payload.DecidedBy = actor.Name
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue decision notification", "leave_id", l.ID, "error", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*LeaveRequest, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanView(actor, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) MyLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error) {
	return s.list(ctx, actor, ScopeOwn, 0)
}

func (s *service) PendingForApprover(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error) {
	return s.list(ctx, actor, ScopePendingAssigned, 0)
}

func (s *service) ApproverLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error) {
	return s.list(ctx, actor, ScopeAssigned, 0)
}

func (s *service) AllLeaves(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error) {
	return s.list(ctx, actor, ScopeAll, 0)
}

func (s *service) Recent(ctx context.Context, actor auth.Actor, limit int) ([]LeaveRequest, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}
	return s.list(ctx, actor, ScopeAll, limit)
}

func (s *service) list(ctx context.Context, actor auth.Actor, scope Scope, limit int) ([]LeaveRequest, error) {
	f, err := ScopeFilter(actor, scope)
	if err != nil {
		return nil, err
	}
	f.Limit = limit
	return s.repo.List(ctx, f)
}

func (s *service) payload(l *LeaveRequest, studentName string) notify.Payload {
	p := notify.Payload{
		LeaveID:     l.ID.String(),
		StudentName: studentName,
		LeaveType:   string(l.LeaveType),
		StartDate:   l.StartDate,
		EndDate:     l.EndDate,
		Duration:    l.Duration(),
		Reason:      l.Reason,
		Comment:     l.DecisionComment,
	}
	if l.Faculty != nil {
		p.FacultyName = l.Faculty.Name
	}
	if l.Status != StatusPending {
		p.Status = string(l.Status)
	}
	return p
}

func validateCreate(in CreateInput) error {
	verr := apperr.NewValidationError()
	if !in.LeaveType.Valid() {
		verr.Add("leaveType", "Invalid leave type")
	}
	switch n := len([]rune(in.Reason)); {
	case n < MinReasonLength:
		verr.Add("reason", "Reason must be at least 10 characters")
	case n > MaxReasonLength:
		verr.Add("reason", "Reason must be at most 500 characters")
	}
	if in.StartDate.IsZero() {
		verr.Add("startDate", "Invalid start date")
	}
	if in.EndDate.IsZero() {
		verr.Add("endDate", "Invalid end date")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
