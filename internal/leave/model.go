package leave

import (
	"encoding/json"
	"math"
	"time"

	"leave-service/internal/user"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Type string

const (
	TypeSick      Type = "sick"
	TypeAcademic  Type = "academic"
	TypePersonal  Type = "personal"
	TypeEmergency Type = "emergency"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSick, TypeAcademic, TypePersonal, TypeEmergency:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsDecision reports whether s is a status a decision may set.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

const (
	MinReasonLength  = 10
	MaxReasonLength  = 500
	MaxCommentLength = 200
)

type LeaveRequest struct {
	bun.BaseModel `bun:"table:leave_requests,alias:lr"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	StudentID       uuid.UUID  `bun:"student_id,type:uuid,notnull" json:"studentId"`
	Student         *user.User `bun:"rel:belongs-to,join:student_id=id" json:"student,omitempty"`
	FacultyID       uuid.UUID  `bun:"faculty_id,type:uuid,notnull" json:"facultyId"`
	Faculty         *user.User `bun:"rel:belongs-to,join:faculty_id=id" json:"faculty,omitempty"`
	LeaveType       Type       `bun:"leave_type,notnull" json:"leaveType"`
	StartDate       time.Time  `bun:"start_date,notnull" json:"startDate"`
	EndDate         time.Time  `bun:"end_date,notnull" json:"endDate"`
	Reason          string     `bun:"reason,notnull" json:"reason"`
	Status          Status     `bun:"status,notnull" json:"status"`
	DecidedBy       *uuid.UUID `bun:"decided_by,type:uuid" json:"decidedBy,omitempty"`
	DecisionComment string     `bun:"decision_comment,nullzero" json:"decisionComment,omitempty"`
	ApprovedAt      *time.Time `bun:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt      *time.Time `bun:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
	Version         int        `bun:"version,notnull" json:"version"`
}

// Duration is the inclusive day count between start and end.
func (l *LeaveRequest) Duration() int {
	days := math.Abs(l.EndDate.Sub(l.StartDate).Hours()) / 24
	return int(math.Ceil(days)) + 1
}

func (l *LeaveRequest) IsPending() bool {
	return l.Status == StatusPending
}

func (l LeaveRequest) MarshalJSON() ([]byte, error) {
	type alias LeaveRequest
	return json.Marshal(struct {
		alias
		Duration int `json:"duration"`
	}{
		alias:    alias(l),
		Duration: l.Duration(),
	})
}

// CreateInput is a student's leave application.
type CreateInput struct {
	LeaveType Type
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// CreateResult carries the created leave and any non-fatal warnings.
type CreateResult struct {
	Leave    *LeaveRequest `json:"leave"`
	Warnings []string      `json:"warnings,omitempty"`
}

// DecideInput is an approve/reject decision.
type DecideInput struct {
	Status  Status
	Comment string
}

// Filter narrows a leave listing. Zero fields do not filter.
type Filter struct {
	StudentID *uuid.UUID
	FacultyID *uuid.UUID
	Status    Status
	Limit     int
}

// StatusCounts holds leave totals per status.
type StatusCounts struct {
	Total    int `json:"totalLeaves"`
	Pending  int `json:"pendingLeaves"`
	Approved int `json:"approvedLeaves"`
	Rejected int `json:"rejectedLeaves"`
}

// DepartmentStats is StatusCounts grouped by the student's department.
type DepartmentStats struct {
	Department string `bun:"department" json:"department"`
	Total      int    `bun:"total" json:"totalLeaves"`
	Pending    int    `bun:"pending" json:"pendingLeaves"`
	Approved   int    `bun:"approved" json:"approvedLeaves"`
	Rejected   int    `bun:"rejected" json:"rejectedLeaves"`
}
