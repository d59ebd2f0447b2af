package leave

import (
	"strings"
	"time"

	"leave-service/internal/apperr"
	"leave-service/internal/auth"
)

func validateDecision(in DecideInput) (DecideInput, error) {
	in.Comment = strings.TrimSpace(in.Comment)

	verr := apperr.NewValidationError()
	if !in.Status.IsDecision() {
		verr.Add("status", "Status must be approved or rejected")
	}
	if len([]rune(in.Comment)) > MaxCommentLength {
		verr.Add("comment", "Comment must be at most 200 characters")
	}
	if verr.HasErrors() {
		return in, verr
	}
	return in, nil
}

// checkTransition enforces the terminal-state rule. Only the override path may
// re-decide a leave that has left pending.
func checkTransition(l *LeaveRequest, override bool) error {
	if l.IsPending() || override {
		return nil
	}
	return ErrAlreadyDecided
}

// applyDecision mutates l in place and returns the version it replaced.
func applyDecision(l *LeaveRequest, actor auth.Actor, in DecideInput, now time.Time) int {
	prev := l.Version

	decidedBy := actor.ID
	l.Status = in.Status
	l.DecidedBy = &decidedBy
	l.DecisionComment = in.Comment

	switch in.Status {
	case StatusApproved:
		l.ApprovedAt = &now
		l.RejectedAt = nil
	case StatusRejected:
		l.RejectedAt = &now
		l.ApprovedAt = nil
	}

	l.Version = prev + 1
	l.UpdatedAt = now
	return prev
}
