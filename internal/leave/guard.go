package leave

import (
	"leave-service/internal/auth"
	"leave-service/internal/user"
)

// Scope names a leave listing.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopePendingAssigned
	ScopeAssigned
	ScopeAll
)

// CanApply allows students only.
func CanApply(actor auth.Actor) error {
	switch actor.Role {
	case user.RoleStudent:
		return nil
	default:
		return ErrStudentsOnly
	}
}

// CanDecide allows the assigned faculty member or any admin.
func CanDecide(actor auth.Actor, l *LeaveRequest) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleFaculty:
		if l.FacultyID == actor.ID {
			return nil
		}
		return ErrNotAuthorized
	default:
		return ErrNotAuthorized
	}
}

// CanOverride allows admins only, regardless of assignment.
func CanOverride(actor auth.Actor) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	default:
		return ErrAdminOnly
	}
}

// CanView allows the leave's student, its assigned faculty member or any admin.
func CanView(actor auth.Actor, l *LeaveRequest) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleStudent:
		if l.StudentID == actor.ID {
			return nil
		}
		return ErrNotVisible
	case user.RoleFaculty:
		if l.FacultyID == actor.ID {
			return nil
		}
		return ErrNotVisible
	default:
		return ErrNotVisible
	}
}

// ScopeFilter authorizes a listing and returns the filter pinned to the actor.
func ScopeFilter(actor auth.Actor, scope Scope) (Filter, error) {
	id := actor.ID
	switch scope {
	case ScopeOwn:
		if actor.Role != user.RoleStudent {
			return Filter{}, ErrStudentsOnly
		}
		return Filter{StudentID: &id}, nil
	case ScopePendingAssigned:
		if actor.Role != user.RoleFaculty {
			return Filter{}, ErrFacultyOnly
		}
		return Filter{FacultyID: &id, Status: StatusPending}, nil
	case ScopeAssigned:
		if actor.Role != user.RoleFaculty {
			return Filter{}, ErrFacultyOnly
		}
		return Filter{FacultyID: &id}, nil
	case ScopeAll:
		if actor.Role != user.RoleAdmin {
			return Filter{}, ErrAdminOnly
		}
		return Filter{}, nil
	default:
		return Filter{}, ErrNotVisible
	}
}
