package leave_test

import (
	"testing"

	"leave-service/internal/apperr"
	"leave-service/internal/auth"
	"leave-service/internal/leave"
	"leave-service/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFilter(t *testing.T) {
	student := auth.Actor{ID: uuid.New(), Role: user.RoleStudent}
	faculty := auth.Actor{ID: uuid.New(), Role: user.RoleFaculty}
	admin := auth.Actor{ID: uuid.New(), Role: user.RoleAdmin}

	tests := []struct {
		name    string
		actor   auth.Actor
		scope   leave.Scope
		want    leave.Filter
		wantErr error
	}{
		{"StudentOwn", student, leave.ScopeOwn, leave.Filter{StudentID: &student.ID}, nil},
		{"FacultyOwn", faculty, leave.ScopeOwn, leave.Filter{}, leave.ErrStudentsOnly},
		{"FacultyPending", faculty, leave.ScopePendingAssigned, leave.Filter{FacultyID: &faculty.ID, Status: leave.StatusPending}, nil},
		{"AdminPending", admin, leave.ScopePendingAssigned, leave.Filter{}, leave.ErrFacultyOnly},
		{"FacultyAssigned", faculty, leave.ScopeAssigned, leave.Filter{FacultyID: &faculty.ID}, nil},
		{"StudentAssigned", student, leave.ScopeAssigned, leave.Filter{}, leave.ErrFacultyOnly},
		{"AdminAll", admin, leave.ScopeAll, leave.Filter{}, nil},
		{"StudentAll", student, leave.ScopeAll, leave.Filter{}, leave.ErrAdminOnly},
		{"UnknownRole", auth.Actor{ID: uuid.New(), Role: "janitor"}, leave.ScopeAll, leave.Filter{}, leave.ErrAdminOnly},
		{"UnknownScope", admin, leave.Scope(99), leave.Filter{}, leave.ErrNotVisible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := leave.ScopeFilter(tt.actor, tt.scope)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, apperr.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard(t *testing.T) {
	student := auth.Actor{ID: uuid.New(), Role: user.RoleStudent}
	assigned := auth.Actor{ID: uuid.New(), Role: user.RoleFaculty}
	other := auth.Actor{ID: uuid.New(), Role: user.RoleFaculty}
	admin := auth.Actor{ID: uuid.New(), Role: user.RoleAdmin}
	stranger := auth.Actor{ID: uuid.New(), Role: "guest"}

	l := &leave.LeaveRequest{ID: uuid.New(), StudentID: student.ID, FacultyID: assigned.ID, Status: leave.StatusPending}

	t.Run("CanApply", func(t *testing.T) {
		assert.NoError(t, leave.CanApply(student))
		for _, a := range []auth.Actor{assigned, admin, stranger} {
			assert.ErrorIs(t, leave.CanApply(a), leave.ErrStudentsOnly)
		}
	})

	t.Run("CanDecide", func(t *testing.T) {
		assert.NoError(t, leave.CanDecide(assigned, l))
		assert.NoError(t, leave.CanDecide(admin, l))
		for _, a := range []auth.Actor{other, student, stranger} {
			assert.ErrorIs(t, leave.CanDecide(a, l), leave.ErrNotAuthorized)
		}
	})

	t.Run("CanOverride", func(t *testing.T) {
		assert.NoError(t, leave.CanOverride(admin))
		for _, a := range []auth.Actor{assigned, student, stranger} {
			assert.ErrorIs(t, leave.CanOverride(a), leave.ErrAdminOnly)
		}
	})

	t.Run("CanView", func(t *testing.T) {
		for _, a := range []auth.Actor{student, assigned, admin} {
			assert.NoError(t, leave.CanView(a, l))
		}
		intruder := auth.Actor{ID: uuid.New(), Role: user.RoleStudent}
		for _, a := range []auth.Actor{intruder, other, stranger} {
			assert.ErrorIs(t, leave.CanView(a, l), leave.ErrNotVisible)
		}
	})
}
