package leave_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leave-service/internal/apperr"
	"leave-service/internal/leave"
	"leave-service/internal/logger"
	"leave-service/internal/metrics"
	"leave-service/internal/notify"
	"leave-service/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx      context.Context
	repo     *fakeRepository
	notifier *fakeNotifier
	clock    *stubClock
	service  leave.Service

	student  *user.User
	faculty  *user.User
	faculty2 *user.User
	outsider *user.User
	admin    *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		notifier: &fakeNotifier{},
		clock:    &stubClock{now: epoch},
		student:  newUser("asha", user.RoleStudent, "CSE", epoch.Add(-time.Hour)),
		faculty:  newUser("rao", user.RoleFaculty, "CSE", epoch.Add(-72*time.Hour)),
		faculty2: newUser("iyer", user.RoleFaculty, "CSE", epoch.Add(-48*time.Hour)),
		outsider: newUser("mehta", user.RoleFaculty, "ECE", epoch.Add(-96*time.Hour)),
		admin:    newUser("root", user.RoleAdmin, "Administration", epoch.Add(-100*time.Hour)),
	}
	f.repo = newFakeRepository(f.student, f.faculty, f.faculty2, f.outsider, f.admin)

	resolver, err := leave.NewResolver(&fakeDirectory{
		faculty: []*user.User{f.outsider, f.faculty, f.faculty2},
	}, leave.StrategyFirst)
	require.NoError(t, err)

	f.service = leave.NewService(f.repo, resolver, f.notifier, logger.Discard(), metrics.NewMock(), leave.WithClock(f.clock))
	return f
}

func (f *fixture) validInput() leave.CreateInput {
	return leave.CreateInput{
		LeaveType: leave.TypeSick,
		StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
		Reason:    "  Fever and doctor's advice to rest  ",
	}
}

func (f *fixture) apply(t *testing.T) *leave.LeaveRequest {
	t.Helper()
	result, err := f.service.Create(f.ctx, actorOf(f.student), f.validInput())
	require.NoError(t, err)
	return result.Leave
}

func TestService_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.service.Create(f.ctx, actorOf(f.student), f.validInput())
		require.NoError(t, err)
		assert.Empty(t, result.Warnings)

		l := result.Leave
		assert.Equal(t, leave.StatusPending, l.Status)
		assert.Equal(t, 3, l.Duration())
		assert.Equal(t, 1, l.Version)
		assert.Equal(t, epoch, l.CreatedAt)
		assert.Equal(t, "Fever and doctor's advice to rest", l.Reason)
		assert.Nil(t, l.DecidedBy)
		assert.Nil(t, l.ApprovedAt)
		assert.Nil(t, l.RejectedAt)

		assert.Equal(t, f.faculty.ID, l.FacultyID)
		require.NotNil(t, l.Student)
		require.NotNil(t, l.Faculty)
		assert.Equal(t, f.student.Email, l.Student.Email)
		assert.Equal(t, f.faculty.Name, l.Faculty.Name)

		events := f.notifier.sent()
		require.Len(t, events, 1)
		assert.Equal(t, notify.KindApplicationSubmitted, events[0].Kind)
		assert.Equal(t, f.faculty.Email, events[0].To)
		assert.Equal(t, l.ID.String(), events[0].Payload.LeaveID)
		assert.Equal(t, 3, events[0].Payload.Duration)
	})

	t.Run("DurationMatchesInclusiveDayCount", func(t *testing.T) {
		f := newFixture(t)
		cases := []struct {
			start, end time.Time
			want       int
		}{
			{time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), 2},
			{time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC), 2},
			{time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC), 8},
		}
		for _, tc := range cases {
			in := f.validInput()
			in.StartDate, in.EndDate = tc.start, tc.end

			result, err := f.service.Create(f.ctx, actorOf(f.student), in)
			require.NoError(t, err)
			assert.Equal(t, leave.StatusPending, result.Leave.Status)
			assert.Equal(t, tc.want, result.Leave.Duration())
		}
	})

	t.Run("OnlyStudents", func(t *testing.T) {
		f := newFixture(t)

		for _, u := range []*user.User{f.faculty, f.admin} {
			_, err := f.service.Create(f.ctx, actorOf(u), f.validInput())
			assert.ErrorIs(t, err, leave.ErrStudentsOnly)
			assert.ErrorIs(t, err, apperr.ErrForbidden)
		}
		assert.Zero(t, f.repo.count())
	})

	t.Run("ReportsAllInvalidFields", func(t *testing.T) {
		f := newFixture(t)
		in := f.validInput()
		in.LeaveType = "vacation"
		in.Reason = "   short    "

		_, err := f.service.Create(f.ctx, actorOf(f.student), in)
		require.ErrorIs(t, err, apperr.ErrInvalidInput)

		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Fields, 2)
		assert.Equal(t, "leaveType", verr.Fields[0].Field)
		assert.Equal(t, "reason", verr.Fields[1].Field)
	})

	t.Run("ReasonTooLong", func(t *testing.T) {
		f := newFixture(t)
		in := f.validInput()
		in.Reason = strings.Repeat("a", leave.MaxReasonLength+1)

		_, err := f.service.Create(f.ctx, actorOf(f.student), in)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("StartEqualsEnd", func(t *testing.T) {
		f := newFixture(t)
		in := f.validInput()
		in.EndDate = in.StartDate

		_, err := f.service.Create(f.ctx, actorOf(f.student), in)
		assert.ErrorIs(t, err, apperr.ErrInvalidDateRange)
		assert.Equal(t, "End date must be after start date", apperr.Message(err))
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		f := newFixture(t)
		in := f.validInput()
		in.StartDate, in.EndDate = in.EndDate, in.StartDate

		_, err := f.service.Create(f.ctx, actorOf(f.student), in)
		assert.ErrorIs(t, err, apperr.ErrInvalidDateRange)
	})

	t.Run("PastDate", func(t *testing.T) {
		f := newFixture(t)
		in := f.validInput()
		in.StartDate = epoch.Add(-time.Minute)

		_, err := f.service.Create(f.ctx, actorOf(f.student), in)
		assert.ErrorIs(t, err, apperr.ErrPastDateRejected)
		assert.Zero(t, f.repo.count())
	})

	t.Run("NoFacultyInDepartment", func(t *testing.T) {
		f := newFixture(t)
		loner := newUser("lee", user.RoleStudent, "MATH", epoch)

		_, err := f.service.Create(f.ctx, actorOf(loner), f.validInput())
		assert.ErrorIs(t, err, apperr.ErrNoFacultyAvailable)
		assert.Zero(t, f.repo.count())
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("EnqueueFailureIsWarning", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = notify.ErrQueueFull

		result, err := f.service.Create(f.ctx, actorOf(f.student), f.validInput())
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, 1, f.repo.count())
	})

	t.Run("ReloadFailureStillReturnsLeave", func(t *testing.T) {
		f := newFixture(t)
		f.repo.getErr = errors.New("connection reset")

		result, err := f.service.Create(f.ctx, actorOf(f.student), f.validInput())
		require.NoError(t, err)

		l := result.Leave
		assert.Equal(t, leave.StatusPending, l.Status)
		require.NotNil(t, l.Student)
		require.NotNil(t, l.Faculty)
		assert.Equal(t, f.student.Email, l.Student.Email)
		assert.Equal(t, f.faculty.ID, l.Faculty.ID)
		assert.Equal(t, 1, f.repo.count())

		events := f.notifier.sent()
		require.Len(t, events, 1)
		assert.Equal(t, f.faculty.Email, events[0].To)
		assert.Equal(t, l.ID.String(), events[0].Payload.LeaveID)
	})
}

func TestService_Decide(t *testing.T) {
	t.Run("AssignedFacultyApproves", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		f.clock.Advance(time.Hour)

		decided, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{
			Status:  leave.StatusApproved,
			Comment: " Get well soon ",
		})
		require.NoError(t, err)

		assert.Equal(t, leave.StatusApproved, decided.Status)
		require.NotNil(t, decided.ApprovedAt)
		assert.Equal(t, epoch.Add(time.Hour), *decided.ApprovedAt)
		assert.Nil(t, decided.RejectedAt)
		require.NotNil(t, decided.DecidedBy)
		assert.Equal(t, f.faculty.ID, *decided.DecidedBy)
		assert.Equal(t, "Get well soon", decided.DecisionComment)
		assert.Equal(t, 2, decided.Version)
		assert.Equal(t, epoch, decided.CreatedAt)

		stored := f.repo.stored(l.ID)
		assert.Equal(t, leave.StatusApproved, stored.Status)
		assert.Equal(t, 2, stored.Version)

		events := f.notifier.sent()
		require.Len(t, events, 2)
		assert.Equal(t, notify.KindDecisionMade, events[1].Kind)
		assert.Equal(t, f.student.Email, events[1].To)
		assert.Equal(t, "approved", events[1].Payload.Status)
		assert.Equal(t, "Get well soon", events[1].Payload.Comment)
		assert.Equal(t, f.faculty.Name, events[1].Payload.DecidedBy)
	})

	t.Run("RejectSetsRejectedAt", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		decided, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusRejected})
		require.NoError(t, err)
		assert.NotNil(t, decided.RejectedAt)
		assert.Nil(t, decided.ApprovedAt)
	})

	t.Run("SecondDecisionIsInvalidTransition", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)

		_, err = f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusRejected})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		assert.Equal(t, leave.StatusApproved, f.repo.stored(l.ID).Status)
	})

	t.Run("NonAssignedFacultyForbidden", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		for _, u := range []*user.User{f.faculty2, f.outsider, f.student} {
			_, err := f.service.Decide(f.ctx, actorOf(u), l.ID, leave.DecideInput{Status: leave.StatusApproved})
			assert.ErrorIs(t, err, apperr.ErrForbidden)
			assert.Equal(t, "Not authorized to update this leave", apperr.Message(err))
		}
		assert.Equal(t, leave.StatusPending, f.repo.stored(l.ID).Status)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		for _, s := range []leave.Status{leave.StatusPending, "maybe", ""} {
			_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: s})
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		}
	})

	t.Run("CommentTooLong", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{
			Status:  leave.StatusApproved,
			Comment: strings.Repeat("x", leave.MaxCommentLength+1),
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, err = f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{
			Status:  leave.StatusApproved,
			Comment: strings.Repeat("x", leave.MaxCommentLength),
		})
		assert.NoError(t, err)
	})

	t.Run("UnknownLeave", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), uuid.New(), leave.DecideInput{Status: leave.StatusApproved})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("AdminRedecidesApprovedLeave", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		decided, err := f.service.Decide(f.ctx, actorOf(f.admin), l.ID, leave.DecideInput{Status: leave.StatusRejected, Comment: "Policy"})
		require.NoError(t, err)

		assert.Equal(t, leave.StatusRejected, decided.Status)
		require.NotNil(t, decided.RejectedAt)
		assert.Equal(t, epoch.Add(2*time.Hour), *decided.RejectedAt)
		assert.Nil(t, decided.ApprovedAt)
		assert.Equal(t, f.admin.ID, *decided.DecidedBy)
		assert.Equal(t, f.faculty.ID, decided.FacultyID)
		assert.Equal(t, 3, decided.Version)
	})

	t.Run("LostRaceIsConflict", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		f.repo.beforeUpdate = func(stored *leave.LeaveRequest) {
			stored.Status = leave.StatusRejected
			stored.Version++
		}

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, leave.StatusRejected, f.repo.stored(l.ID).Status)
		assert.Len(t, f.notifier.sent(), 1, "no decision notification after a lost race")
	})

	t.Run("NotifiesAfterCommit", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		var statusAtNotify leave.Status
		f.notifier.onNotify = func(e notify.Event) {
			if e.Kind == notify.KindDecisionMade {
				statusAtNotify = f.repo.stored(l.ID).Status
			}
		}

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, statusAtNotify)
	})

	t.Run("EnqueueFailureDoesNotFail", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		f.notifier.err = notify.ErrDispatcherClosed

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, f.repo.stored(l.ID).Status)
	})
}

func TestService_Override(t *testing.T) {
	t.Run("AdminOnly", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		for _, u := range []*user.User{f.faculty, f.student} {
			_, err := f.service.Override(f.ctx, actorOf(u), l.ID, leave.DecideInput{Status: leave.StatusApproved})
			assert.ErrorIs(t, err, leave.ErrAdminOnly)
		}
	})

	t.Run("OverwritesDecision", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), l.ID, leave.DecideInput{Status: leave.StatusRejected, Comment: "No"})
		require.NoError(t, err)

		overridden, err := f.service.Override(f.ctx, actorOf(f.admin), l.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, overridden.Status)
		assert.NotNil(t, overridden.ApprovedAt)
		assert.Nil(t, overridden.RejectedAt)
		assert.Empty(t, overridden.DecisionComment)
		assert.Equal(t, f.faculty.ID, overridden.FacultyID)

		events := f.notifier.sent()
		require.Len(t, events, 3)
		assert.Equal(t, notify.KindDecisionMade, events[2].Kind)
		assert.Equal(t, f.student.Email, events[2].To)
	})

	t.Run("RepeatedOverrideConverges", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)
		in := leave.DecideInput{Status: leave.StatusApproved, Comment: "Documented"}

		f.clock.Advance(time.Hour)
		first, err := f.service.Override(f.ctx, actorOf(f.admin), l.ID, in)
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		second, err := f.service.Override(f.ctx, actorOf(f.admin), l.ID, in)
		require.NoError(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, *first.DecidedBy, *second.DecidedBy)
		assert.Equal(t, first.DecisionComment, second.DecisionComment)
		require.NotNil(t, second.ApprovedAt)
		assert.Equal(t, epoch.Add(2*time.Hour), *second.ApprovedAt)
		assert.Nil(t, second.RejectedAt)
		assert.Equal(t, 2, first.Version)
		assert.Equal(t, 3, second.Version)
	})

	t.Run("UnknownLeave", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Override(f.ctx, actorOf(f.admin), uuid.New(), leave.DecideInput{Status: leave.StatusApproved})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestService_Queries(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		mine, err := f.service.MyLeaves(f.ctx, actorOf(f.student))
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, l.ID, mine[0].ID)
		assert.Equal(t, l.Duration(), mine[0].Duration())

		pending, err := f.service.PendingForApprover(f.ctx, actorOf(f.faculty))
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, l.ID, pending[0].ID)
		assert.Equal(t, l.Duration(), pending[0].Duration())

		other, err := f.service.PendingForApprover(f.ctx, actorOf(f.faculty2))
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("PendingExcludesDecided", func(t *testing.T) {
		f := newFixture(t)
		first := f.apply(t)
		f.clock.Advance(time.Minute)
		second := f.apply(t)

		_, err := f.service.Decide(f.ctx, actorOf(f.faculty), first.ID, leave.DecideInput{Status: leave.StatusApproved})
		require.NoError(t, err)

		pending, err := f.service.PendingForApprover(f.ctx, actorOf(f.faculty))
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)

		assigned, err := f.service.ApproverLeaves(f.ctx, actorOf(f.faculty))
		require.NoError(t, err)
		require.Len(t, assigned, 2)
		assert.Equal(t, second.ID, assigned[0].ID, "newest first")
	})

	t.Run("RoleScopes", func(t *testing.T) {
		f := newFixture(t)
		f.apply(t)

		_, err := f.service.MyLeaves(f.ctx, actorOf(f.faculty))
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = f.service.PendingForApprover(f.ctx, actorOf(f.student))
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = f.service.AllLeaves(f.ctx, actorOf(f.faculty))
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		all, err := f.service.AllLeaves(f.ctx, actorOf(f.admin))
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Recent", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < leave.RecentLimit+2; i++ {
			f.apply(t)
			f.clock.Advance(time.Minute)
		}

		recent, err := f.service.Recent(f.ctx, actorOf(f.admin), 0)
		require.NoError(t, err)
		assert.Len(t, recent, leave.RecentLimit)
	})

	t.Run("Get", func(t *testing.T) {
		f := newFixture(t)
		l := f.apply(t)

		for _, u := range []*user.User{f.student, f.faculty, f.admin} {
			got, err := f.service.Get(f.ctx, actorOf(u), l.ID)
			require.NoError(t, err)
			assert.Equal(t, l.ID, got.ID)
		}

		intruder := newUser("kim", user.RoleStudent, "CSE", epoch)
		for _, u := range []*user.User{intruder, f.faculty2} {
			_, err := f.service.Get(f.ctx, actorOf(u), l.ID)
			assert.ErrorIs(t, err, apperr.ErrForbidden)
		}

		_, err := f.service.Get(f.ctx, actorOf(f.admin), uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
