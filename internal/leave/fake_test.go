package leave_test

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"leave-service/internal/auth"
	"leave-service/internal/leave"
	"leave-service/internal/notify"
	"leave-service/internal/user"

	"github.com/google/uuid"
)

type fakeRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*user.User
	leaves map[uuid.UUID]leave.LeaveRequest

	// beforeUpdate runs inside UpdateDecision before the version check.
	beforeUpdate func(stored *leave.LeaveRequest)
	getErr       error
}

func newFakeRepository(users ...*user.User) *fakeRepository {
	r := &fakeRepository{
		users:  map[uuid.UUID]*user.User{},
		leaves: map[uuid.UUID]leave.LeaveRequest{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepository) Create(_ context.Context, l *leave.LeaveRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *l
	stored.Student, stored.Faculty = nil, nil
	r.leaves[l.ID] = stored
	return nil
}

func (r *fakeRepository) GetByID(_ context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	stored, ok := r.leaves[id]
	if !ok {
		return nil, leave.ErrLeaveNotFound
	}
	return r.hydrate(stored), nil
}

func (r *fakeRepository) UpdateDecision(_ context.Context, l *leave.LeaveRequest, prevVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leaves[l.ID]
	if !ok {
		return leave.ErrLeaveNotFound
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(&stored)
		r.leaves[l.ID] = stored
	}
	if stored.Version != prevVersion {
		return leave.ErrConcurrentUpdate
	}
	next := *l
	next.Student, next.Faculty = nil, nil
	r.leaves[l.ID] = next
	return nil
}

func (r *fakeRepository) List(_ context.Context, f leave.Filter) ([]leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []leave.LeaveRequest{}
	for _, l := range r.leaves {
		if f.StudentID != nil && l.StudentID != *f.StudentID {
			continue
		}
		if f.FacultyID != nil && l.FacultyID != *f.FacultyID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, *r.hydrate(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeRepository) CountByStatus(context.Context) (leave.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c leave.StatusCounts
	for _, l := range r.leaves {
		c.Total++
		switch l.Status {
		case leave.StatusPending:
			c.Pending++
		case leave.StatusApproved:
			c.Approved++
		case leave.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (r *fakeRepository) CountByDepartment(context.Context) ([]leave.DepartmentStats, error) {
	return []leave.DepartmentStats{}, nil
}

func (r *fakeRepository) stored(id uuid.UUID) leave.LeaveRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaves[id]
}

func (r *fakeRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leaves)
}

func (r *fakeRepository) hydrate(stored leave.LeaveRequest) *leave.LeaveRequest {
	l := stored
	l.Student = r.users[l.StudentID]
	l.Faculty = r.users[l.FacultyID]
	return &l
}

// fakeDirectory lists faculty in creation order.
type fakeDirectory struct {
	faculty []*user.User
	pending map[uuid.UUID]int
}

func (d *fakeDirectory) FirstFaculty(_ context.Context, department string) (*user.User, error) {
	for _, u := range d.faculty {
		if u.Department == department {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (d *fakeDirectory) LeastLoadedFaculty(_ context.Context, department string) (*user.User, error) {
	var best *user.User
	for _, u := range d.faculty {
		if u.Department != department {
			continue
		}
		if best == nil || d.pending[u.ID] < d.pending[best.ID] {
			best = u
		}
	}
	if best == nil {
		return nil, user.ErrUserNotFound
	}
	return best, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
	// onNotify observes the world at enqueue time.
	onNotify func(e notify.Event)
}

func (n *fakeNotifier) Notify(_ context.Context, e notify.Event) error {
	if n.onNotify != nil {
		n.onNotify(e)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, e)
	return nil
}

func (n *fakeNotifier) sent() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newUser(name string, role user.Role, department string, createdAt time.Time) *user.User {
	return &user.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      name + "@uni.edu",
		Role:       role,
		Department: department,
		CreatedAt:  createdAt,
	}
}

func actorOf(u *user.User) auth.Actor {
	return auth.ActorFromUser(u)
}
