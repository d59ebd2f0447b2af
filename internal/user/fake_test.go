package user_test

import (
	"context"
	"strings"
	"sync"

	"leave-service/internal/user"

	"github.com/google/uuid"
)

type fakeRepository struct {
	mu    sync.Mutex
	users []*user.User
}

func (f *fakeRepository) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrUserExists
		}
	}
	f.users = append(f.users, u)
	return nil
}

func (f *fakeRepository) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeRepository) FirstFaculty(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeRepository) LeastLoadedFaculty(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeRepository) CountByRole(context.Context) (user.RoleCounts, error) {
	return user.RoleCounts{Total: len(f.users)}, nil
}
