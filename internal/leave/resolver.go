package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leave-service/internal/user"
)

const (
	StrategyFirst       = "first"
	StrategyLeastLoaded = "least_loaded"
)

// FacultyDirectory finds approvers. Both lookups return user.ErrUserNotFound
// when the department has no faculty.
type FacultyDirectory interface {
	FirstFaculty(ctx context.Context, department string) (*user.User, error)
	LeastLoadedFaculty(ctx context.Context, department string) (*user.User, error)
}

// Resolver binds a student's department to exactly one faculty approver.
type Resolver interface {
	Resolve(ctx context.Context, department string) (*user.User, error)
}

type resolver struct {
	directory FacultyDirectory
	strategy  string
}

// NewResolver returns a resolver using strategy, which is "first" (earliest
// created faculty member) or "least_loaded" (fewest pending requests).
func NewResolver(directory FacultyDirectory, strategy string) (Resolver, error) {
	switch strategy {
	case "":
		strategy = StrategyFirst
	case StrategyFirst, StrategyLeastLoaded:
	default:
		return nil, fmt.Errorf("unknown assignment strategy %q", strategy)
	}
	return &resolver{directory: directory, strategy: strategy}, nil
}

func (r *resolver) Resolve(ctx context.Context, department string) (*user.User, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, ErrBlankDepartment
	}

	var (
		faculty *user.User
		err     error
	)
	switch r.strategy {
	case StrategyLeastLoaded:
		faculty, err = r.directory.LeastLoadedFaculty(ctx, department)
	default:
		faculty, err = r.directory.FirstFaculty(ctx, department)
	}

	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrNoFacultyAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("resolve faculty: %w", err)
	}
	return faculty, nil
}
