package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"leave-service/internal/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = fmt.Errorf("User not found: %w", apperr.ErrNotFound)
	ErrUserExists         = fmt.Errorf("User already exists: %w", apperr.ErrInvalidInput)
	ErrInvalidRole        = fmt.Errorf("Invalid role: %w", apperr.ErrInvalidInput)
	ErrInvalidCredentials = fmt.Errorf("Invalid credentials: %w", apperr.ErrUnauthenticated)
)

type Service interface {
	CreateUser(ctx context.Context, in CreateInput) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	EnsureAdmin(ctx context.Context, name, email, password, department string) error
	Counts(ctx context.Context) (RoleCounts, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger,
	}
}

func (s *service) CreateUser(ctx context.Context, in CreateInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	in.Normalize()
	if err := checkNames(in); err != nil {
		return nil, err
	}

	email := in.Email
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserExists
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Department:   in.Department,
	}
	if in.Role == RoleStudent {
		u.StudentID = in.StudentID
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role, "department", u.Department)
	return u, nil
}

func checkNames(in CreateInput) error {
	verr := apperr.NewValidationError()
	if utf8.RuneCountInString(in.Name) < 2 {
		verr.Add("name", "must be at least 2 characters")
	}
	if utf8.RuneCountInString(in.Department) < 2 {
		verr.Add("department", "must be at least 2 characters")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// EnsureAdmin creates the bootstrap admin unless an account with that email exists.
// A blank email or password disables bootstrapping.
func (s *service) EnsureAdmin(ctx context.Context, name, email, password, department string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.CreateUser(ctx, CreateInput{
		Name:       name,
		Email:      email,
		Password:   password,
		Role:       RoleAdmin,
		Department: department,
	})
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "email", email)
	return nil
}

func (s *service) Counts(ctx context.Context) (RoleCounts, error) {
	return s.repo.CountByRole(ctx)
}
