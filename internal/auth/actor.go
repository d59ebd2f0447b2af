package auth

import (
	"context"

	"leave-service/internal/user"

	"github.com/google/uuid"
)

// Actor is the verified caller of a request.
type Actor struct {
	ID         uuid.UUID `json:"id"`
	Role       user.Role `json:"role"`
	Department string    `json:"department"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
}

func ActorFromUser(u *user.User) Actor {
	return Actor{
		ID:         u.ID,
		Role:       u.Role,
		Department: u.Department,
		Email:      u.Email,
		Name:       u.Name,
	}
}

func (a Actor) IsAdmin() bool   { return a.Role == user.RoleAdmin }
func (a Actor) IsStudent() bool { return a.Role == user.RoleStudent }
func (a Actor) IsFaculty() bool { return a.Role == user.RoleFaculty }

type contextKey struct{}

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// ActorFrom extracts the actor placed on the context by Middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
