package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Email        string    `bun:"email,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         Role      `bun:"role,notnull" json:"role"`
	Department   string    `bun:"department,notnull" json:"department"`
	StudentID    string    `bun:"student_id,nullzero" json:"studentId,omitempty"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// CreateInput is the admin-supplied payload for a new account.
type CreateInput struct {
	Name       string `json:"name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       Role   `json:"role" validate:"required,oneof=student faculty admin"`
	Department string `json:"department" validate:"required,min=2"`
	StudentID  string `json:"studentId,omitempty"`
}

// Normalize trims the free-text fields and lowercases the email so that
// validation sees the values that will be stored.
func (in *CreateInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.TrimSpace(in.Department)
	in.StudentID = strings.TrimSpace(in.StudentID)
}

// RoleCounts holds the number of accounts per role.
type RoleCounts struct {
	Total    int
	Students int
	Faculty  int
	Admins   int
}
