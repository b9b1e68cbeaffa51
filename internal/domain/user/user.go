package user

import (
	"errors"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleRegular = "regular"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	NickName     string    `json:"nickName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the redacted view handed to callers.
type Public struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	NickName  string    `json:"nickName"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		FullName:  u.FullName,
		NickName:  u.NickName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Summary is the minimal identity returned alongside a session token.
type Summary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	NickName string `json:"nickName"`
	Role     string `json:"role"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		FullName: u.FullName,
		NickName: u.NickName,
		Role:     u.Role,
	}
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	FullName     *string
	NickName     *string
	Email        *string
	Role         *string
	PasswordHash *string
}

func (p Patch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.NickName != nil {
		u.NickName = *p.NickName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
}
