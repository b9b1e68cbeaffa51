package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(fullName, nickName, email, passwordHash, role string) User {
	now := time.Now().UTC()

	if role == "" {
		role = RoleRegular
	}

	return User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		NickName:     nickName,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
