package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/civichub/internal/domain/user"
)

func TestUsersRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	u := user.New("Ada Lovelace", "ada", "ada@example.com", "hash", "")

	created, err := r.Create(ctx, u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.Role != user.RoleRegular {
		t.Fatalf("default role got %q", created.Role)
	}

	if _, err := r.Create(ctx, user.New("Other", "o", "ada@example.com", "hash", "")); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := r.GetByEmail(ctx, "ada@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail got %+v, %v", byEmail, err)
	}

	nick := "countess"
	email := "countess@example.com"
	updated, err := r.Update(ctx, u.ID, user.Patch{NickName: &nick, Email: &email})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.NickName != nick || updated.Email != email {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := r.GetByEmail(ctx, "ada@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("old email should no longer resolve, got %v", err)
	}

	if err := r.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if _, err := r.GetByID(ctx, u.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := r.Delete(ctx, u.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}
