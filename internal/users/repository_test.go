package users

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	user, err := repo.Create(ctx, "Ada", "Ada@Example.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" || user.Email != "ada@example.com" || user.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %#v", user)
	}

	if _, err := repo.Create(ctx, "Ada again", "ada@example.com", "hash"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil || byID.Name != "Ada" {
		t.Fatalf("get by id: %v %#v", err, byID)
	}
	byEmail, err := repo.GetByEmail(ctx, " ADA@example.com")
	if err != nil || byEmail.ID != user.ID {
		t.Fatalf("get by email: %v %#v", err, byEmail)
	}

	ok, err := repo.Exists(ctx, user.ID)
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
	ok, _ = repo.Exists(ctx, "missing")
	if ok {
		t.Fatal("expected missing user to not exist")
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
