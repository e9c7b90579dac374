package database

import (
	"context"
	"errors"
	"testing"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser_HashesPassword(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	user, err := service.CreateUser(ctx, store.CreateUserParams{
		Username: "admin1",
		Password: "s3cret-password",
		Name:     "Admin One",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if !user.Active {
		t.Error("Expected new user to be active")
	}

	stored, err := service.GetUserByUsername(ctx, "admin1")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if stored.PasswordHash == "s3cret-password" {
		t.Fatal("Password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-password")); err != nil {
		t.Errorf("Stored hash does not verify: %v", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	params := store.CreateUserParams{Username: "carlos", Name: "Carlos", Role: models.RoleCourier}
	if _, err := service.CreateUser(ctx, params); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := service.CreateUser(ctx, params); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("Expected ErrDuplicateUsername, got %v", err)
	}
}

func TestListUsers_FilterByRole(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	for _, u := range []store.CreateUserParams{
		{Username: "admin1", Name: "Admin", Role: models.RoleAdmin},
		{Username: "carlos", Name: "Carlos", Role: models.RoleCourier},
		{Username: "maria", Name: "Maria", Role: models.RoleCourier},
	} {
		if _, err := service.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	couriers, err := service.ListUsers(ctx, models.RoleCourier)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(couriers) != 2 {
		t.Errorf("Expected 2 couriers, got %d", len(couriers))
	}

	all, err := service.ListUsers(ctx, "")
	if err != nil {
		t.Fatalf("ListUsers all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 users, got %d", len(all))
	}
}

func TestSetUserActive(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	user, err := service.CreateUser(ctx, store.CreateUserParams{Username: "carlos", Name: "Carlos", Role: models.RoleCourier})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := service.SetUserActive(ctx, user.Id, false); err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}
	stored, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if stored.Active {
		t.Error("Expected user to be inactive")
	}

	if err := service.SetUserActive(ctx, "missing-id", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
