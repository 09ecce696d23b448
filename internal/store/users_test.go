package store

import (
	"context"
	"testing"

	"github.com/medrep/promostock/internal/db"
	"github.com/medrep/promostock/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "marta", "Marta Novak", "hash123", model.RoleMedicalRep)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "marta" {
		t.Errorf("expected username 'marta', got %q", user.Username)
	}
	if user.FullName != "Marta Novak" {
		t.Errorf("expected full name, got %q", user.FullName)
	}
	if user.Role != model.RoleMedicalRep {
		t.Errorf("expected role 'medical_rep', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "marta" {
		t.Errorf("expected username 'marta', got %q", got.Username)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := CreateUser(context.Background(), database, "x", "", "hash", model.Role("janitor"))
	if err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedUser(t, database, "alice", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "promote", model.RoleMedicalRep)
	if err := UpdateUser(ctx, database, user.ID, "Promoted Person", model.RoleSalesManager); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.Role != model.RoleSalesManager {
		t.Errorf("expected role 'sales_manager', got %q", got.Role)
	}
	if got.FullName != "Promoted Person" {
		t.Errorf("expected updated full name, got %q", got.FullName)
	}
}

func TestDeleteUserIsSoft(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "deleteme", model.RoleMarketer)
	DeleteUser(ctx, database, user.ID)

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}

	// The row survives for history joins.
	got, _ := GetUser(ctx, database, user.ID)
	if got == nil {
		t.Fatal("expected soft-deleted user to still resolve by id")
	}
	if got.DeletedAt == nil {
		t.Error("expected deleted_at to be set")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "pwuser", model.RoleMedicalRep)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}
