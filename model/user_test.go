package model_test

import (
	"errors"
	"testing"

	"github.com/fatoura-app/fatoura/fixtures"
	"github.com/fatoura-app/fatoura/model"
)

func TestHasCapability(t *testing.T) {
	tests := []struct {
		role    string
		allowed []string
		want    bool
	}{
		{model.RoleAdmin, []string{model.RoleAdmin, model.RoleManager}, true},
		{model.RoleManager, []string{model.RoleAdmin, model.RoleManager}, true},
		{model.RoleClerk, []string{model.RoleAdmin, model.RoleManager}, false},
		{model.RoleClerk, []string{model.RoleClerk}, true},
		{"", []string{model.RoleAdmin}, false},
		{model.RoleAdmin, nil, false},
	}
	for _, tt := range tests {
		if got := model.HasCapability(tt.role, tt.allowed...); got != tt.want {
			t.Errorf("HasCapability(%q, %v) = %v, want %v", tt.role, tt.allowed, got, tt.want)
		}
	}
}

func TestUser_CreateAndAuthenticate(t *testing.T) {
	store := fixtures.NewTestStore(t)

	u := &model.User{Email: " Admin@Fatoura.APP ", FullName: "Admin", Role: model.RoleAdmin}
	if err := store.CreateUser(u, "secret123"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Email != "admin@fatoura.app" {
		t.Errorf("Email = %q, want normalized lowercase", u.Email)
	}
	if u.OwnerID != u.ID {
		t.Errorf("OwnerID = %d, want self-owned %d", u.OwnerID, u.ID)
	}

	got, err := store.AuthenticateUser("ADMIN@fatoura.app", "secret123")
	if err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated user ID = %d, want %d", got.ID, u.ID)
	}

	if _, err := store.AuthenticateUser("admin@fatoura.app", "wrong"); !errors.Is(err, model.ErrInvalidPassword) {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}
}

func TestUser_DefaultRoleIsClerk(t *testing.T) {
	store := fixtures.NewTestStore(t)
	u := &model.User{Email: "clerk@fatoura.app"}
	if err := store.CreateUser(u, "secret123"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Role != model.RoleClerk {
		t.Errorf("Role = %q, want clerk", u.Role)
	}
}
