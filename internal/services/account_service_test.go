package services

import (
	"context"
	"errors"
	"testing"

	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

func TestAccount_Register_NormalizesEmail(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}

	u, err := svc.Register(context.Background(), "  Op@Email.COM ", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "op@email.com" {
		t.Fatalf("email = %q; want normalized lowercase", u.Email)
	}
	if u.Password == "password1" {
		t.Fatalf("plaintext password stored")
	}
	if u.Settings.UserID != u.ID {
		t.Fatalf("settings row not created with user")
	}
}

func TestAccount_Register_EmailTaken(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}

	if _, err := svc.Register(context.Background(), "op@email.com", "password1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "OP@EMAIL.COM", "password2")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAccount_Authenticate(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}
	seedUser(t, svc, "op@email.com")

	if _, err := svc.Authenticate(context.Background(), "op@email.com", "password1"); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}
	// Wrong password and unknown email are indistinguishable.
	if _, err := svc.Authenticate(context.Background(), "op@email.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost@email.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccount_UpdateEmailAndPassword(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}
	u := seedUser(t, svc, "op@email.com")
	other := seedUser(t, svc, "other@email.com")
	_ = other

	if err := svc.UpdateEmail(context.Background(), u.ID, "new@email.com"); err != nil {
		t.Fatalf("UpdateEmail: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "new@email.com", "password1"); err != nil {
		t.Fatalf("auth after email change: %v", err)
	}
	if err := svc.UpdateEmail(context.Background(), u.ID, "other@email.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := svc.UpdateEmail(context.Background(), 999, "x@email.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := svc.UpdatePassword(context.Background(), u.ID, "password2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "new@email.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted")
	}
	if _, err := svc.Authenticate(context.Background(), "new@email.com", "password2"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

// Issuing a key replaces any previous one; only the newest validates.
func TestAccount_IssueAPIKey_ReplacesPrior(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}
	u := seedUser(t, svc, "op@email.com")

	k1, err := svc.IssueAPIKey(context.Background(), u.ID, "line-1 controller")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	k2, err := svc.IssueAPIKey(context.Background(), u.ID, "line-1 controller")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if k1.Key == k2.Key {
		t.Fatalf("keys must be unique per issue")
	}

	if valid, _ := svc.ValidateAPIKey(context.Background(), k1.Key); valid {
		t.Fatalf("revoked key still validates")
	}
	if valid, err := svc.ValidateAPIKey(context.Background(), k2.Key); err != nil || !valid {
		t.Fatalf("current key rejected: valid=%v err=%v", valid, err)
	}

	keys, err := repo.ListAPIKeysByUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("key count = %d; want 1 (delete-then-create)", len(keys))
	}

	if _, err := svc.IssueAPIKey(context.Background(), 999, "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccount_ValidateAPIKey_Unknown(t *testing.T) {
	db := newTestDB(t)
	svc := &AccountService{DB: db}

	valid, err := svc.ValidateAPIKey(context.Background(), "not-a-key")
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if valid {
		t.Fatalf("unknown key validated")
	}
}
