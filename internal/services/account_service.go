// Package services – AccountService
//
// This file implements the AccountService: signup, credential checks, email
// and password changes, and API key issuance. Passwords are stored as bcrypt
// hashes. API keys follow a delete-then-create policy so each user holds at
// most one live key; the pair of operations runs in a transaction.
package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// AccountService implements the use-cases around user accounts and their
// machine API credentials.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Register creates a user with a hashed password and default settings.
// Returns ErrEmailTaken when the address is already registered.
func (s *AccountService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, string(hash))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair and returns the matching
// user. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the user with its settings. Returns ErrUserNotFound when
// missing.
func (s *AccountService) Get(ctx context.Context, userID uint) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateEmail changes the user's email. Returns ErrEmailTaken on collision.
func (s *AccountService) UpdateEmail(ctx context.Context, userID uint, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := repo.UpdateUserEmail(ctx, s.DB, userID, email); err != nil {
		if isDuplicate(err) {
			return ErrEmailTaken
		}
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UpdatePassword re-hashes and stores a new password for the user.
func (s *AccountService) UpdatePassword(ctx context.Context, userID uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.UpdateUserPassword(ctx, s.DB, userID, string(hash)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// IssueAPIKey revokes the user's existing key (if any) and mints a new one.
// Both steps run in one transaction so a failure never leaves the user
// keyless with the old key gone from the caller's hands.
func (s *AccountService) IssueAPIKey(ctx context.Context, userID uint, name string) (*domain.APIKey, error) {
	var key *domain.APIKey
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetUser(ctx, tx, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := repo.DeleteAPIKeysByUser(ctx, tx, userID); err != nil {
			return err
		}
		k, err := repo.CreateAPIKey(ctx, tx, userID, name)
		if err != nil {
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// ValidateAPIKey reports whether token belongs to an existing key row.
// Validity is existence-only: no expiry, no revocation list beyond deletion.
func (s *AccountService) ValidateAPIKey(ctx context.Context, token string) (bool, error) {
	_, err := repo.GetAPIKeyByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
