// Account and authentication HTTP handlers.
//
// This file exposes REST endpoints for operator accounts:
//   - POST /auth/register      (create account; open registration)
//   - POST /auth/login         (credentials -> bearer session token)
//   - GET  /account            (profile and list preferences)
//   - PUT  /account/email      (change login email)
//   - PUT  /account/password   (change password)
//   - POST /account/api-key    (issue a machine API key, replacing any prior)
//
// The issued API key value is returned exactly once, at creation. It is not
// retrievable afterwards; losing it means issuing a new one, which revokes
// the old.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plugtrack/go-plugtrack-backend/internal/http/middleware"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
)

// CredentialsRequest is the JSON payload for register and login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UpdateEmailRequest is the JSON payload for changing the login email.
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdatePasswordRequest is the JSON payload for changing the password.
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// IssueAPIKeyRequest is the JSON payload for issuing a machine API key.
type IssueAPIKeyRequest struct {
	// Name labels the key (e.g. the controller it is installed on).
	Name string `json:"name" binding:"max=64"`
}

// Register creates a new operator account. Emails are normalized to
// lowercase before storage.
func (h *Handlers) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid email and password (8-72 chars) required")
		return
	}

	u, err := h.acctSvc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			fail(c, http.StatusConflict, ErrCodeEmailTaken, "email is already registered")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": u.ID, "email": u.Email})
}

// Login verifies credentials and mints a bearer session token. Bad email and
// bad password are indistinguishable to the caller.
func (h *Handlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	u, err := h.acctSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	token, err := middleware.SignSession(h.sessionSecret, u.ID, u.Email, h.sessionTTL)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create session")
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Uint("user_id", u.ID).Msg("login")
	ok(c, http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": u.ID, "email": u.Email},
	})
}

// GetAccount returns the calling user's profile with list preferences.
func (h *Handlers) GetAccount(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	u, err := h.acctSvc.Get(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateEmail changes the calling user's login email.
func (h *Handlers) UpdateEmail(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	var req UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid email required")
		return
	}

	err := h.acctSvc.UpdateEmail(c.Request.Context(), uid, strings.TrimSpace(req.Email))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeEmailTaken, "email is already registered")
		return
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// UpdatePassword changes the calling user's password.
func (h *Handlers) UpdatePassword(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password required (8-72 chars)")
		return
	}

	if err := h.acctSvc.UpdatePassword(c.Request.Context(), uid, req.Password); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// IssueAPIKey mints a fresh machine API key for the calling user, revoking
// any key issued before. The plaintext key appears only in this response.
func (h *Handlers) IssueAPIKey(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	var req IssueAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name must be at most 64 chars")
		return
	}

	k, err := h.acctSvc.IssueAPIKey(c.Request.Context(), uid, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().Uint("user_id", uid).Uint("key_id", k.ID).Msg("api key issued")
	ok(c, http.StatusCreated, gin.H{"id": k.ID, "name": k.Name, "key": k.Key})
}
