// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the two credential gates of the application:
//
//   - SessionAuth guards the browser-facing JSON routes with an HS256 JWT
//     issued at login. The validated user id is stored in the Gin context
//     ("userID") and passed downward explicitly; handlers never consult any
//     ambient/global current-user state.
//   - APIKeyAuth guards the machine-facing /api routes. Following the
//     controller protocol, the bearer key arrives as an "api_key" field in
//     the JSON request body (not a header). The body is re-buffered so the
//     handler can bind the remaining fields afterwards.
//
// The /api gate keeps the legacy numeric envelope: {"response": 400} when no
// key was provided, {"response": 403, "message": ...} when the key is
// unknown.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// maxAPIBodyBytes bounds how much of an /api request body the gate will
// buffer while extracting the api_key field.
const maxAPIBodyBytes = 1 << 20

// SignSession mints an HS256 session token for the given user, valid for
// ttl.
func SignSession(secret []byte, userID uint, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(userID),
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseSession validates tokenString and returns the embedded user id.
func parseSession(secret []byte, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token")
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub < 1 {
		return 0, errors.New("invalid token claims")
	}
	return uint(sub), nil
}

// SessionAuth returns a middleware that requires a valid "Bearer <jwt>"
// Authorization header. On success the user id is stored in the Gin context;
// on failure the request is aborted with a 401 envelope.
func SessionAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		const prefix = "Bearer "
		h := c.GetHeader("Authorization")
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		uid, err := parseSession(secret, h[len(prefix):])
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// abortUnauthorized writes the standard error envelope with a 401 status.
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}

// KeyValidator checks a machine API bearer key. Implemented by the account
// service; abstracted here so the middleware is testable without a database.
type KeyValidator func(ctx context.Context, key string) (bool, error)

// APIKeyAuth returns the machine API gate. It reads the JSON body, extracts
// the api_key field, validates it, and restores the body for the handler.
func APIKeyAuth(validate KeyValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAPIBodyBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"response": http.StatusBadRequest})
			return
		}
		// Handlers bind the remaining body fields themselves.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			APIKey string `json:"api_key"`
		}
		if len(body) == 0 || json.Unmarshal(body, &payload) != nil || payload.APIKey == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"response": http.StatusBadRequest})
			return
		}

		valid, err := validate(c.Request.Context(), payload.APIKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"response": http.StatusInternalServerError})
			return
		}
		if !valid {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"response": http.StatusForbidden,
				"message":  "The provided API key is not valid",
			})
			return
		}
		c.Next()
	}
}
