package middleware

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookieName is the session cookie issued by the auth service.
const TokenCookieName = "token"

const (
	userIDContextKey   = "user_id"
	userRoleContextKey = "user_role"
)

// AuthConfig enables the session cookie check.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
}

// SessionClaims mirrors the payload signed by the auth service.
type SessionClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// CookieAuth rejects requests without a valid HS256 "token" cookie.
// The cookie itself stays on the request so it can be forwarded downstream.
func CookieAuth(cfg AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.Secret)
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		raw, err := c.Cookie(TokenCookieName)
		if err != nil || raw == "" {
			response.AbortWithErrorCode(c, pkgerrors.TokenMissing, "Unauthorized")
			return
		}
		claims, err := ParseSessionToken(raw, secret)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(userIDContextKey, claims.ID)
		c.Set(userRoleContextKey, claims.Role)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), contextkey.UserID, claims.ID))
		c.Next()
	}
}

// ParseSessionToken verifies raw against secret.
func ParseSessionToken(raw string, secret []byte) (*SessionClaims, error) {
	if len(secret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("Invalid token")
	}
	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("Invalid token")
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("Invalid token")
	}
	return claims, nil
}
