package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"elearn/internal/store"
)

var ErrTokenDisabled = errors.New("token disabled")

type Claims struct {
	Subject string
	IsAdmin bool
}

const claimsContextKey = "auth_claims"

// TokenStore looks up hashed API tokens.
type TokenStore interface {
	AuthenticateToken(ctx context.Context, tokenHash string) (store.APIToken, error)
	TouchTokenLastUsed(ctx context.Context, id int64)
}

type Authenticator struct {
	tokens     TokenStore
	adminToken string
}

func NewAuthenticator(tokens TokenStore, adminToken string) *Authenticator {
	return &Authenticator{
		tokens:     tokens,
		adminToken: adminToken,
	}
}

func (a *Authenticator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing API token")
		}

		claims, err := a.Authenticate(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API token")
		}
		c.Set(claimsContextKey, claims)

		return next(c)
	}
}

// RequireAdmin rejects requests whose claims are not admin. It runs after Middleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := GetClaims(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing API token")
		}
		if !claims.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (Claims, error) {
	if a.adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) == 1 {
		return Claims{Subject: "admin", IsAdmin: true}, nil
	}

	t, err := a.tokens.AuthenticateToken(ctx, HashToken(token))
	if err != nil {
		return Claims{}, err
	}
	if t.Disabled {
		return Claims{}, ErrTokenDisabled
	}
	a.tokens.TouchTokenLastUsed(ctx, t.ID)

	return Claims{Subject: t.Subject, IsAdmin: t.IsAdmin}, nil
}

// HashToken is the form tokens are stored in.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func GetClaims(c echo.Context) (Claims, bool) {
	raw := c.Get(claimsContextKey)
	if raw == nil {
		return Claims{}, false
	}
	claims, ok := raw.(Claims)
	return claims, ok
}

func extractToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}
