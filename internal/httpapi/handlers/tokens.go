package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"elearn/internal/auth"
)

func (h *Handler) Whoami(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"subject": claims.Subject,
		"isAdmin": claims.IsAdmin,
	})
}

// CreateToken issues an API token. The plaintext is returned once; only its hash is kept.
func (h *Handler) CreateToken(c echo.Context) error {
	var req struct {
		Subject string `json:"subject"`
		Name    string `json:"name"`
		IsAdmin bool   `json:"isAdmin"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	token := "el_" + hex.EncodeToString(buf)

	id, err := h.store.CreateToken(c.Request().Context(), subject, strings.TrimSpace(req.Name), auth.HashToken(token), req.IsAdmin)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"id":      id,
		"subject": subject,
		"token":   token,
	})
}

func (h *Handler) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"ok": false})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
