package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// ctxActor extracts the caller injected by the Auth middleware. The role is
// the token's copy; services re-read the stored one.
func ctxActor(c echo.Context) (domain.Actor, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	role, _ := c.Get("role").(string)
	return domain.Actor{UserID: userID, Role: domain.Role(role)}, nil
}

// ctxToken returns the id and expiry of the presented token.
func ctxToken(c echo.Context) (string, time.Time, error) {
	tokenID, _ := c.Get("token_id").(string)
	if tokenID == "" {
		return "", time.Time{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	exp, _ := c.Get("token_exp").(time.Time)
	return tokenID, exp, nil
}
