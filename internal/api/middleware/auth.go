package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sheetviz/access-api/internal/core/ports"
)

// Auth validates the bearer JWT, rejects revoked tokens and injects the
// claims into the echo context. revoked may be nil.
func Auth(jwtSecret string, revoked ports.TokenRevoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims["sub"].(string)
			jti, _ := claims["jti"].(string)
			if sub == "" || jti == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing identity")
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(c.Request().Context(), jti)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
				}
				if isRevoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			var exp time.Time
			if e, err := claims.GetExpirationTime(); err == nil && e != nil {
				exp = e.Time
			}

			c.Set("user_id", sub)
			c.Set("role", claims["role"])
			c.Set("email", claims["email"])
			c.Set("token_id", jti)
			c.Set("token_exp", exp)

			return next(c)
		}
	}
}
