package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type stubRevoker struct {
	revoked map[string]bool
	err     error
}

func (r *stubRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

func (r *stubRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return r.revoked[tokenID], r.err
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "u1",
		"role":  "admin",
		"email": "alice@example.com",
		"jti":   "tok-1",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

// run executes Auth against the given header and returns the recorder and
// whether next was reached.
func run(t *testing.T, header string, revoker *stubRevoker, next echo.HandlerFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var mw echo.MiddlewareFunc
	if revoker != nil {
		mw = Auth("secret", revoker)
	} else {
		mw = Auth("secret", nil)
	}
	handler := mw(func(c echo.Context) error {
		called = true
		if next != nil {
			return next(c)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rec, called := run(t, "Bearer "+sign(t, validClaims()), nil, func(c echo.Context) error {
		if c.Get("user_id") != "u1" {
			t.Fatalf("user_id not set")
		}
		if c.Get("role") != "admin" {
			t.Fatalf("role not set")
		}
		if c.Get("token_id") != "tok-1" {
			t.Fatalf("token_id not set")
		}
		if exp, _ := c.Get("token_exp").(time.Time); exp.IsZero() {
			t.Fatalf("token_exp not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := validClaims()
	delete(noExp, "exp")
	noSub := validClaims()
	delete(noSub, "sub")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid header format", "Token abc"},
		{"invalid token", "Bearer not-a-token"},
		{"expired token", "Bearer " + sign(t, expired)},
		{"token without expiry", "Bearer " + sign(t, noExp)},
		{"token without subject", "Bearer " + sign(t, noSub)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := run(t, tt.header, nil, nil)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec, called := run(t, "Bearer "+signed, nil, nil)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without reaching next, got %d (called=%v)", rec.Code, called)
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	revoker := &stubRevoker{revoked: map[string]bool{"tok-1": true}}

	rec, called := run(t, "Bearer "+sign(t, validClaims()), revoker, nil)
	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RevocationStoreDown(t *testing.T) {
	revoker := &stubRevoker{err: errors.New("redis: connection refused")}

	rec, called := run(t, "Bearer "+sign(t, validClaims()), revoker, nil)
	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
