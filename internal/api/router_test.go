package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
	"github.com/sheetviz/access-api/internal/infrastructure/config"
)

// ---- stubs ----

type noopAuth struct{}

func (noopAuth) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	return &domain.User{ID: "new", Role: domain.RoleUser, AdminRequestStatus: domain.RequestNone}, nil
}

func (noopAuth) Login(context.Context, string, string) (*ports.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}

func (noopAuth) Logout(context.Context, string, time.Time) error { return nil }

type recordingAccess struct {
	lastKind domain.TransitionKind
}

func (a *recordingAccess) ApplyTransition(_ context.Context, in ports.TransitionInput) (*ports.TransitionResult, error) {
	a.lastKind = in.Kind
	return &ports.TransitionResult{Changed: true, User: &domain.User{ID: in.TargetID}}, nil
}

func (a *recordingAccess) ListUsers(context.Context, domain.Actor) ([]domain.User, error) {
	return []domain.User{}, nil
}

func (a *recordingAccess) Dashboard(_ context.Context, actor domain.Actor) (*domain.ViewModel, error) {
	return domain.Project(nil, actor.Role)
}

func (a *recordingAccess) Profile(_ context.Context, actor domain.Actor) (*domain.User, error) {
	return &domain.User{ID: actor.UserID, Role: actor.Role}, nil
}

func (a *recordingAccess) History(context.Context, domain.Actor, string) ([]domain.TransitionEvent, error) {
	return []domain.TransitionEvent{}, nil
}

type openRevoker struct{}

func (openRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (openRevoker) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

func bearer(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"jti":  "jti-" + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("router-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

// The router registers Prometheus collectors, so it is built once.
func TestRouter(t *testing.T) {
	access := &recordingAccess{}
	e := NewRouter(Deps{
		Config: &config.Config{
			JWTSecret:   "router-secret",
			CORSOrigins: []string{"http://localhost:3000"},
			Login:       config.LoginConfig{RatePerSecond: 1, Burst: 2},
		},
		Log:     zerolog.Nop(),
		Auth:    noopAuth{},
		Access:  access,
		Revoker: openRevoker{},
	})

	do := func(method, path, auth, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("liveness is public", func(t *testing.T) {
		if rec := do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("register is public", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/users/register", "", `{"name":"A","email":"a@example.com","password":"secret123"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("login maps invalid credentials to 401", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/users/login", "", `{"email":"a@example.com","password":"x"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("login is rate limited", func(t *testing.T) {
		var last int
		for i := 0; i < 5; i++ {
			last = do(http.MethodPost, "/api/users/login", "", `{"email":"a@example.com","password":"x"}`).Code
		}
		if last != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after burst, got %d", last)
		}
	})

	t.Run("directory requires a token", func(t *testing.T) {
		if rec := do(http.MethodGet, "/api/users/all", "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("plain users cannot open the admin area", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/users/dashboard", bearer(t, "u1", domain.RoleUser), "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("plain users may request admin", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/users/request-admin", bearer(t, "u1", domain.RoleUser), "")
		if rec.Code != http.StatusOK || access.lastKind != domain.KindRequestAdmin {
			t.Fatalf("expected request_admin to pass, got %d (%s)", rec.Code, access.lastKind)
		}
	})

	t.Run("unreject aliases grant-user", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/users/unreject/r1", bearer(t, "ad", domain.RoleAdmin), "")
		if rec.Code != http.StatusOK || access.lastKind != domain.KindGrantUser {
			t.Fatalf("expected grant_user, got %d (%s)", rec.Code, access.lastKind)
		}
	})

	t.Run("reject binds to reject_pending", func(t *testing.T) {
		rec := do(http.MethodPut, "/api/users/reject/p1", bearer(t, "sa", domain.RoleSuperAdmin), "")
		if rec.Code != http.StatusOK || access.lastKind != domain.KindRejectPending {
			t.Fatalf("expected reject_pending, got %d (%s)", rec.Code, access.lastKind)
		}
	})

	t.Run("history is superadmin only", func(t *testing.T) {
		if rec := do(http.MethodGet, "/api/users/history/u1", bearer(t, "ad", domain.RoleAdmin), ""); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for admin, got %d", rec.Code)
		}
		if rec := do(http.MethodGet, "/api/users/history/u1", bearer(t, "sa", domain.RoleSuperAdmin), ""); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for superadmin, got %d", rec.Code)
		}
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := do(http.MethodGet, "/metrics", "", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "access_") {
			t.Fatalf("expected prometheus output, got %d", rec.Code)
		}
	})
}
