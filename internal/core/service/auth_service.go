package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	minPasswordLength = 8
)

// AuthService implements registration, login and logout.
type AuthService struct {
	repo      ports.UserRepository
	revoker   ports.TokenRevoker
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.UserRepository, revoker ports.TokenRevoker, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		repo:      repo,
		revoker:   revoker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a plain user. Superadmins are never created here.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("register: %w: name and email are required", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("register: %w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	status := domain.RequestNone
	if in.RequestAdmin {
		status = domain.RequestPending
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:               name,
		Email:              email,
		PasswordHash:       string(hash),
		Role:               domain.RoleUser,
		AdminRequestStatus: status,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("status", string(status)).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	token, expiresAt, err := s.generateToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("login: sign token: %w", err)
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the token identified by tokenID until it would have expired.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return domain.ErrUnauthenticated
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, tokenID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// EnsureSuperAdmin creates the superadmin account for email, or promotes the
// existing account. It is the only path that yields a superadmin and is
// reserved for operator tooling. The password is only used on creation.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, fmt.Errorf("ensure superadmin: %w: email is required", domain.ErrInvalidInput)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleSuperAdmin {
			return existing, false, nil
		}
		now := s.now()
		if err := s.repo.UpdateAccess(ctx, existing.ID, domain.RoleSuperAdmin, domain.RequestAccepted, now); err != nil {
			return nil, false, fmt.Errorf("ensure superadmin: %w", err)
		}
		existing.Role, existing.AdminRequestStatus, existing.UpdatedAt = domain.RoleSuperAdmin, domain.RequestAccepted, now
		s.log.Warn().Str("user_id", existing.ID).Msg("account promoted to superadmin")
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, fmt.Errorf("ensure superadmin: %w", err)
	}

	if len(password) < minPasswordLength {
		return nil, false, fmt.Errorf("ensure superadmin: %w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("ensure superadmin: hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:               strings.TrimSpace(name),
		Email:              email,
		PasswordHash:       string(hash),
		Role:               domain.RoleSuperAdmin,
		AdminRequestStatus: domain.RequestAccepted,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure superadmin: %w", err)
	}
	s.log.Warn().Str("user_id", created.ID).Msg("superadmin created")
	return created, true, nil
}

func (s *AuthService) generateToken(user *domain.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(user.Role),
		"email": user.Email,
		"name":  user.Name,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	return signed, expiresAt, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
