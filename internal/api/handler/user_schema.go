package handler

import (
	"time"

	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
)

// --- Request types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	// Role "admin" files an admin request; the account is still created as a user.
	Role         string `json:"role"         validate:"omitempty,oneof=user admin"`
	RequestAdmin bool   `json:"requestAdmin"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

type errorResponse struct {
	Error string `json:"error"`
}

type registerResponse struct {
	User *domain.User `json:"user"`
}

// loginResponse keeps the flat token/role/email/name fields browser clients
// read right after login.
type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Role      domain.Role  `json:"role"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	User      *domain.User `json:"user"`
}

type transitionResponse struct {
	Message string       `json:"message"`
	Changed bool         `json:"changed"`
	User    *domain.User `json:"user"`
}

// --- Mappers ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		RequestAdmin: req.RequestAdmin || req.Role == string(domain.RoleAdmin),
	}
}

func toLoginResponse(res *ports.LoginResult) loginResponse {
	return loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Role:      res.User.Role,
		Email:     res.User.Email,
		Name:      res.User.Name,
		User:      res.User,
	}
}

func toTransitionResponse(kind domain.TransitionKind, res *ports.TransitionResult) transitionResponse {
	msg := string(kind) + " applied"
	if !res.Changed {
		msg = string(kind) + " already in effect"
	}
	return transitionResponse{Message: msg, Changed: res.Changed, User: res.User}
}
