// Package client is a Go consumer of the access API. It owns the session
// lifecycle and maps HTTP failures onto a small error taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sheetviz/access-api/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// transitionPaths maps each kind to its endpoint. request_admin has no id segment.
var transitionPaths = map[domain.TransitionKind]string{
	domain.KindRequestAdmin:  "/api/users/request-admin",
	domain.KindApprove:       "/api/users/approve/",
	domain.KindRejectPending: "/api/users/reject/",
	domain.KindRejectAdmin:   "/api/users/reject-admin/",
	domain.KindGrantAdmin:    "/api/users/grant-admin/",
	domain.KindGrantUser:     "/api/users/grant-user/",
	domain.KindBlock:         "/api/users/block/",
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RequestAdmin bool   `json:"requestAdmin,omitempty"`
}

// TransitionResult is the server's answer to a transition call.
type TransitionResult struct {
	Message string      `json:"message"`
	Changed bool        `json:"changed"`
	User    domain.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, nil, http.MethodPost, "/api/users/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("register: %w: missing user", ErrMalformedResponse)
	}
	return resp.User, nil
}

// Login opens a new session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp struct {
		Token     string       `json:"token"`
		ExpiresAt time.Time    `json:"expiresAt"`
		Role      domain.Role  `json:"role"`
		Email     string       `json:"email"`
		Name      string       `json:"name"`
		User      *domain.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/api/users/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: %w: missing token", ErrMalformedResponse)
	}

	user := domain.User{Role: resp.Role, Email: resp.Email, Name: resp.Name}
	if resp.User != nil {
		user = *resp.User
	}
	if !user.Role.Valid() {
		return nil, fmt.Errorf("login: %w: unknown role %q", ErrMalformedResponse, user.Role)
	}
	return newSession(resp.Token, resp.ExpiresAt, user), nil
}

// Logout revokes the token server-side. The session is destroyed even when
// the call fails.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	defer s.Invalidate()
	return c.do(ctx, s, http.MethodPost, "/api/users/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context, s *Session) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, s, http.MethodGet, "/api/users/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Users fetches the full snapshot. Anything other than a JSON array is
// reported as ErrMalformedResponse.
func (c *Client) Users(ctx context.Context, s *Session) ([]domain.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, s, http.MethodGet, "/api/users/all", nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("users: %w: expected an array", ErrMalformedResponse)
	}

	var users []domain.User
	if err := json.Unmarshal(trimmed, &users); err != nil {
		return nil, fmt.Errorf("users: %w: %v", ErrMalformedResponse, err)
	}
	return users, nil
}

func (c *Client) History(ctx context.Context, s *Session, userID string) ([]domain.TransitionEvent, error) {
	var events []domain.TransitionEvent
	if err := c.do(ctx, s, http.MethodGet, "/api/users/history/"+url.PathEscape(userID), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Apply invokes the transition kind on userID.
func (c *Client) Apply(ctx context.Context, s *Session, kind domain.TransitionKind, userID string) (*TransitionResult, error) {
	path, ok := transitionPaths[kind]
	if !ok {
		return nil, fmt.Errorf("apply %q: %w: %w", kind, ErrInvalidInput, domain.ErrInvalidInput)
	}
	if kind != domain.KindRequestAdmin {
		if userID == "" {
			return nil, fmt.Errorf("apply %s: %w: missing user id", kind, ErrInvalidInput)
		}
		path += url.PathEscape(userID)
	}

	var res TransitionResult
	if err := c.call(ctx, s, true, http.MethodPut, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RequestAdmin files an admin request for the session's own account.
func (c *Client) RequestAdmin(ctx context.Context, s *Session) (*TransitionResult, error) {
	return c.Apply(ctx, s, domain.KindRequestAdmin, "")
}

func (c *Client) do(ctx context.Context, s *Session, method, path string, in, out any) error {
	return c.call(ctx, s, false, method, path, in, out)
}

// call sends one request. A nil session means an anonymous call; a non-nil
// one must be active and is invalidated on 401 or 403. Only transition calls
// read 409 and 422 as a rejected state change.
func (c *Client) call(ctx context.Context, s *Session, transition bool, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil {
		token, ok := s.Token()
		if !ok {
			return fmt.Errorf("%s %s: %w: no active session", method, path, ErrUnauthenticated)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: read body: %w", method, path, ErrNetworkFailure, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data), kind: classify(resp.StatusCode, transition)}
		if s != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			s.Invalidate()
		}
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrMalformedResponse, err)
	}
	return nil
}

func classify(status int, transition bool) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case transition && (status == http.StatusConflict || status == http.StatusUnprocessableEntity):
		return ErrInvalidStateTransition
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case status >= 500:
		return ErrNetworkFailure
	}
	return nil
}

func errorMessage(data []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return strings.TrimSpace(string(data))
}
