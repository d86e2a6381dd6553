package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// Dashboard keeps the last snapshot and its projection for one session.
type Dashboard struct {
	client  *Client
	session *Session

	mu    sync.RWMutex
	users []domain.User
	view  *domain.ViewModel
}

func NewDashboard(c *Client, s *Session) *Dashboard {
	return &Dashboard{client: c, session: s}
}

// Load fetches the snapshot and projects it for the session's role.
func (d *Dashboard) Load(ctx context.Context) (*domain.ViewModel, error) {
	users, err := d.client.Users(ctx, d.session)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	vm, err := domain.Project(users, d.session.Role())
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return nil, fmt.Errorf("load dashboard: %w: %w", ErrForbidden, err)
	case errors.Is(err, domain.ErrInvalidUserRecord):
		return nil, fmt.Errorf("load dashboard: %w: %w", ErrMalformedResponse, err)
	case err != nil:
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	d.mu.Lock()
	d.users, d.view = users, vm
	d.mu.Unlock()
	return vm, nil
}

// Act applies kind to userID, then reloads. The view is left untouched
// when the transition fails.
func (d *Dashboard) Act(ctx context.Context, kind domain.TransitionKind, userID string) (*domain.ViewModel, error) {
	if _, err := d.client.Apply(ctx, d.session, kind, userID); err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, userID, err)
	}
	return d.Load(ctx)
}

// View returns the last loaded projection, or nil before the first Load.
func (d *Dashboard) View() *domain.ViewModel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}

// Snapshot returns a copy of the last fetched users.
func (d *Dashboard) Snapshot() []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.User(nil), d.users...)
}
