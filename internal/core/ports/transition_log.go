package ports

import (
	"context"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// TransitionLog persists the audit trail of applied transitions.
type TransitionLog interface {
	Record(ctx context.Context, event *domain.TransitionEvent) error

	// ListByUser returns the events for a user, oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.TransitionEvent, error)
}
