package ports

import (
	"context"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// TransitionInput is the DTO for a single approval transition.
type TransitionInput struct {
	Kind     domain.TransitionKind
	TargetID string
	Actor    domain.Actor
}

// TransitionResult reports the outcome of ApplyTransition. Changed is false
// when the target was already in the resulting state.
type TransitionResult struct {
	User    *domain.User
	Changed bool
	Event   *domain.TransitionEvent
}

// AccessService applies approval transitions and serves directory views.
type AccessService interface {
	ApplyTransition(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*domain.ViewModel, error)
	Profile(ctx context.Context, actor domain.Actor) (*domain.User, error)
	History(ctx context.Context, actor domain.Actor, userID string) ([]domain.TransitionEvent, error)
}
