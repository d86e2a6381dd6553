package ports

import (
	"context"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// TransitionPublisher hands an event over for asynchronous delivery.
// Publish never blocks the caller.
type TransitionPublisher interface {
	Publish(event domain.TransitionEvent)
}

// TransitionNotifier delivers one event to an external sink.
type TransitionNotifier interface {
	Notify(ctx context.Context, event domain.TransitionEvent) error
}
