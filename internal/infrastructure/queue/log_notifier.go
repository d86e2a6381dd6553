package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// LogNotifier writes each transition to the structured log. It is always
// installed so that access changes are traceable without a broker.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, e domain.TransitionEvent) error {
	n.log.Info().
		Str("event_id", e.ID).
		Str("kind", string(e.Kind)).
		Str("user_id", e.UserID).
		Str("actor_id", e.ActorID).
		Str("from", string(e.From)).
		Str("to", string(e.To)).
		Time("at", e.At).
		Msg("user access changed")
	return nil
}
