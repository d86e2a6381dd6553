package domain

import "time"

// TransitionEvent records one successful, state-changing transition.
type TransitionEvent struct {
	ID        string         `json:"id"`
	Kind      TransitionKind `json:"kind"`
	UserID    string         `json:"userId"`
	ActorID   string         `json:"actorId"`
	ActorRole Role           `json:"actorRole"`
	From      State          `json:"from"`
	To        State          `json:"to"`
	At        time.Time      `json:"at"`
}
