package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sheetviz/access-api/internal/api/metrics"
	"github.com/sheetviz/access-api/internal/core/domain"
	"github.com/sheetviz/access-api/internal/core/ports"
)

type accessService struct {
	users     ports.UserRepository
	history   ports.TransitionLog
	publisher ports.TransitionPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewAccessService returns an AccessService implementation. history and
// publisher may be nil.
func NewAccessService(
	users ports.UserRepository,
	history ports.TransitionLog,
	publisher ports.TransitionPublisher,
	log zerolog.Logger,
) ports.AccessService {
	return &accessService{
		users:     users,
		history:   history,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ApplyTransition authorizes and persists a single approval transition.
// Every attempt with a known kind is counted in TransitionsTotal.
func (s *accessService) ApplyTransition(ctx context.Context, in ports.TransitionInput) (*ports.TransitionResult, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("apply transition: %w: unknown kind %q", domain.ErrInvalidInput, in.Kind)
	}

	res, err := s.applyTransition(ctx, in)
	metrics.TransitionsTotal.WithLabelValues(string(in.Kind), transitionResult(res, err)).Inc()
	return res, err
}

func transitionResult(res *ports.TransitionResult, err error) string {
	switch {
	case err == nil && res.Changed:
		return "applied"
	case err == nil:
		return "noop"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *accessService) applyTransition(ctx context.Context, in ports.TransitionInput) (*ports.TransitionResult, error) {
	// 1. Authorize against the caller's stored role, not the token's.
	caller, actor, err := s.resolveActor(ctx, in.Actor)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", in.Kind, err)
	}
	if !domain.CallerMayInvoke(in.Kind, actor.Role) {
		return nil, fmt.Errorf("apply %s: %w", in.Kind, domain.ErrForbidden)
	}

	// 2. Load the target. Requesting admin access always targets the caller.
	targetID := in.TargetID
	if in.Kind == domain.KindRequestAdmin && targetID == "" {
		targetID = actor.UserID
	}
	target := caller
	if targetID != actor.UserID {
		if target, err = s.users.FindByID(ctx, targetID); err != nil {
			return nil, fmt.Errorf("apply %s: %w", in.Kind, err)
		}
	}

	// 3. Target-dependent guard.
	if err := domain.Authorize(in.Kind, actor, *target); err != nil {
		return nil, fmt.Errorf("apply %s: %w", in.Kind, err)
	}

	// 4. State machine.
	from, err := domain.StateOf(*target)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", in.Kind, err)
	}
	next, changed, err := domain.Apply(in.Kind, *target)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	if !changed {
		s.log.Debug().Str("kind", string(in.Kind)).Str("user_id", target.ID).Msg("transition already applied")
		return &ports.TransitionResult{User: target, Changed: false}, nil
	}

	// 5. Persist.
	now := s.now()
	if err := s.users.UpdateAccess(ctx, target.ID, next.Role, next.AdminRequestStatus, now); err != nil {
		return nil, fmt.Errorf("apply %s: update access: %w", in.Kind, err)
	}
	next.UpdatedAt = now

	event := &domain.TransitionEvent{
		ID:        uuid.NewString(),
		Kind:      in.Kind,
		UserID:    target.ID,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		From:      from,
		To:        in.Kind.Target(),
		At:        now,
	}

	// 6. Audit trail and notification (non-fatal on failure).
	if s.history != nil {
		if err := s.history.Record(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("user_id", target.ID).Msg("failed to record transition")
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(*event)
	}

	s.log.Info().
		Str("kind", string(in.Kind)).
		Str("user_id", target.ID).
		Str("actor_id", actor.UserID).
		Str("from", string(from)).
		Str("to", string(event.To)).
		Msg("transition applied")

	return &ports.TransitionResult{User: &next, Changed: true, Event: event}, nil
}

// ListUsers returns the full directory snapshot in insertion order.
func (s *accessService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	_, resolved, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return s.listFor(ctx, resolved)
}

// Dashboard projects the current snapshot for the caller.
func (s *accessService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.ViewModel, error) {
	_, resolved, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	users, err := s.listFor(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return domain.Project(users, resolved.Role)
}

func (s *accessService) listFor(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSuperAdmin {
		return nil, fmt.Errorf("list users: %w", domain.ErrForbidden)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Profile returns the caller's own record.
func (s *accessService) Profile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, _, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}

// History returns the audit trail of a user. Superadmin only.
func (s *accessService) History(ctx context.Context, actor domain.Actor, userID string) ([]domain.TransitionEvent, error) {
	_, resolved, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if resolved.Role != domain.RoleSuperAdmin {
		return nil, fmt.Errorf("history: %w", domain.ErrForbidden)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if s.history == nil {
		return []domain.TransitionEvent{}, nil
	}

	events, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return events, nil
}

// resolveActor reloads the caller so that demotions take effect before the
// caller's token expires.
func (s *accessService) resolveActor(ctx context.Context, actor domain.Actor) (*domain.User, domain.Actor, error) {
	if actor.UserID == "" {
		return nil, domain.Actor{}, domain.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Actor{}, domain.ErrUnauthenticated
		}
		return nil, domain.Actor{}, err
	}
	return user, domain.Actor{UserID: user.ID, Role: user.Role}, nil
}
