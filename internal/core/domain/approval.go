package domain

import (
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle position of a user, derived from Role and
// AdminRequestStatus. It is never stored.
type State string

const (
	StateRegularUser         State = "regular_user"
	StatePendingAdminRequest State = "pending_admin_request"
	StateRejectedRequest     State = "rejected_request"
	StateActiveAdmin         State = "active_admin"
	StateSuperAdmin          State = "super_admin"
)

// TransitionKind names an operation that moves a user between states.
type TransitionKind string

const (
	KindRequestAdmin  TransitionKind = "request_admin"
	KindApprove       TransitionKind = "approve"
	KindRejectPending TransitionKind = "reject_pending"
	KindRejectAdmin   TransitionKind = "reject_admin"
	KindGrantUser     TransitionKind = "grant_user"
	KindGrantAdmin    TransitionKind = "grant_admin"
	KindBlock         TransitionKind = "block"
)

var ErrInvalidTransition = errors.New("invalid state transition")
var ErrForbidden = errors.New("access forbidden")

type transitionRule struct {
	from []State
	to   State
}

// validTransitions is the approval state machine.
var validTransitions = map[TransitionKind]transitionRule{
	KindRequestAdmin:  {from: []State{StateRegularUser}, to: StatePendingAdminRequest},
	KindApprove:       {from: []State{StatePendingAdminRequest}, to: StateActiveAdmin},
	KindRejectPending: {from: []State{StatePendingAdminRequest}, to: StateRejectedRequest},
	KindRejectAdmin:   {from: []State{StateActiveAdmin}, to: StateRejectedRequest},
	KindGrantUser:     {from: []State{StateRejectedRequest}, to: StateRegularUser},
	KindGrantAdmin:    {from: []State{StateRejectedRequest, StateRegularUser}, to: StateActiveAdmin},
	KindBlock:         {from: []State{StateActiveAdmin, StateRegularUser}, to: StateRejectedRequest},
}

// rowKinds lists the operations a viewer can invoke on someone else's row,
// in display order.
var rowKinds = []TransitionKind{
	KindApprove,
	KindRejectPending,
	KindRejectAdmin,
	KindGrantAdmin,
	KindGrantUser,
	KindBlock,
}

// kindAliases maps the endpoint spellings onto canonical kinds.
var kindAliases = map[string]TransitionKind{
	"reject":   KindRejectPending,
	"unreject": KindGrantUser,
}

// ParseTransitionKind accepts canonical kinds, their dashed endpoint form
// (grant-admin) and the reject/unreject aliases.
func ParseTransitionKind(s string) (TransitionKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if k, ok := kindAliases[norm]; ok {
		return k, nil
	}
	k := TransitionKind(norm)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown transition %q", ErrInvalidInput, s)
	}
	return k, nil
}

// Valid reports whether k is a known transition.
func (k TransitionKind) Valid() bool {
	_, ok := validTransitions[k]
	return ok
}

// Target returns the state k leads to, or "" for an unknown kind.
func (k TransitionKind) Target() State {
	return validTransitions[k].to
}

// CanTransition reports whether kind is legal from s. A state that already
// equals the target is not a legal source.
func (s State) CanTransition(kind TransitionKind) bool {
	for _, from := range validTransitions[kind].from {
		if from == s {
			return true
		}
	}
	return false
}

// StateOf derives the state of u. Precedence: superadmin role, then pending,
// then rejected, then admin role, then plain user.
func StateOf(u User) (State, error) {
	if !u.Role.Valid() {
		return "", fmt.Errorf("%w: user %s has unknown role %q", ErrInvalidUserRecord, u.ID, u.Role)
	}
	if !u.AdminRequestStatus.Valid() {
		return "", fmt.Errorf("%w: user %s has unknown admin request status %q", ErrInvalidUserRecord, u.ID, u.AdminRequestStatus)
	}

	status := u.AdminRequestStatus.Normalize()
	switch {
	case u.Role == RoleSuperAdmin:
		return StateSuperAdmin, nil
	case status == RequestPending:
		return StatePendingAdminRequest, nil
	case status == RequestRejected:
		return StateRejectedRequest, nil
	case u.Role == RoleAdmin:
		return StateActiveAdmin, nil
	default:
		return StateRegularUser, nil
	}
}

// canonical returns the stored form written when a user enters s.
func canonical(s State) (Role, AdminRequestStatus) {
	switch s {
	case StatePendingAdminRequest:
		return RoleUser, RequestPending
	case StateActiveAdmin:
		return RoleAdmin, RequestAccepted
	case StateRejectedRequest:
		return RoleUser, RequestRejected
	default:
		return RoleUser, RequestNone
	}
}

// Apply runs kind against u and returns the updated copy. When u is already
// in the target state the call succeeds with changed=false and u untouched.
func Apply(kind TransitionKind, u User) (next User, changed bool, err error) {
	rule, ok := validTransitions[kind]
	if !ok {
		return u, false, fmt.Errorf("%w: unknown transition %q", ErrInvalidInput, kind)
	}

	from, err := StateOf(u)
	if err != nil {
		return u, false, err
	}
	if from == rule.to {
		return u, false, nil
	}
	if !from.CanTransition(kind) {
		return u, false, fmt.Errorf("%s: %w (from %s to %s)", kind, ErrInvalidTransition, from, rule.to)
	}

	u.Role, u.AdminRequestStatus = canonical(rule.to)
	return u, true, nil
}

// CallerMayInvoke is the target-independent part of the guard.
func CallerMayInvoke(kind TransitionKind, role Role) bool {
	switch kind {
	case KindRequestAdmin:
		return role == RoleUser
	case KindBlock, KindGrantUser:
		return role == RoleSuperAdmin || role == RoleAdmin
	case KindApprove, KindRejectPending, KindRejectAdmin, KindGrantAdmin:
		return role == RoleSuperAdmin
	}
	return false
}

// Authorize decides whether actor may run kind against target. Admins may
// only block or restore plain users; requesting admin access is self-only.
func Authorize(kind TransitionKind, actor Actor, target User) error {
	if !CallerMayInvoke(kind, actor.Role) {
		return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, actor.Role, kind)
	}

	switch kind {
	case KindRequestAdmin:
		if actor.UserID != target.ID {
			return fmt.Errorf("%w: %s is self-service only", ErrForbidden, kind)
		}
	case KindBlock, KindGrantUser:
		if actor.Role == RoleAdmin && target.Role != RoleUser {
			return fmt.Errorf("%w: admins may only %s plain users", ErrForbidden, kind)
		}
	}
	return nil
}

// AvailableActions lists the operations viewer may invoke on target's row.
func AvailableActions(target User, viewer Role) []TransitionKind {
	state, err := StateOf(target)
	if err != nil {
		return nil
	}

	actions := make([]TransitionKind, 0, 2)
	for _, kind := range rowKinds {
		if !state.CanTransition(kind) {
			continue
		}
		if Authorize(kind, Actor{Role: viewer}, target) != nil {
			continue
		}
		actions = append(actions, kind)
	}
	return actions
}
