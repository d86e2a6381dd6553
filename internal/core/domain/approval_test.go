package domain

import (
	"errors"
	"reflect"
	"testing"
)

func user(id string, role Role, status AdminRequestStatus) User {
	return User{ID: id, Email: id + "@example.com", Role: role, AdminRequestStatus: status}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		u    User
		want State
	}{
		{"plain user", user("a", RoleUser, RequestNone), StateRegularUser},
		{"plain user with empty status", user("b", RoleUser, ""), StateRegularUser},
		{"pending user", user("c", RoleUser, RequestPending), StatePendingAdminRequest},
		{"pending regardless of role", user("d", RoleAdmin, RequestPending), StatePendingAdminRequest},
		{"rejected user", user("e", RoleUser, RequestRejected), StateRejectedRequest},
		{"active admin", user("f", RoleAdmin, RequestAccepted), StateActiveAdmin},
		{"legacy admin without status", user("g", RoleAdmin, RequestNone), StateActiveAdmin},
		{"superadmin ignores status", user("h", RoleSuperAdmin, RequestPending), StateSuperAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateOf(tt.u)
			if err != nil {
				t.Fatalf("StateOf returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStateOf_InvalidRecord(t *testing.T) {
	if _, err := StateOf(user("x", "owner", RequestNone)); !errors.Is(err, ErrInvalidUserRecord) {
		t.Fatalf("unknown role: expected ErrInvalidUserRecord, got %v", err)
	}
	if _, err := StateOf(user("y", RoleUser, "maybe")); !errors.Is(err, ErrInvalidUserRecord) {
		t.Fatalf("unknown status: expected ErrInvalidUserRecord, got %v", err)
	}
}

func TestApply_Table(t *testing.T) {
	sources := map[State]User{
		StateRegularUser:         user("r", RoleUser, RequestNone),
		StatePendingAdminRequest: user("p", RoleUser, RequestPending),
		StateRejectedRequest:     user("j", RoleUser, RequestRejected),
		StateActiveAdmin:         user("a", RoleAdmin, RequestAccepted),
		StateSuperAdmin:          user("s", RoleSuperAdmin, RequestNone),
	}

	for kind, rule := range validTransitions {
		for state, u := range sources {
			next, changed, err := Apply(kind, u)
			switch {
			case state == rule.to:
				if err != nil || changed || next != u {
					t.Fatalf("%s from %s should be a no-op: changed=%v err=%v", kind, state, changed, err)
				}
			case state.CanTransition(kind):
				if err != nil || !changed {
					t.Fatalf("%s from %s: changed=%v err=%v", kind, state, changed, err)
				}
				got, err := StateOf(next)
				if err != nil || got != rule.to {
					t.Fatalf("%s from %s: expected %s, got %s (%v)", kind, state, rule.to, got, err)
				}
			default:
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s from %s: expected ErrInvalidTransition, got %v", kind, state, err)
				}
				if next != u {
					t.Fatalf("%s from %s: invalid transition must not mutate", kind, state)
				}
			}
		}
	}
}

func TestApply_CanonicalForms(t *testing.T) {
	tests := []struct {
		kind       TransitionKind
		from       User
		wantRole   Role
		wantStatus AdminRequestStatus
	}{
		{KindApprove, user("p", RoleUser, RequestPending), RoleAdmin, RequestAccepted},
		{KindRejectAdmin, user("a", RoleAdmin, RequestAccepted), RoleUser, RequestRejected},
		{KindGrantUser, user("j", RoleUser, RequestRejected), RoleUser, RequestNone},
		{KindRequestAdmin, user("r", RoleUser, ""), RoleUser, RequestPending},
	}

	for _, tt := range tests {
		next, _, err := Apply(tt.kind, tt.from)
		if err != nil {
			t.Fatalf("%s returned error: %v", tt.kind, err)
		}
		if next.Role != tt.wantRole || next.AdminRequestStatus != tt.wantStatus {
			t.Fatalf("%s: expected (%s, %s), got (%s, %s)", tt.kind, tt.wantRole, tt.wantStatus, next.Role, next.AdminRequestStatus)
		}
	}
}

func TestApply_UnknownKind(t *testing.T) {
	if _, _, err := Apply("promote", user("r", RoleUser, RequestNone)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseTransitionKind(t *testing.T) {
	cases := map[string]TransitionKind{
		"approve":       KindApprove,
		"reject":        KindRejectPending,
		"reject-admin":  KindRejectAdmin,
		"grant-admin":   KindGrantAdmin,
		"grant-user":    KindGrantUser,
		"unreject":      KindGrantUser,
		"BLOCK":         KindBlock,
		"request_admin": KindRequestAdmin,
	}
	for in, want := range cases {
		got, err := ParseTransitionKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseTransitionKind(%q) = %s, %v; want %s", in, got, err, want)
		}
	}

	if _, err := ParseTransitionKind("delete"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	sa := Actor{UserID: "s", Role: RoleSuperAdmin}
	ad := Actor{UserID: "a", Role: RoleAdmin}
	us := Actor{UserID: "r", Role: RoleUser}
	plain := user("r", RoleUser, RequestNone)
	other := user("o", RoleUser, RequestNone)
	anAdmin := user("a2", RoleAdmin, RequestAccepted)

	tests := []struct {
		name    string
		kind    TransitionKind
		actor   Actor
		target  User
		allowed bool
	}{
		{"superadmin approves", KindApprove, sa, plain, true},
		{"admin cannot approve", KindApprove, ad, plain, false},
		{"user cannot approve", KindApprove, us, plain, false},
		{"superadmin rejects pending", KindRejectPending, sa, plain, true},
		{"admin cannot reject pending", KindRejectPending, ad, plain, false},
		{"superadmin demotes", KindRejectAdmin, sa, plain, true},
		{"admin cannot demote", KindRejectAdmin, ad, plain, false},
		{"superadmin grants admin", KindGrantAdmin, sa, plain, true},
		{"admin cannot grant admin", KindGrantAdmin, ad, plain, false},
		{"user cannot grant admin", KindGrantAdmin, us, plain, false},
		{"admin blocks plain user", KindBlock, ad, plain, true},
		{"admin restores plain user", KindGrantUser, ad, plain, true},
		{"admin cannot block admin", KindBlock, ad, anAdmin, false},
		{"superadmin blocks admin", KindBlock, sa, anAdmin, true},
		{"user cannot block", KindBlock, us, other, false},
		{"user requests for self", KindRequestAdmin, us, plain, true},
		{"user cannot request for others", KindRequestAdmin, us, other, false},
		{"superadmin cannot request", KindRequestAdmin, sa, user("s", RoleSuperAdmin, RequestNone), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.kind, tt.actor, tt.target)
			if tt.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		name   string
		target User
		viewer Role
		want   []TransitionKind
	}{
		{"superadmin on regular", user("r", RoleUser, RequestNone), RoleSuperAdmin, []TransitionKind{KindGrantAdmin, KindBlock}},
		{"superadmin on pending", user("p", RoleUser, RequestPending), RoleSuperAdmin, []TransitionKind{KindApprove, KindRejectPending}},
		{"superadmin on admin", user("a", RoleAdmin, RequestAccepted), RoleSuperAdmin, []TransitionKind{KindRejectAdmin, KindBlock}},
		{"superadmin on rejected", user("j", RoleUser, RequestRejected), RoleSuperAdmin, []TransitionKind{KindGrantAdmin, KindGrantUser}},
		{"superadmin on superadmin", user("s", RoleSuperAdmin, RequestNone), RoleSuperAdmin, []TransitionKind{}},
		{"admin on regular", user("r", RoleUser, RequestNone), RoleAdmin, []TransitionKind{KindBlock}},
		{"admin on rejected", user("j", RoleUser, RequestRejected), RoleAdmin, []TransitionKind{KindGrantUser}},
		{"admin on admin", user("a", RoleAdmin, RequestAccepted), RoleAdmin, []TransitionKind{}},
		{"user viewer", user("r", RoleUser, RequestNone), RoleUser, []TransitionKind{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvailableActions(tt.target, tt.viewer); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
