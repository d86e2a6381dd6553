package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func snapshot() []User {
	return []User{
		user("r1", RoleUser, RequestNone),
		user("s1", RoleSuperAdmin, ""),
		user("p1", RoleUser, RequestPending),
		user("a1", RoleAdmin, RequestAccepted),
		user("r2", RoleUser, ""),
		user("j1", RoleUser, RequestRejected),
		user("p2", RoleAdmin, RequestPending),
	}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func mustProject(t *testing.T, users []User, viewer Role) *ViewModel {
	t.Helper()
	vm, err := Project(users, viewer)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	return vm
}

func mustApply(t *testing.T, users []User, kind TransitionKind, id string) []User {
	t.Helper()
	out, err := ApplyToSnapshot(users, kind, id)
	if err != nil {
		t.Fatalf("ApplyToSnapshot(%s, %s) returned error: %v", kind, id, err)
	}
	return out
}

func expectIDs(t *testing.T, name string, rows []Row, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if got := ids(rows); !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: expected %v, got %v", name, want, got)
	}
}

func TestProject_SuperAdminPartitions(t *testing.T) {
	vm := mustProject(t, snapshot(), RoleSuperAdmin)

	expectIDs(t, "regular", vm.RegularUsers, "r1", "r2")
	expectIDs(t, "pending", vm.PendingAdmins, "p1", "p2")
	expectIDs(t, "admins", vm.ActiveAdmins, "a1")
	expectIDs(t, "rejected", vm.RejectedUsers, "j1")
	expectIDs(t, "superadmins", vm.SuperAdmins, "s1")

	want := Counts{Users: 2, Pending: 2, Admins: 1, Rejected: 1, SuperAdmins: 1, Total: 7}
	if vm.Counts != want {
		t.Fatalf("expected counts %+v, got %+v", want, vm.Counts)
	}
}

func TestProject_PartitionIsTotalAndDisjoint(t *testing.T) {
	users := snapshot()
	vm := mustProject(t, users, RoleSuperAdmin)

	seen := map[string]int{}
	for _, s := range []State{StateRegularUser, StatePendingAdminRequest, StateActiveAdmin, StateRejectedRequest, StateSuperAdmin} {
		for _, id := range ids(vm.Partition(s)) {
			seen[id]++
		}
	}
	if len(seen) != len(users) {
		t.Fatalf("expected %d users across partitions, got %d", len(users), len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("user %s appears in %d partitions", id, n)
		}
	}
}

func TestProject_AdminViewer(t *testing.T) {
	vm := mustProject(t, snapshot(), RoleAdmin)

	expectIDs(t, "regular", vm.RegularUsers, "r1", "r2")
	expectIDs(t, "rejected", vm.RejectedUsers, "j1")
	expectIDs(t, "pending", vm.PendingAdmins)
	expectIDs(t, "admins", vm.ActiveAdmins)
	expectIDs(t, "superadmins", vm.SuperAdmins)

	if vm.Counts.Total != 7 || vm.Counts.SuperAdmins != 1 {
		t.Fatalf("counts must cover hidden rows too, got %+v", vm.Counts)
	}
	for _, row := range vm.RegularUsers {
		if !reflect.DeepEqual(row.Actions, []TransitionKind{KindBlock}) {
			t.Fatalf("regular row %s: expected [block], got %v", row.ID, row.Actions)
		}
	}
	if got := vm.RejectedUsers[0].Actions; !reflect.DeepEqual(got, []TransitionKind{KindGrantUser}) {
		t.Fatalf("rejected row: expected [grant_user], got %v", got)
	}
}

func TestProject_UserViewerForbidden(t *testing.T) {
	if _, err := Project(snapshot(), RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestProject_MalformedRecord(t *testing.T) {
	users := append(snapshot(), user("bad", "owner", RequestNone))
	if _, err := Project(users, RoleSuperAdmin); !errors.Is(err, ErrInvalidUserRecord) {
		t.Fatalf("expected ErrInvalidUserRecord, got %v", err)
	}
}

func TestProject_EmptySnapshotEncodesEmptyLists(t *testing.T) {
	b, err := json.Marshal(mustProject(t, nil, RoleSuperAdmin))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{
		`"pendingAdmins":[]`,
		`"counts":{"users":0,"pending":0,"admins":0,"rejected":0,"superAdmins":0,"total":0}`,
	} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("expected %s in %s", want, b)
		}
	}
}

func TestRow_JSONIsFlat(t *testing.T) {
	vm := mustProject(t, []User{user("r1", RoleUser, RequestNone)}, RoleSuperAdmin)

	b, err := json.Marshal(vm.RegularUsers[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["_id"] != "r1" {
		t.Fatalf("expected flat _id, got %+v", decoded)
	}
	if !reflect.DeepEqual(decoded["actions"], []any{"grant_admin", "block"}) {
		t.Fatalf("unexpected actions: %v", decoded["actions"])
	}
	if _, leaked := decoded["PasswordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestApplyToSnapshot_RequestAdmin(t *testing.T) {
	before := mustProject(t, snapshot(), RoleSuperAdmin)
	after := mustProject(t, mustApply(t, snapshot(), KindRequestAdmin, "r1"), RoleSuperAdmin)

	if after.Counts.Pending != before.Counts.Pending+1 || after.Counts.Users != before.Counts.Users-1 {
		t.Fatalf("expected one user to move to pending: before %+v after %+v", before.Counts, after.Counts)
	}
	if !slices.Contains(ids(after.PendingAdmins), "r1") || slices.Contains(ids(after.RegularUsers), "r1") {
		t.Fatalf("r1 should be pending only")
	}
}

func TestApplyToSnapshot_RejectPendingConservesTotal(t *testing.T) {
	before := mustProject(t, snapshot(), RoleSuperAdmin)
	after := mustProject(t, mustApply(t, snapshot(), KindRejectPending, "p1"), RoleSuperAdmin)

	if after.Counts.Pending != before.Counts.Pending-1 || after.Counts.Rejected != before.Counts.Rejected+1 {
		t.Fatalf("expected pending -> rejected: before %+v after %+v", before.Counts, after.Counts)
	}
	if after.Counts.Total != before.Counts.Total {
		t.Fatalf("total changed from %d to %d", before.Counts.Total, after.Counts.Total)
	}
}

func TestApplyToSnapshot_ApproveMovesOnlyTarget(t *testing.T) {
	before := mustProject(t, snapshot(), RoleSuperAdmin)
	after := mustProject(t, mustApply(t, snapshot(), KindApprove, "p1"), RoleSuperAdmin)

	// Partitions keep input order.
	expectIDs(t, "admins", after.ActiveAdmins, "p1", "a1")
	expectIDs(t, "pending", after.PendingAdmins, "p2")
	expectIDs(t, "regular", after.RegularUsers, ids(before.RegularUsers)...)
	expectIDs(t, "rejected", after.RejectedUsers, ids(before.RejectedUsers)...)
	expectIDs(t, "superadmins", after.SuperAdmins, ids(before.SuperAdmins)...)
}

func TestApplyToSnapshot_InvalidLeavesInputUntouched(t *testing.T) {
	users := snapshot()
	if _, err := ApplyToSnapshot(users, KindApprove, "r1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if !reflect.DeepEqual(users, snapshot()) {
		t.Fatalf("input snapshot was mutated")
	}

	if _, err := ApplyToSnapshot(users, KindApprove, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
