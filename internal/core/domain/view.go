package domain

import "fmt"

// Row is a user as shown to a viewer, with the operations that viewer may
// invoke on it.
type Row struct {
	User
	Actions []TransitionKind `json:"actions"`
}

// Counts aggregates the snapshot by state. It always covers every user,
// including rows hidden from the viewer.
type Counts struct {
	Users       int `json:"users"`
	Pending     int `json:"pending"`
	Admins      int `json:"admins"`
	Rejected    int `json:"rejected"`
	SuperAdmins int `json:"superAdmins"`
	Total       int `json:"total"`
}

func (c *Counts) add(s State) {
	c.Total++
	switch s {
	case StateRegularUser:
		c.Users++
	case StatePendingAdminRequest:
		c.Pending++
	case StateActiveAdmin:
		c.Admins++
	case StateRejectedRequest:
		c.Rejected++
	case StateSuperAdmin:
		c.SuperAdmins++
	}
}

// ViewModel is the dashboard projection of a user snapshot for one viewer.
// Partitions keep input order.
type ViewModel struct {
	Viewer        Role   `json:"viewer"`
	RegularUsers  []Row  `json:"regularUsers"`
	PendingAdmins []Row  `json:"pendingAdmins"`
	ActiveAdmins  []Row  `json:"activeAdmins"`
	RejectedUsers []Row  `json:"rejectedUsers"`
	SuperAdmins   []Row  `json:"superAdmins"`
	Counts        Counts `json:"counts"`
}

// Partition returns the rows held for state s.
func (vm *ViewModel) Partition(s State) []Row {
	if p := vm.partition(s); p != nil {
		return *p
	}
	return nil
}

func (vm *ViewModel) partition(s State) *[]Row {
	switch s {
	case StateRegularUser:
		return &vm.RegularUsers
	case StatePendingAdminRequest:
		return &vm.PendingAdmins
	case StateActiveAdmin:
		return &vm.ActiveAdmins
	case StateRejectedRequest:
		return &vm.RejectedUsers
	case StateSuperAdmin:
		return &vm.SuperAdmins
	}
	return nil
}

// visibleTo reports whether viewer gets a row for u. Admin viewers only see
// plain users that are regular or rejected.
func visibleTo(u User, s State, viewer Role) bool {
	if viewer == RoleSuperAdmin {
		return true
	}
	return u.Role == RoleUser && (s == StateRegularUser || s == StateRejectedRequest)
}

// Project partitions users for viewer. Only admin and superadmin viewers have
// a dashboard; any malformed record fails the whole projection.
func Project(users []User, viewer Role) (*ViewModel, error) {
	if viewer != RoleAdmin && viewer != RoleSuperAdmin {
		return nil, fmt.Errorf("project view for role %q: %w", viewer, ErrForbidden)
	}

	vm := &ViewModel{
		Viewer:        viewer,
		RegularUsers:  []Row{},
		PendingAdmins: []Row{},
		ActiveAdmins:  []Row{},
		RejectedUsers: []Row{},
		SuperAdmins:   []Row{},
	}

	for _, u := range users {
		state, err := StateOf(u)
		if err != nil {
			return nil, fmt.Errorf("project view: %w", err)
		}
		vm.Counts.add(state)

		if !visibleTo(u, state, viewer) {
			continue
		}
		p := vm.partition(state)
		*p = append(*p, Row{User: u, Actions: AvailableActions(u, viewer)})
	}

	return vm, nil
}

// ApplyToSnapshot returns a copy of users with kind applied to the user
// identified by id, using the same rules as the backend.
func ApplyToSnapshot(users []User, kind TransitionKind, id string) ([]User, error) {
	out := make([]User, len(users))
	copy(out, users)

	for i := range out {
		if out[i].ID != id {
			continue
		}
		next, _, err := Apply(kind, out[i])
		if err != nil {
			return nil, err
		}
		out[i] = next
		return out, nil
	}
	return nil, fmt.Errorf("apply %s to %s: %w", kind, id, ErrUserNotFound)
}
