package lending

import "fmt"

// Role is the closed set of patron roles.
//
// The engine itself never acts on roles; callers are expected to gate
// privileged operations (catalog edits, patron management) on RoleStaff
// before invoking them.
type Role int

const (
	RoleRegular Role = iota
	RoleStaff
)

const (
	roleRegularString = "regular"
	roleStaffString   = "staff"
)

// String provides the canonical storage representation of a Role.
func (r Role) String() string {
	switch r {
	case RoleRegular:
		return roleRegularString
	case RoleStaff:
		return roleStaffString
	default:
		return "unknown"
	}
}

// ParseRole converts a stored role string back into a Role.
func ParseRole(value string) (Role, error) {
	switch value {
	case roleRegularString:
		return RoleRegular, nil
	case roleStaffString:
		return RoleStaff, nil
	default:
		return RoleRegular, fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// Patron represents a library member.
//
// The lending engine only ever reads patrons: it checks existence before
// creating a loan and derives the active-loan count from the loan ledger.
type Patron struct {
	ID    PatronIDInt
	Name  string
	Email string
	Role  Role
}
