package enums

import "fmt"

// UserRole defines what an account is allowed to do.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleManager  UserRole = "manager"
	UserRoleOperator UserRole = "operator"
	UserRoleViewer   UserRole = "viewer"
	UserRoleCustomer UserRole = "customer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRoleOperator,
	UserRoleViewer,
	UserRoleCustomer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// CanCreate reports whether the role may create records.
func (r UserRole) CanCreate() bool {
	return r == UserRoleAdmin || r == UserRoleManager || r == UserRoleOperator
}

// CanUpdate reports whether the role may edit records.
func (r UserRole) CanUpdate() bool {
	return r == UserRoleAdmin || r == UserRoleManager || r == UserRoleOperator
}

// CanDelete reports whether the role may delete records.
func (r UserRole) CanDelete() bool {
	return r == UserRoleAdmin || r == UserRoleManager
}

// CanManageUsers reports whether the role may administer accounts.
func (r UserRole) CanManageUsers() bool {
	return r == UserRoleAdmin
}
