package auth

// RoleValidator defines the interface for role-based access control validation
type RoleValidator interface {
	// HasRole checks if the user has a specific role
	HasRole(role string) bool

	// IsAtLeast checks if the user's role is at least the minimum required role
	IsAtLeast(minRole string) bool
}

var roleHierarchy = map[UserRole]int{
	RoleUser:       0,
	RoleCSM:        1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// MayImpersonate reports whether this role outranks the target role.
// Equal-or-higher privileged targets are never impersonable.
func (r UserRole) MayImpersonate(target UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	targetLevel, exists := roleHierarchy[target]
	if !exists {
		return false
	}

	return currentLevel > targetLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleCSM,
		RoleAdmin,
		RoleSuperadmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// DefaultImpersonatorRoles returns the staff roles allowed to start an
// impersonation session. The privilege ordering still applies: a csm can
// only reach plain users.
func DefaultImpersonatorRoles() []UserRole {
	return []UserRole{RoleSuperadmin, RoleAdmin, RoleCSM}
}
