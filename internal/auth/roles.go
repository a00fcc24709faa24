package auth

import "github.com/zerotrust/platform/internal/domain"

// Role groups for the admin surface.
var (
	UserAdminRoles   = []domain.Role{domain.RoleSuperAdmin}
	DeviceAdminRoles = []domain.Role{domain.RoleAdmin, domain.RoleIT}
	AuditRoles       = []domain.Role{domain.RoleIT}
)

// HasRole reports whether role is one of allowed. SUPERADMIN passes every check.
func HasRole(role domain.Role, allowed ...domain.Role) bool {
	if role == domain.RoleSuperAdmin {
		return true
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
