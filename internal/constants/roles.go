package constants

const (
	Superadmin = "superadmin"
	Admin      = "admin"
	Manager    = "manager"
	Member     = "member"
	Viewer     = "viewer"
)

// ValidRoles is the set of allowed values for a user's role.
var ValidRoles = []string{Viewer, Member, Manager, Admin, Superadmin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CanManageOthersSplits reports whether role may edit splits on deals it does not own.
func CanManageOthersSplits(role string) bool {
	return role == Manager || role == Admin || role == Superadmin
}
