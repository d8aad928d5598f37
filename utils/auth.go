package utils

import "slices"

// Permission levels
const (
	DeveloperPermission = "developer"
	AdminPermission     = "admin"
	GuestPermission     = "guest"
)

// CheckPermission returns the highest permission level of a member given their roles.
func CheckPermission(userRoleIDs []string, userID string, adminRoleIDs, developerUserIDs []string) string {
	if userID != "" && slices.Contains(developerUserIDs, userID) {
		return DeveloperPermission
	}
	for _, roleID := range userRoleIDs {
		if slices.Contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}
	return GuestPermission
}

// CanModerate reports whether the permission level may issue punishment commands.
func CanModerate(level string) bool {
	return level == DeveloperPermission || level == AdminPermission
}
