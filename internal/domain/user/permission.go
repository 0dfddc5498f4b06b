package user

type Permission string

const (
	// Attendance recap exports
	PermissionAttendanceExport Permission = "attendance.export"
	PermissionExportHistory    Permission = "export.history"

	// Discipline records
	PermissionViolationView   Permission = "violation.view"
	PermissionViolationManage Permission = "violation.manage"
	PermissionSanctionManage  Permission = "sanction.manage"

	// Master data
	PermissionMasterManage Permission = "master.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionAttendanceExport,
		PermissionExportHistory,
		PermissionViolationView,
		PermissionViolationManage,
		PermissionSanctionManage,
		PermissionMasterManage,
	},
	RoleCounselor: {
		PermissionAttendanceExport,
		PermissionExportHistory,
		PermissionViolationView,
		PermissionViolationManage,
		PermissionSanctionManage,
	},
	RoleTeacher: {
		PermissionViolationView,
		PermissionViolationManage,
	},
	RoleStudent: {
		// Students only see their own records through the backend API
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
