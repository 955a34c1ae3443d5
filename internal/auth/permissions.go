package auth

const (
	ScopeUsersView   = "users:view"
	ScopeUsersWrite  = "users:write"
	ScopeRolesManage = "roles:manage"
)

var BuiltinPermissions = []Permission{
	{Scope: ScopeUsersView, Description: "View user accounts"},
	{Scope: ScopeUsersWrite, Description: "Create and modify user accounts"},
	{Scope: ScopeRolesManage, Description: "Manage roles and role assignments"},
}
