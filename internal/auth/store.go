package auth

import "context"

// Store describes the persistence operations the auth subsystem requires.
// Implementations return ErrNotFound for absent rows; uniqueness violations
// map to the operation-specific errors documented per method.
type Store interface {
	FindAccountByUsername(ctx context.Context, username string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindAccountByID(ctx context.Context, id int64) (*Account, error)
	// InsertAccount persists a new account and fills in its generated ID.
	// A duplicate email or username yields ErrDuplicateAccount.
	InsertAccount(ctx context.Context, account *Account) error

	FindPermissionByScope(ctx context.Context, scope string) (*Permission, error)
	InsertPermission(ctx context.Context, perm *Permission) error
	// InsertRole persists the role together with its permission
	// associations. A duplicate role name yields ErrBadRequest.
	InsertRole(ctx context.Context, role *Role) error
	DeleteRoleByName(ctx context.Context, name string) (int64, error)
	FindRoleByID(ctx context.Context, id int64) (*Role, error)
	// AssignRoleToAccount adds the association; assigning an already
	// assigned role yields ErrBadRequest.
	AssignRoleToAccount(ctx context.Context, accountID, roleID int64) error
	ListRolesWithPermissionsForAccount(ctx context.Context, accountID int64) ([]Role, error)
	// AccountScopes returns the union of permission scopes across all the
	// account's roles.
	AccountScopes(ctx context.Context, accountID int64) ([]string, error)

	// InsertRevokedToken records a refresh token revocation. Racing inserts
	// for the same jti are treated as already-revoked, not as an error.
	InsertRevokedToken(ctx context.Context, tok *RevokedToken) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}
