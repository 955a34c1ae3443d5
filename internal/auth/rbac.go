package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RBACService manages roles, permissions and their assignment to accounts.
type RBACService struct {
	store Store
}

func NewRBACService(store Store) (*RBACService, error) {
	if store == nil {
		return nil, errors.New("auth: rbac store is required")
	}
	return &RBACService{store: store}, nil
}

// CreateRole creates a role with the given permission scopes. Existing
// permission rows are reused by scope; missing ones are created first.
func (s *RBACService) CreateRole(ctx context.Context, name, description string, scopes []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrBadRequest)
	}
	perms := make([]Permission, 0, len(scopes))
	for _, scope := range dedupeScopes(scopes) {
		perm, err := s.ensurePermission(ctx, scope)
		if err != nil {
			return Role{}, err
		}
		perms = append(perms, perm)
	}
	role := &Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: perms,
	}
	if err := s.store.InsertRole(ctx, role); err != nil {
		return Role{}, err
	}
	return *role, nil
}

// DeleteRole removes a role by name. A role that does not exist is a bad
// request, mirroring the zero-rows-affected contract of the store.
func (s *RBACService) DeleteRole(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: role name is required", ErrBadRequest)
	}
	affected, err := s.store.DeleteRoleByName(ctx, name)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: role %s not found", ErrBadRequest, name)
	}
	return nil
}

// AssignRole attaches a role to an account. Assignment is not idempotent:
// assigning an already assigned role fails with ErrBadRequest.
func (s *RBACService) AssignRole(ctx context.Context, accountID, roleID int64) error {
	if _, err := s.store.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if _, err := s.store.FindRoleByID(ctx, roleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return s.store.AssignRoleToAccount(ctx, accountID, roleID)
}

// AccountRoles returns the account's roles, each with its nested
// permissions.
func (s *RBACService) AccountRoles(ctx context.Context, accountID int64) ([]Role, error) {
	if _, err := s.store.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.store.ListRolesWithPermissionsForAccount(ctx, accountID)
}

// EnsureBuiltinPermissions creates any predefined permission rows that do
// not exist yet.
func (s *RBACService) EnsureBuiltinPermissions(ctx context.Context) error {
	for _, builtin := range BuiltinPermissions {
		if _, err := s.ensurePermission(ctx, builtin.Scope); err != nil {
			return err
		}
	}
	return nil
}

func (s *RBACService) ensurePermission(ctx context.Context, scope string) (Permission, error) {
	perm, err := s.store.FindPermissionByScope(ctx, scope)
	if err == nil {
		return *perm, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Permission{}, err
	}
	created := &Permission{Scope: scope}
	if err := s.store.InsertPermission(ctx, created); err != nil {
		return Permission{}, err
	}
	return *created, nil
}

func dedupeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	result := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		result = append(result, scope)
	}
	return result
}
