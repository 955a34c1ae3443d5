package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store honoring the interface's error contract.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	accounts     map[int64]*Account
	perms        map[int64]*Permission
	roles        map[int64]*Role
	accountRoles map[int64]map[int64]struct{}
	revoked      map[string]*RevokedToken
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[int64]*Account),
		perms:        make(map[int64]*Permission),
		roles:        make(map[int64]*Role),
		accountRoles: make(map[int64]map[int64]struct{}),
		revoked:      make(map[string]*RevokedToken),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) FindAccountByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			clone := *a
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindAccountByID(_ context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memStore) InsertAccount(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == account.Username || a.Email == account.Email {
			return ErrDuplicateAccount
		}
	}
	account.ID = m.id()
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	clone := *account
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memStore) FindPermissionByScope(_ context.Context, scope string) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Scope == scope {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) InsertPermission(_ context.Context, perm *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Scope == perm.Scope {
			return fmt.Errorf("%w: permission %s already exists", ErrBadRequest, perm.Scope)
		}
	}
	perm.ID = m.id()
	clone := *perm
	m.perms[perm.ID] = &clone
	return nil
}

func (m *memStore) InsertRole(_ context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == role.Name {
			return fmt.Errorf("%w: role %s already exists", ErrBadRequest, role.Name)
		}
	}
	role.ID = m.id()
	clone := *role
	clone.Permissions = append([]Permission(nil), role.Permissions...)
	m.roles[role.ID] = &clone
	return nil
}

func (m *memStore) DeleteRoleByName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.roles {
		if r.Name == name {
			delete(m.roles, id)
			for _, assigned := range m.accountRoles {
				delete(assigned, id)
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) FindRoleByID(_ context.Context, id int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) AssignRoleToAccount(_ context.Context, accountID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	if _, ok := m.roles[roleID]; !ok {
		return ErrAccountNotFound
	}
	assigned, ok := m.accountRoles[accountID]
	if !ok {
		assigned = make(map[int64]struct{})
		m.accountRoles[accountID] = assigned
	}
	if _, dup := assigned[roleID]; dup {
		return fmt.Errorf("%w: role already assigned", ErrBadRequest)
	}
	assigned[roleID] = struct{}{}
	return nil
}

func (m *memStore) ListRolesWithPermissionsForAccount(_ context.Context, accountID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Role
	for roleID := range m.accountRoles[accountID] {
		if r, ok := m.roles[roleID]; ok {
			clone := *r
			clone.Permissions = append([]Permission(nil), r.Permissions...)
			result = append(result, clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memStore) AccountScopes(_ context.Context, accountID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for roleID := range m.accountRoles[accountID] {
		r, ok := m.roles[roleID]
		if !ok {
			continue
		}
		for _, p := range r.Permissions {
			seen[p.Scope] = struct{}{}
		}
	}
	scopes := make([]string, 0, len(seen))
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes, nil
}

func (m *memStore) InsertRevokedToken(_ context.Context, tok *RevokedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.revoked[tok.TokenID]; dup {
		return nil
	}
	clone := *tok
	m.revoked[tok.TokenID] = &clone
	return nil
}

func (m *memStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

var _ Store = (*memStore)(nil)
