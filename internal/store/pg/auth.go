package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"authgate.io/internal/auth"
)

var _ auth.Store = (*Store)(nil)

const accountColumns = `id, username, email, display_name, password_hash, active, created_at, updated_at`

func scanAccount(row *sql.Row) (*auth.Account, error) {
	var (
		account auth.Account
		display sql.NullString
	)
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &display,
		&account.PasswordHash, &account.Active, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if display.Valid {
		account.DisplayName = display.String
	}
	return &account, nil
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username = $1`, username)
	return scanAccount(row)
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email = $1`, email)
	return scanAccount(row)
}

func (s *Store) FindAccountByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *Store) InsertAccount(ctx context.Context, account *auth.Account) error {
	row := s.db.QueryRowContext(ctx, `
		insert into accounts (username, email, display_name, password_hash, active)
		values ($1, $2, $3, $4, $5)
		returning id, created_at, updated_at
	`, account.Username, account.Email, account.DisplayName, account.PasswordHash, account.Active)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (s *Store) FindPermissionByScope(ctx context.Context, scope string) (*auth.Permission, error) {
	var perm auth.Permission
	err := s.db.QueryRowContext(ctx, `
		select id, scope, coalesce(description, '')
		from permissions
		where scope = $1
	`, scope).Scan(&perm.ID, &perm.Scope, &perm.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (s *Store) InsertPermission(ctx context.Context, perm *auth.Permission) error {
	err := s.db.QueryRowContext(ctx, `
		insert into permissions (scope, description)
		values ($1, $2)
		returning id
	`, perm.Scope, perm.Description).Scan(&perm.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: permission %s already exists", auth.ErrBadRequest, perm.Scope)
		}
		return err
	}
	return nil
}

func (s *Store) InsertRole(ctx context.Context, role *auth.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into roles (name, description)
		values ($1, $2)
		returning id
	`, role.Name, role.Description).Scan(&role.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: role %s already exists", auth.ErrBadRequest, role.Name)
		}
		return err
	}

	for _, perm := range role.Permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
		`, role.ID, perm.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteRoleByName(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from roles where name = $1`, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) FindRoleByID(ctx context.Context, id int64) (*auth.Role, error) {
	var role auth.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, '')
		from roles
		where id = $1
	`, id).Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *Store) AssignRoleToAccount(ctx context.Context, accountID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		insert into account_roles (account_id, role_id)
		values ($1, $2)
	`, accountID, roleID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return fmt.Errorf("%w: role already assigned", auth.ErrBadRequest)
			case pgErrForeignKeyViolation:
				return auth.ErrAccountNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) ListRolesWithPermissionsForAccount(ctx context.Context, accountID int64) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, coalesce(r.description, ''),
		       p.id, p.scope, coalesce(p.description, '')
		from account_roles ar
		join roles r on r.id = ar.role_id
		left join role_permissions rp on rp.role_id = r.id
		left join permissions p on p.id = rp.permission_id
		where ar.account_id = $1
		order by r.name, p.scope
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []auth.Role
		index  = map[int64]int{}
	)
	for rows.Next() {
		var (
			role      auth.Role
			permID    sql.NullInt64
			permScope sql.NullString
			permDesc  sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &permID, &permScope, &permDesc); err != nil {
			return nil, err
		}
		pos, ok := index[role.ID]
		if !ok {
			pos = len(result)
			index[role.ID] = pos
			result = append(result, role)
		}
		if permID.Valid {
			result[pos].Permissions = append(result[pos].Permissions, auth.Permission{
				ID:          permID.Int64,
				Scope:       permScope.String,
				Description: permDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) AccountScopes(ctx context.Context, accountID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct p.scope
		from account_roles ar
		join role_permissions rp on rp.role_id = ar.role_id
		join permissions p on p.id = rp.permission_id
		where ar.account_id = $1
		order by p.scope
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scopes, nil
}

func (s *Store) InsertRevokedToken(ctx context.Context, tok *auth.RevokedToken) error {
	// Racing revocations of the same jti collapse into already-revoked.
	_, err := s.db.ExecContext(ctx, `
		insert into revoked_tokens (token_id, account_id, expires_at, revoked_at)
		values ($1, $2, $3, $4)
		on conflict (token_id) do nothing
	`, tok.TokenID, tok.AccountID, tok.ExpiresAt, tok.RevokedAt)
	return err
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists (select 1 from revoked_tokens where token_id = $1)`, jti,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
