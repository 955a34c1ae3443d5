package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"authgate.io/internal/audit"
	"authgate.io/internal/auth"
)

type createRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

func (a *API) handleRolesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_, r, ok := a.requireUser(w, r, auth.ScopeRolesManage)
	if !ok {
		return
	}
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), req.Name, req.Description, req.Scopes)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.created", map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.Name))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	_, r, ok := a.requireUser(w, r, auth.ScopeRolesManage)
	if !ok {
		return
	}
	if err := a.rbac.DeleteRole(r.Context(), name); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.deleted", map[string]any{
		"name": name,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAccountScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "roles" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	accountID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "account id must be an integer")
		return
	}

	switch r.Method {
	case http.MethodPost:
		a.assignAccountRole(w, r, accountID)
	case http.MethodGet:
		a.listAccountRoles(w, r, accountID)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) assignAccountRole(w http.ResponseWriter, r *http.Request, accountID int64) {
	_, r, ok := a.requireUser(w, r, auth.ScopeRolesManage)
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RoleID <= 0 {
		writeError(w, r, http.StatusBadRequest, "role_id is required")
		return
	}
	if err := a.rbac.AssignRole(r.Context(), accountID, req.RoleID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.assigned", map[string]any{
		"account_id": accountID,
		"role_id":    req.RoleID,
	})
	w.WriteHeader(http.StatusCreated)
}

func (a *API) listAccountRoles(w http.ResponseWriter, r *http.Request, accountID int64) {
	_, r, ok := a.requireUser(w, r, auth.ScopeUsersView)
	if !ok {
		return
	}
	roles, err := a.rbac.AccountRoles(r.Context(), accountID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if roles == nil {
		roles = []auth.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": accountID,
		"roles":      roles,
	})
}
