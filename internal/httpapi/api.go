package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"authgate.io/internal/auth"
	"authgate.io/internal/obs"
)

// AuthService is the orchestrator surface the HTTP layer depends on.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.Profile, error)
	Authenticate(ctx context.Context, username, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, accountID int64) error
	CurrentUser(ctx context.Context, accessToken string, requiredScopes ...string) (*auth.Account, error)
}

// RBACService is the role administration surface the HTTP layer depends on.
type RBACService interface {
	CreateRole(ctx context.Context, name, description string, scopes []string) (auth.Role, error)
	DeleteRole(ctx context.Context, name string) error
	AssignRole(ctx context.Context, accountID, roleID int64) error
	AccountRoles(ctx context.Context, accountID int64) ([]auth.Role, error)
}

const (
	credentialBurst     = 10
	credentialPerSecond = 5

	maxRequestBody = 1 << 20
)

// ReadyProbe checks backing-store readiness for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       AuthService
	rbac       RBACService
	readyProbe ReadyProbe
	version    string
}

func New(authSvc AuthService, rbacSvc RBACService, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		rbac:       rbacSvc,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	// Credential endpoints carry a per-IP limiter to slow guessing.
	a.mux.Handle("/v1/auth/register", RateLimit(http.HandlerFunc(a.handleRegister), credentialBurst, credentialPerSecond))
	a.mux.Handle("/v1/auth/token", RateLimit(http.HandlerFunc(a.handleToken), credentialBurst, credentialPerSecond))
	a.mux.Handle("/v1/auth/refresh", RateLimit(http.HandlerFunc(a.handleRefresh), credentialBurst, credentialPerSecond))
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/users/me", a.handleMe)

	a.mux.HandleFunc("/v1/roles", a.handleRolesCollection)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the instrumented root handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(RequestID(LoggingJSON(SecurityHeaders(MaxBodyBytes(a.mux, maxRequestBody)))))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authgate-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError maps the domain error taxonomy onto HTTP statuses.
// Unauthorized responses carry a bearer challenge; scope failures include
// the unmet scopes as the challenge hint.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var scopeErr *auth.ScopeError
	switch {
	case errors.As(err, &scopeErr):
		w.Header().Set("WWW-Authenticate",
			fmt.Sprintf("Bearer scope=%q", strings.Join(scopeErr.Missing, " ")))
		writeError(w, r, http.StatusUnauthorized, scopeErr.Error())
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeError(w, r, http.StatusConflict, "account already registered")
	case errors.Is(err, auth.ErrPasswordMismatch):
		writeError(w, r, http.StatusConflict, "password confirmation does not match")
	case errors.Is(err, auth.ErrAccountNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
	case errors.Is(err, auth.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, auth.ErrBadRequest):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
