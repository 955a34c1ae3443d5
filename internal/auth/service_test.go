package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, store Store, opts ...ServiceOption) *Service {
	t.Helper()
	tokens := newTokenService(t)
	svc, err := NewService(store, NewBcryptHasher(bcrypt.MinCost), tokens, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func registerAlice(t *testing.T, svc *Service) Profile {
	t.Helper()
	profile, err := svc.Register(context.Background(), RegisterRequest{
		Username:        "alice",
		Email:           "Alice@Example.com",
		DisplayName:     "Alice",
		Password:        "wonderland",
		ConfirmPassword: "wonderland",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return profile
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	profile := registerAlice(t, svc)
	if profile.ID == 0 {
		t.Fatal("expected generated account id")
	}
	if profile.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", profile.Email)
	}

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", pair.TokenType)
	}
}

func TestRegisterValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	registerAlice(t, svc)

	cases := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{
			"duplicate email",
			RegisterRequest{Username: "alice2", Email: "ALICE@example.com", Password: "pw", ConfirmPassword: "pw"},
			ErrDuplicateAccount,
		},
		{
			"password mismatch",
			RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "one", ConfirmPassword: "two"},
			ErrPasswordMismatch,
		},
		{
			"empty password",
			RegisterRequest{Username: "bob", Email: "bob@example.com"},
			ErrPasswordMismatch,
		},
		{
			"missing username",
			RegisterRequest{Email: "bob@example.com", Password: "pw", ConfirmPassword: "pw"},
			ErrBadRequest,
		},
		{
			"malformed email",
			RegisterRequest{Username: "bob", Email: "not-an-email", Password: "pw", ConfirmPassword: "pw"},
			ErrBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAuthenticateFailures(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	if _, err := svc.Authenticate(context.Background(), "nobody", "pw"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	store.accounts[profile.ID].Active = false
	if _, err := svc.Authenticate(context.Background(), "alice", "wonderland"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for inactive account, got %v", err)
	}
}

func TestAccessTokenCarriesAccountScopes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	rbac, err := NewRBACService(store)
	if err != nil {
		t.Fatalf("new rbac: %v", err)
	}
	role, err := rbac.CreateRole(context.Background(), "viewer", "read only", []string{ScopeUsersView})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := rbac.AssignRole(context.Background(), profile.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	claims, err := svc.tokens.DecodeToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("decode access token: %v", err)
	}
	if _, ok := claims.ScopeSet()[ScopeUsersView]; !ok {
		t.Fatalf("expected %s in access token, got %q", ScopeUsersView, claims.Perms)
	}

	account, err := svc.CurrentUser(context.Background(), pair.AccessToken, ScopeUsersView)
	if err != nil {
		t.Fatalf("current user with scope: %v", err)
	}
	if account.Username != "alice" {
		t.Fatalf("unexpected account %q", account.Username)
	}

	_, err = svc.CurrentUser(context.Background(), pair.AccessToken, ScopeRolesManage)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("expected ScopeError, got %v", err)
	}
}

func TestRefreshRotatesAndRevokes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}

	// Replaying the rotated-out token must fail.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on replay, got %v", err)
	}

	// The new token remains valid.
	if _, err := svc.Refresh(context.Background(), next.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshInactiveAccount(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	store.accounts[profile.ID].Active = false
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := svc.Logout(context.Background(), pair.RefreshToken, profile.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	// Revocation is idempotent.
	if err := svc.Logout(context.Background(), pair.RefreshToken, profile.ID); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.AccessToken, profile.ID); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for access token, got %v", err)
	}
}

func TestCurrentUserRejectsRefreshToken(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.CurrentUser(context.Background(), pair.RefreshToken); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := svc.CurrentUser(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCurrentUserInactiveAccount(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	store.accounts[profile.ID].Active = false
	if _, err := svc.CurrentUser(context.Background(), pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for inactive account, got %v", err)
	}
}

func TestRefreshRederivesScopes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	profile := registerAlice(t, svc)

	rbac, err := NewRBACService(store)
	if err != nil {
		t.Fatalf("new rbac: %v", err)
	}
	role, err := rbac.CreateRole(context.Background(), "admin", "", []string{ScopeRolesManage})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := rbac.AssignRole(context.Background(), profile.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	pair, err := svc.Authenticate(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// A withdrawn role must be reflected at refresh, not only at login.
	if err := rbac.DeleteRole(context.Background(), "admin"); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.tokens.DecodeToken(next.AccessToken)
	if err != nil {
		t.Fatalf("decode access token: %v", err)
	}
	if claims.Perms != "" {
		t.Fatalf("expected empty perms after role removal, got %q", claims.Perms)
	}
}

func TestServiceTTLOptions(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, WithAccessTTL(time.Minute), WithRefreshTTL(time.Hour))
	if svc.accessTTL != time.Minute || svc.refreshTTL != time.Hour {
		t.Fatalf("options not applied: %v %v", svc.accessTTL, svc.refreshTTL)
	}

	// Non-positive values keep defaults.
	def := newTestService(t, store, WithAccessTTL(0), WithRefreshTTL(-time.Hour))
	if def.accessTTL != defaultAccessTTL || def.refreshTTL != defaultRefreshTTL {
		t.Fatalf("defaults not kept: %v %v", def.accessTTL, def.refreshTTL)
	}
}
