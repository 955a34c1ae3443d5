package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	bearerTokenType = "bearer"
)

// Service is the authentication orchestrator: it verifies credentials,
// issues and rotates token pairs, revokes refresh tokens and resolves the
// current user from a bearer token.
type Service struct {
	store  Store
	hasher Hasher
	tokens *TokenService

	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the orchestrator from its injected collaborators.
func NewService(store Store, hasher Hasher, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if hasher == nil {
		return nil, errors.New("auth: hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new active account and returns its public projection.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Profile, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return Profile{}, ErrBadRequest
	}

	if _, err := s.store.FindAccountByEmail(ctx, email); err == nil {
		return Profile{}, ErrDuplicateAccount
	} else if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	if req.Password == "" || req.Password != req.ConfirmPassword {
		return Profile{}, ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Profile{}, err
	}
	account := &Account{
		Username:     username,
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:          account.ID,
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}, nil
}

// Authenticate verifies a username/password pair and mints a fresh token
// pair carrying the account's effective permission scopes.
func (s *Service) Authenticate(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, ErrUnauthorized
	}
	account, err := s.store.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrAccountNotFound
		}
		return TokenPair{}, err
	}
	if !account.Active {
		return TokenPair{}, ErrUnauthorized
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return TokenPair{}, ErrUnauthorized
	}
	return s.mintPair(ctx, account)
}

// Refresh exchanges a refresh token for a new pair. Scopes are re-derived
// from the account's current roles, so a withdrawn permission is reflected
// here and not only at next login. The presented token's jti is revoked as
// part of rotation to prevent replay.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.DecodeToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return TokenPair{}, ErrBadRequest
	}
	jti := claims.ID
	if jti == "" || strings.TrimSpace(claims.Subject) == "" {
		return TokenPair{}, ErrUnauthorized
	}
	revoked, err := s.store.IsTokenRevoked(ctx, jti)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, ErrUnauthorized
	}

	account, err := s.store.FindAccountByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrAccountNotFound
		}
		return TokenPair{}, err
	}
	if !account.Active {
		return TokenPair{}, ErrUnauthorized
	}

	// Rotation revokes the presented token before the new pair exists, so
	// a crash between the two steps can never leave both tokens usable.
	if err := s.revokeClaims(ctx, claims, account.ID); err != nil {
		return TokenPair{}, err
	}
	return s.mintPair(ctx, account)
}

// Logout revokes the presented refresh token for the acting account. A
// token that was already revoked is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string, accountID int64) error {
	claims, err := s.tokens.DecodeToken(refreshToken)
	if err != nil {
		return err
	}
	if claims.TokenType != TokenTypeRefresh {
		return ErrBadRequest
	}
	if claims.ID == "" {
		return ErrUnauthorized
	}
	return s.revokeClaims(ctx, claims, accountID)
}

// CurrentUser resolves the account behind a bearer access token. When
// requiredScopes are given the authorization engine is consulted as well.
func (s *Service) CurrentUser(ctx context.Context, accessToken string, requiredScopes ...string) (*Account, error) {
	claims, err := s.tokens.DecodeToken(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrBadRequest
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrUnauthorized
	}
	account, err := s.store.FindAccountByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !account.Active {
		return nil, ErrUnauthorized
	}
	if len(requiredScopes) > 0 {
		if err := AuthorizeScopes(account, claims, requiredScopes...); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *Service) mintPair(ctx context.Context, account *Account) (TokenPair, error) {
	scopes, err := s.store.AccountScopes(ctx, account.ID)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := s.tokens.CreateAccessToken(account.Username, scopes, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.CreateRefreshToken(account.Username, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerTokenType,
	}, nil
}

func (s *Service) revokeClaims(ctx context.Context, claims *Claims, accountID int64) error {
	expiresAt := s.now().UTC()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.store.InsertRevokedToken(ctx, &RevokedToken{
		TokenID:   claims.ID,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		RevokedAt: s.now().UTC(),
	})
}
