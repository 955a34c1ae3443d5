package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService mints and decodes the access and refresh tokens issued by
// the orchestrator. The two kinds are structurally distinguished by the
// token_type claim; callers must check it after decoding.
type TokenService struct {
	codec TokenCodec
	now   func() time.Time
}

// TokenServiceOption configures TokenService behavior.
type TokenServiceOption func(*TokenService)

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewTokenService(codec TokenCodec, opts ...TokenServiceOption) (*TokenService, error) {
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	s := &TokenService{codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateAccessToken signs a short-lived token carrying the subject's
// permission scopes.
func (s *TokenService) CreateAccessToken(username string, scopes []string, ttl time.Duration) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("auth: username is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}
	now := s.now().UTC()
	return s.codec.Encode(&Claims{
		TokenType: TokenTypeAccess,
		Perms:     strings.Join(scopes, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

// CreateRefreshToken signs a longer-lived token with a unique jti so it can
// be individually revoked.
func (s *TokenService) CreateRefreshToken(username string, ttl time.Duration) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("auth: username is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}
	now := s.now().UTC()
	return s.codec.Encode(&Claims{
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
}

// DecodeToken verifies a token and returns its claims. Codec failures of
// any kind collapse into ErrUnauthorized so callers cannot distinguish a
// bad signature from an expired token.
func (s *TokenService) DecodeToken(token string) (*Claims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
