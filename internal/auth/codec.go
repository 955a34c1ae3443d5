package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the token payload used across the service. Subject carries the
// username, ID the jti of refresh tokens, and Perms the comma-joined scope
// list of access tokens.
type Claims struct {
	TokenType string `json:"token_type"`
	Perms     string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// ScopeSet splits the perms claim into a set of scope strings.
func (c *Claims) ScopeSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, scope := range strings.Split(c.Perms, ",") {
		if scope == "" {
			continue
		}
		set[scope] = struct{}{}
	}
	return set
}

// TokenCodec signs and verifies compact signed tokens. Decode fails with
// ErrInvalidToken when the signature is invalid, the token is malformed, or
// it is expired.
type TokenCodec interface {
	Encode(claims *Claims) (string, error)
	Decode(token string) (*Claims, error)
}

type jwtCodec struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
}

// NewJWTCodec builds a codec for the configured HMAC algorithm (HS256,
// HS384 or HS512). Key and algorithm come from configuration, never from
// code.
func NewJWTCodec(secret, algorithm, issuer string) (TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: secret key is required")
	}
	method := jwt.GetSigningMethod(strings.TrimSpace(algorithm))
	if method == nil {
		return nil, fmt.Errorf("auth: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	return &jwtCodec{
		secret: []byte(secret),
		method: method,
		issuer: strings.TrimSpace(issuer),
	}, nil
}

func (c *jwtCodec) Encode(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("auth: claims are required")
	}
	if c.issuer != "" && claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *jwtCodec) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != c.method {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
