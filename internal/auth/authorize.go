package auth

import (
	"fmt"
	"strings"
)

// ScopeError reports an authorization failure together with the unmet
// scopes, so the transport layer can build a challenge hint.
type ScopeError struct {
	Missing []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("auth: missing required scope(s): %s", strings.Join(e.Missing, ", "))
}

func (e *ScopeError) Unwrap() error { return ErrUnauthorized }

// AuthorizeScopes checks a decoded access token against the scopes an
// operation requires. Every required scope must be present in the token's
// perms set (logical AND, exact string match) and the subject account must
// be active. A deactivated account fails even with a valid, unexpired
// token.
func AuthorizeScopes(account *Account, claims *Claims, required ...string) error {
	if account == nil || !account.Active {
		return ErrUnauthorized
	}
	if claims == nil {
		return ErrUnauthorized
	}
	granted := claims.ScopeSet()
	var missing []string
	for _, scope := range required {
		if _, ok := granted[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	if len(missing) > 0 {
		return &ScopeError{Missing: missing}
	}
	return nil
}
