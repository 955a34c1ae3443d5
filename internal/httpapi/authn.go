package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authgate.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// requireUser resolves the caller from the Authorization header, enforcing
// the given scopes when present. On success the returned request carries
// the account and raw token in its context; on failure the response is
// already written and ok is false.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Account, *http.Request, bool) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return nil, r, false
	}
	account, err := a.auth.CurrentUser(r.Context(), token, scopes...)
	if err != nil {
		handleAuthError(w, r, err)
		return nil, r, false
	}
	ctx := auth.ContextWithAccount(r.Context(), account)
	ctx = auth.ContextWithToken(ctx, token)
	return account, r.WithContext(ctx), true
}
