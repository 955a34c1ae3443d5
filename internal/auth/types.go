package auth

import "time"

// Account is a login identity. Inactive accounts fail every authentication
// and authorization check regardless of token validity.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public projection of an account. It never carries the
// password hash.
type Profile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Role groups permissions under a unique name.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Permission is a single capability identified by a scope string such as
// "users:view". Scopes are case-sensitive exact-match tokens.
type Permission struct {
	ID          int64  `json:"id"`
	Scope       string `json:"scope"`
	Description string `json:"description,omitempty"`
}

// RevokedToken records an individually revoked refresh token. Once its
// natural expiry passes the record is safely prunable.
type RevokedToken struct {
	TokenID   string    `json:"token_id"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `json:"revoked_at"`
}

// TokenPair is the result of a successful authentication or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	DisplayName     string `json:"display_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
