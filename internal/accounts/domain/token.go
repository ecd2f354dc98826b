package domain

import "time"

// TokenPair is what a successful login or refresh returns: a JWT
// access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access token lifetime in seconds
}

// RefreshToken is the stored record behind an opaque refresh token.
// Only the SHA-256 fingerprint of the token is persisted; rotation
// deletes the consumed row instead of flagging it.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
