package domain

import "time"

// PendingCallbackToken is the access token value returned by Authenticate
// while the authorization code has not been exchanged yet. It is never a
// usable credential.
const PendingCallbackToken = "pending_callback"

// DefaultTokenType is used when a vendor omits token_type.
const DefaultTokenType = "Bearer"

// OAuthToken represents stored OAuth credentials.
type OAuthToken struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Scope is the granted scope as reported by the vendor.
	Scope string `json:"scope,omitempty"`
	// ExpiresIn is the lifetime in seconds reported by the vendor.
	// Zero means the vendor did not report one.
	ExpiresIn int64 `json:"expires_in,omitempty"`
	// ExpiresAt is when the access token expires.
	// Zero means the token never expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired returns true if the token has expired.
func (t *OAuthToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the token is expired at the given instant.
// A token expires exactly at ExpiresAt.
func (t *OAuthToken) IsExpiredAt(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// IsPending returns true for the placeholder returned before the callback.
func (t *OAuthToken) IsPending() bool {
	return t.AccessToken == PendingCallbackToken
}

// WithExpiryFrom sets ExpiresAt from ExpiresIn relative to now.
// Tokens without ExpiresIn keep a zero ExpiresAt.
func (t *OAuthToken) WithExpiryFrom(now time.Time) *OAuthToken {
	if t.ExpiresIn > 0 {
		t.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return t
}
