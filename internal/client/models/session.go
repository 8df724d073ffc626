package models

import "time"

// SessionUser is the auth user embedded in a session. UserMetadata holds the
// free-form data passed at sign-up (full_name, avatar_url).
type SessionUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Session is the token bundle issued by the auth service. Stores only care
// whether one is present; the gateway uses the tokens and expiry.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         SessionUser `json:"user"`
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (s Session) Expiry() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the token expires before now+margin.
// Sessions without a known expiry never expire.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(margin).Before(exp)
}

// IdentityFromSession builds a minimal Identity from session metadata. Used
// when the users row is missing or could not be fetched.
func IdentityFromSession(s Session) Identity {
	id := Identity{
		ID:        s.User.ID,
		Email:     s.User.Email,
		FullName:  metadataString(s.User.UserMetadata, "full_name"),
		AvatarURL: metadataString(s.User.UserMetadata, "avatar_url"),
		CreatedAt: s.User.CreatedAt,
		UpdatedAt: s.User.UpdatedAt,
	}
	if id.UpdatedAt.IsZero() {
		id.UpdatedAt = id.CreatedAt
	}
	return id
}

func metadataString(md map[string]any, key string) *string {
	v, ok := md[key].(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}
