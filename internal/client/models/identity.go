// Package models defines the client-side entities mirrored from the remote
// tables (users, messages, tasks, moods) and the auth session.
package models

import (
	"strings"
	"time"
)

// Identity is the authenticated user's profile row in the users table.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewIdentity is the row inserted into users right after sign-up.
type NewIdentity struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// ProfilePatch is a partial update of the profile row. A FullName that is
// blank after trimming clears the column.
type ProfilePatch struct {
	FullName  *string
	AvatarURL *string
}

// Columns returns the patch as column → value, with nil meaning SQL NULL.
func (p ProfilePatch) Columns() map[string]any {
	cols := make(map[string]any, 2)
	if p.FullName != nil {
		cols["full_name"] = blankToNil(*p.FullName)
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = blankToNil(*p.AvatarURL)
	}
	return cols
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.FullName == nil && p.AvatarURL == nil
}

// Apply merges the patch into id and returns the result.
func (p ProfilePatch) Apply(id Identity) Identity {
	if p.FullName != nil {
		id.FullName = blankToNil(*p.FullName)
	}
	if p.AvatarURL != nil {
		id.AvatarURL = blankToNil(*p.AvatarURL)
	}
	return id
}

// DisplayName is the full name when set, otherwise the email.
func (i Identity) DisplayName() string {
	if i.FullName != nil && *i.FullName != "" {
		return *i.FullName
	}
	return i.Email
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string { return &s }
