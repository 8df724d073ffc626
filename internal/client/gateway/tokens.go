package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend's access-token claims the client
// reads. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// ParseClaims decodes an access token without verifying its signature. The
// client never holds the signing key; the backend verifies every request.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// TokenExpiry returns the exp claim of token, or the zero time if absent.
func TokenExpiry(token string) (time.Time, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// ClaimsJSON returns the raw claims of token as JSON, as expected by
// row-level security policies reading request.jwt.claims.
func ClaimsJSON(token string) ([]byte, error) {
	raw := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, raw); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return json.Marshal(raw)
}

// SignToken mints an HS256 access token. Used by the in-memory gateway and
// tests.
func SignToken(userID, email string, metadata map[string]any, ttl time.Duration, now time.Time, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:        email,
		Role:         "authenticated",
		UserMetadata: metadata,
	})
	return token.SignedString(secret)
}
