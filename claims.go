package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tags the variant carried by a session token.
type TokenKind = string

const (
	// TokenKindNormal is a regular session token
	TokenKindNormal TokenKind = "normal"
	// TokenKindImpersonation is a session token minted on behalf of another principal
	TokenKindImpersonation TokenKind = "impersonation"
)

// AuthClaims represents structured JWT claims for session tokens
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	Kind() TokenKind
	Impersonator() string
	IsImpersonation() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims. A single
// claim shape covers both token kinds; impersonation tokens additionally
// carry the impersonator id.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID            string         `json:"uid,omitempty"`
	UserRole       string         `json:"role,omitempty"`
	SessionKind    TokenKind      `json:"kind,omitempty"`
	ImpersonatorID string         `json:"impersonator,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)
var _ RoleValidator = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the effective user ID. For impersonation tokens this is
// the target, not the impersonator.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role snapshot taken at issuance
func (c *SessionClaims) Role() string {
	return c.UserRole
}

// Kind returns the token kind. Tokens minted before the kind claim existed
// are treated as normal.
func (c *SessionClaims) Kind() TokenKind {
	if c.SessionKind == "" {
		return TokenKindNormal
	}
	return c.SessionKind
}

// Impersonator returns the real principal behind an impersonation token,
// or empty for normal tokens.
func (c *SessionClaims) Impersonator() string {
	return c.ImpersonatorID
}

// IsImpersonation reports whether the token was minted on behalf of
// another principal.
func (c *SessionClaims) IsImpersonation() bool {
	return c.Kind() == TokenKindImpersonation
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *SessionClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// HasRole checks if the user has a specific role
func (c *SessionClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *SessionClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
}
