package auth

import (
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the decoded, middleware-facing view of a session token.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Role           string         `json:"role,omitempty"`
	Kind           TokenKind      `json:"kind,omitempty"`
	ImpersonatorID string         `json:"impersonator_id,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetRole() string {
	return s.Role
}

// GetKind returns the token kind the session was built from.
func (s *SessionObject) GetKind() TokenKind {
	if s.Kind == "" {
		return TokenKindNormal
	}
	return s.Kind
}

// GetImpersonatorID returns the real principal behind an impersonated
// session, or empty for normal sessions.
func (s *SessionObject) GetImpersonatorID() string {
	return s.ImpersonatorID
}

// IsImpersonated reports whether the effective principal differs from the
// authenticated one.
func (s *SessionObject) IsImpersonated() bool {
	return s.GetKind() == TokenKindImpersonation
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

// sessionFromAuthClaims converts validated claims into a SessionObject.
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	session := &SessionObject{
		UserID:         claims.UserID(),
		Role:           claims.Role(),
		Kind:           claims.Kind(),
		ImpersonatorID: claims.Impersonator(),
	}

	if issued := claims.IssuedAt(); !issued.IsZero() {
		t := issued
		session.IssuedAt = &t
	}

	if expires := claims.Expires(); !expires.IsZero() {
		t := expires
		session.ExpirationDate = &t
	}

	if sc, ok := claims.(*SessionClaims); ok {
		session.Issuer = sc.RegisteredClaims.Issuer
		session.Audience = sc.RegisteredClaims.Audience

		if len(sc.Metadata) > 0 {
			session.Data = map[string]any{}
			for k, v := range sc.Metadata {
				session.Data[k] = v
			}
		}
	}

	return session, nil
}
