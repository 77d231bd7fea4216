package auth_test

import (
	"testing"
	"time"

	auth "github.com/Shubhkesarwani02/SecureAdmin-sub003"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObjectGetters(t *testing.T) {
	userID := uuid.NewString()
	issued := time.Now().Add(-time.Minute)
	expires := time.Now().Add(time.Hour)

	session := &auth.SessionObject{
		UserID:         userID,
		Role:           string(auth.RoleAdmin),
		Audience:       []string{"secureadmin"},
		Issuer:         "secureadmin-api",
		IssuedAt:       &issued,
		ExpirationDate: &expires,
		Data:           map[string]any{"device": "cli"},
	}

	assert.Equal(t, userID, session.GetUserID())
	assert.Equal(t, string(auth.RoleAdmin), session.GetRole())
	assert.Equal(t, []string{"secureadmin"}, session.GetAudience())
	assert.Equal(t, "secureadmin-api", session.GetIssuer())
	assert.Equal(t, &issued, session.GetIssuedAt())
	assert.Equal(t, "cli", session.GetData()["device"])

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed.String())
}

func TestSessionObjectKind(t *testing.T) {
	t.Run("empty kind defaults to normal", func(t *testing.T) {
		session := &auth.SessionObject{}
		assert.Equal(t, auth.TokenKindNormal, session.GetKind())
		assert.False(t, session.IsImpersonated())
		assert.Empty(t, session.GetImpersonatorID())
	})

	t.Run("impersonated sessions carry the impersonator", func(t *testing.T) {
		impersonatorID := uuid.NewString()
		session := &auth.SessionObject{
			Kind:           auth.TokenKindImpersonation,
			ImpersonatorID: impersonatorID,
		}

		assert.Equal(t, auth.TokenKindImpersonation, session.GetKind())
		assert.True(t, session.IsImpersonated())
		assert.Equal(t, impersonatorID, session.GetImpersonatorID())
	})
}

func TestSessionObjectGetUserUUID(t *testing.T) {
	session := &auth.SessionObject{UserID: "not-a-uuid"}
	_, err := session.GetUserUUID()
	assert.Error(t, err)
}
