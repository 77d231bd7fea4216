package auth_test

import (
	"context"
	"testing"

	auth "github.com/Shubhkesarwani02/SecureAdmin-sub003"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutherLogin(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	adminID := "0f8fad5b-d9cb-469f-a165-70867728950e"
	admin := TestIdentity{
		id:       adminID,
		username: "admin",
		email:    "admin@example.com",
		role:     auth.RoleAdmin,
		status:   auth.UserStatusActive,
	}

	t.Run("succeeds for an active principal with a valid password", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &capturingSink{}
		service, _ := newTestTokenService(cfg)
		auther := auth.NewAuthenticator(provider, service).WithActivitySink(sink)

		provider.On("VerifyIdentity", ctx, admin.email, "correct-horse").
			Return(admin, nil).Once()

		token, err := auther.Login(ctx, admin.email, "correct-horse")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, adminID, claims.UserID())
		assert.Equal(t, string(auth.RoleAdmin), claims.Role())
		assert.Equal(t, auth.TokenKindNormal, claims.Kind())

		require.Len(t, sink.events, 1)
		assert.Equal(t, auth.ActivityEventLoginSuccess, sink.events[0].EventType)

		provider.AssertExpectations(t)
	})

	t.Run("collapses bad password into InvalidCredentials", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		service, _ := newTestTokenService(cfg)
		auther := auth.NewAuthenticator(provider, service)

		provider.On("VerifyIdentity", ctx, admin.email, "wrong").
			Return(nil, auth.ErrMismatchedHashAndPassword).Once()

		_, err := auther.Login(ctx, admin.email, "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		provider.AssertExpectations(t)
	})

	t.Run("collapses unknown principal into InvalidCredentials", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		service, _ := newTestTokenService(cfg)
		auther := auth.NewAuthenticator(provider, service)

		provider.On("VerifyIdentity", ctx, "ghost@example.com", "pw").
			Return(nil, auth.ErrIdentityNotFound).Once()

		_, err := auther.Login(ctx, "ghost@example.com", "pw")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		provider.AssertExpectations(t)
	})

	t.Run("blocks suspended principals", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &capturingSink{}
		service, _ := newTestTokenService(cfg)
		auther := auth.NewAuthenticator(provider, service).WithActivitySink(sink)

		suspended := admin
		suspended.status = auth.UserStatusSuspended

		provider.On("VerifyIdentity", ctx, admin.email, "correct-horse").
			Return(suspended, nil).Once()

		_, err := auther.Login(ctx, admin.email, "correct-horse")
		require.Error(t, err)
		assert.ErrorContains(t, err, "not active")

		require.Len(t, sink.events, 1)
		assert.Equal(t, auth.ActivityEventLoginFailure, sink.events[0].EventType)

		provider.AssertExpectations(t)
	})
}

func TestAutherSessionFromToken(t *testing.T) {
	cfg := newTestConfig()
	provider := new(MockIdentityProvider)
	service, _ := newTestTokenService(cfg)
	auther := auth.NewAuthenticator(provider, service)

	adminID := "0f8fad5b-d9cb-469f-a165-70867728950e"
	targetID := "5cf0c0d9-2a2f-4c43-9d6c-7b8cb1e5e4a1"

	t.Run("decodes a normal token", func(t *testing.T) {
		token, err := service.IssueSession(TestIdentity{id: adminID, role: auth.RoleAdmin})
		require.NoError(t, err)

		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)

		assert.Equal(t, adminID, session.GetUserID())
		assert.Equal(t, string(auth.RoleAdmin), session.GetRole())
		assert.Equal(t, auth.TokenKindNormal, session.GetKind())
		assert.Empty(t, session.GetImpersonatorID())

		uid, err := session.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, adminID, uid.String())
	})

	t.Run("decodes an impersonation token through the same path", func(t *testing.T) {
		token, err := service.IssueImpersonation(TestIdentity{id: targetID, role: auth.RoleUser}, adminID)
		require.NoError(t, err)

		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)

		assert.Equal(t, targetID, session.GetUserID())
		assert.Equal(t, auth.TokenKindImpersonation, session.GetKind())
		assert.Equal(t, adminID, session.GetImpersonatorID())
	})

	t.Run("propagates token errors", func(t *testing.T) {
		_, err := auther.SessionFromToken("garbage")
		assert.True(t, auth.IsMalformedError(err))
	})
}
