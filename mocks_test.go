package auth_test

import (
	"context"
	"time"

	auth "github.com/Shubhkesarwani02/SecureAdmin-sub003"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TestIdentity is a plain value implementation of auth.Identity
type TestIdentity struct {
	id       string
	username string
	email    string
	role     auth.UserRole
	status   auth.UserStatus
}

func (t TestIdentity) ID() string              { return t.id }
func (t TestIdentity) Username() string        { return t.username }
func (t TestIdentity) Email() string           { return t.email }
func (t TestIdentity) Role() string            { return string(t.role) }
func (t TestIdentity) Status() auth.UserStatus { return t.status }

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (auth.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

// MockImpersonations implements auth.Impersonations
type MockImpersonations struct {
	mock.Mock
}

func (m *MockImpersonations) OpenImpersonation(ctx context.Context, record *auth.ImpersonationRecord) (*auth.ImpersonationRecord, error) {
	args := m.Called(ctx, record)
	rec, _ := args.Get(0).(*auth.ImpersonationRecord)
	return rec, args.Error(1)
}

func (m *MockImpersonations) CloseImpersonation(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	args := m.Called(ctx, id, endedAt)
	return args.Error(0)
}

func (m *MockImpersonations) FindOpenImpersonation(ctx context.Context, impersonatorID uuid.UUID) (*auth.ImpersonationRecord, error) {
	args := m.Called(ctx, impersonatorID)
	rec, _ := args.Get(0).(*auth.ImpersonationRecord)
	return rec, args.Error(1)
}

func (m *MockImpersonations) FindOpenBefore(ctx context.Context, cutoff time.Time) ([]*auth.ImpersonationRecord, error) {
	args := m.Called(ctx, cutoff)
	recs, _ := args.Get(0).([]*auth.ImpersonationRecord)
	return recs, args.Error(1)
}

// MockUserTracker implements auth.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// capturingSink collects activity events for assertions
type capturingSink struct {
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) eventTypes() []auth.ActivityEventType {
	types := make([]auth.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		types = append(types, evt.EventType)
	}
	return types
}

func newTestConfig() auth.StaticConfig {
	return auth.StaticConfig{
		SigningSecret:        "test-signing-secret-0123456789abcdef",
		TokenExpiration:      24,
		ImpersonationTimeout: 2,
		Issuer:               "secureadmin-test",
	}
}

func newTestTokenService(cfg auth.Config) (auth.TokenService, *auth.SigningKeyring) {
	keyring, err := auth.NewSigningKeyring(cfg.GetSigningSecret(), cfg.GetPreviousSigningSecret())
	if err != nil {
		panic(err)
	}
	return auth.NewTokenService(keyring, cfg, nil), keyring
}
