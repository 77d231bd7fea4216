package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// StaticConfig is a plain value implementation of Config, typically
// populated from environment configuration by the host application.
type StaticConfig struct {
	SigningSecret         string        `json:"signing_secret"`
	PreviousSigningSecret string        `json:"previous_signing_secret,omitempty"`
	TokenExpiration       int           `json:"token_expiration"`
	ImpersonationTimeout  int           `json:"impersonation_timeout"`
	Issuer                string        `json:"issuer,omitempty"`
	Audience              []string      `json:"audience,omitempty"`
	AuditTimeout          time.Duration `json:"audit_timeout,omitempty"`
}

var _ Config = StaticConfig{}

// Validate implements the validation.Validatable interface. The
// impersonation TTL being strictly shorter than the session TTL is a
// containment control, not a tuning preference.
func (c StaticConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&c.ImpersonationTimeout, validation.Required, validation.Min(1), validation.By(c.impersonationShorterThanSession)),
	)
}

func (c StaticConfig) impersonationShorterThanSession(value any) error {
	hours, ok := value.(int)
	if !ok {
		return fmt.Errorf("must be an integer number of hours")
	}
	if hours >= c.TokenExpiration {
		return fmt.Errorf("must be shorter than the session token expiration")
	}
	return nil
}

func (c StaticConfig) GetSigningSecret() string {
	return c.SigningSecret
}

func (c StaticConfig) GetPreviousSigningSecret() string {
	return c.PreviousSigningSecret
}

// GetTokenExpiration is the normal session TTL in hours.
func (c StaticConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

// GetImpersonationTimeout is the impersonation session TTL in hours.
func (c StaticConfig) GetImpersonationTimeout() int {
	return c.ImpersonationTimeout
}

func (c StaticConfig) GetIssuer() string {
	return c.Issuer
}

func (c StaticConfig) GetAudience() []string {
	return c.Audience
}

func (c StaticConfig) GetAuditTimeout() time.Duration {
	if c.AuditTimeout <= 0 {
		return DefaultAuditTimeout
	}
	return c.AuditTimeout
}
