package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is a regular end user (no staff privileges)
	RoleUser UserRole = "user"
	// RoleCSM is a customer success manager
	RoleCSM UserRole = "csm"
	// RoleAdmin is a staff administrator
	RoleAdmin UserRole = "admin"
	// RoleSuperadmin is the highest privileged staff role
	RoleSuperadmin UserRole = "superadmin"
)

// UserStatus is the user's account status
type UserStatus = string

const (
	// UserStatusActive may authenticate and be impersonated
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended is blocked from authenticating
	UserStatusSuspended UserStatus = "suspended"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status         UserStatus     `bun:"status,notnull" json:"status,omitempty"`
	FirstName      string         `bun:"first_name" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SuspendedAt    *time.Time     `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status for records created before the column existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// ImpersonationRecord is the durable audit row for one impersonation
// session. EndedAt null means the session is still open; the store enforces
// at most one open row per impersonator.
type ImpersonationRecord struct {
	bun.BaseModel  `bun:"table:impersonation_records,alias:imp"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ImpersonatorID uuid.UUID  `bun:"impersonator_id,notnull,type:uuid" json:"impersonator_id,omitempty"`
	TargetID       uuid.UUID  `bun:"target_id,notnull,type:uuid" json:"target_id,omitempty"`
	Reason         string     `bun:"reason,notnull" json:"reason,omitempty"`
	IP             string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string     `bun:"user_agent" json:"user_agent,omitempty"`
	StartedAt      *time.Time `bun:"started_at,nullzero" json:"started_at,omitempty"`
	EndedAt        *time.Time `bun:"ended_at,nullzero" json:"ended_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsOpen reports whether the session has not been ended yet.
func (r *ImpersonationRecord) IsOpen() bool {
	return r != nil && r.EndedAt == nil
}

func statusAuthError(status UserStatus) error {
	switch status {
	case "", UserStatusActive:
		return nil
	default:
		return withMetadata(ErrAccountInactive, map[string]any{
			"status": status,
		})
	}
}

func validRoleError(role UserRole) error {
	if role.IsValid() {
		return nil
	}
	return goerrors.New("user has an unknown or invalid role", goerrors.CategoryAuth).
		WithTextCode("INVALID_ROLE").
		WithMetadata(map[string]any{"role": string(role)})
}
