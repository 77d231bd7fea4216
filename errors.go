package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString is returned when a required string input is empty
var ErrNoEmptyString = errors.New("string should not be empty")

// ErrMismatchedHashAndPassword is returned when a password does not match its digest
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrInvalidCredentials is the caller-visible login failure. Unknown
// identifiers and password mismatches both collapse into this error so the
// response does not leak which accounts exist.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive is returned when the principal exists but its status
// forbids authentication.
var ErrAccountInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_INACTIVE").
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when the attempt counter exceeds
// MaxLoginAttempts inside the cooldown window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token carries a valid signature but its
// expiry has passed.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSignature is returned when a token verifies against neither the
// current nor the previous signing secret.
var ErrInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode("INVALID_TOKEN_SIGNATURE").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token does not parse as the expected
// structure.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeBadRequest)

// ErrNotAuthorized is returned when the caller may not start an
// impersonation: wrong token kind or a role outside the impersonator set.
var ErrNotAuthorized = goerrors.New("not authorized to impersonate", goerrors.CategoryAuthz).
	WithTextCode("IMPERSONATION_NOT_ALLOWED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidTarget is returned when the impersonation target does not
// resolve, is inactive, is the caller themselves, or outranks the caller.
var ErrInvalidTarget = goerrors.New("invalid impersonation target", goerrors.CategoryValidation).
	WithTextCode("INVALID_IMPERSONATION_TARGET").
	WithCode(goerrors.CodeBadRequest)

// ErrAlreadyImpersonating is returned when the impersonator already has an
// open impersonation record.
var ErrAlreadyImpersonating = goerrors.New("an impersonation session is already active", goerrors.CategoryConflict).
	WithTextCode("IMPERSONATION_ALREADY_ACTIVE").
	WithCode(goerrors.CodeConflict)

// ErrAuditUnavailable is returned when the audit store cannot confirm a
// write within its deadline. Start fails closed on this error.
var ErrAuditUnavailable = goerrors.New("audit store unavailable", goerrors.CategoryInternal).
	WithTextCode("AUDIT_UNAVAILABLE").
	WithCode(goerrors.CodeInternal)

// ErrNotImpersonating is returned when Stop receives a token that is not an
// impersonation token.
var ErrNotImpersonating = goerrors.New("token is not an impersonation token", goerrors.CategoryValidation).
	WithTextCode("NOT_IMPERSONATING").
	WithCode(goerrors.CodeBadRequest)

// ErrNoActiveSession is returned when Stop finds no open impersonation
// record for the caller. Treated as an idempotent failure, not a crash.
var ErrNoActiveSession = goerrors.New("no active impersonation session", goerrors.CategoryConflict).
	WithTextCode("NO_ACTIVE_IMPERSONATION").
	WithCode(goerrors.CodeConflict)

// withMetadata attaches per-call metadata to a copy of a package-level
// error. WithMetadata mutates its receiver, so annotating the shared var
// directly would leak one request's details into every later failure.
func withMetadata(base *goerrors.Error, metadata map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	return clone.WithMetadata(metadata)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation sniffs driver errors for unique constraint failures.
// Covers sqlite (tests) and postgres (production) phrasing.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
