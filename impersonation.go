package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultAuditTimeout bounds audit store calls from the controller.
const DefaultAuditTimeout = 5 * time.Second

// StartImpersonationRequest carries the caller-supplied parameters for a
// new impersonation session. IP and UserAgent are opaque request metadata
// recorded alongside the audit row.
type StartImpersonationRequest struct {
	TargetID  string `json:"target_id"`
	Reason    string `json:"reason"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Validate implements the validation.Validatable interface
func (r StartImpersonationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetID, validation.Required, is.UUID),
		validation.Field(&r.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// ImpersonationController is the state machine governing impersonation
// sessions: NONE -> ACTIVE -> NONE per impersonator. The open audit record
// is the ACTIVE marker; its uniqueness is enforced at the store so the
// invariant holds across server instances.
type ImpersonationController struct {
	provider          IdentityProvider
	records           Impersonations
	tokens            TokenService
	impersonatorRoles map[UserRole]struct{}
	auditTimeout      time.Duration
	now               func() time.Time
	logger            Logger
	activitySink      ActivitySink
}

// ImpersonationOption customizes controller construction.
type ImpersonationOption func(*ImpersonationController)

// WithImpersonatorRoles overrides the set of roles allowed to impersonate.
func WithImpersonatorRoles(roles ...UserRole) ImpersonationOption {
	return func(c *ImpersonationController) {
		if len(roles) == 0 {
			return
		}
		c.impersonatorRoles = make(map[UserRole]struct{}, len(roles))
		for _, r := range roles {
			c.impersonatorRoles[r] = struct{}{}
		}
	}
}

// WithAuditTimeout bounds how long audit store calls may take before the
// operation is reported as AuditUnavailable.
func WithAuditTimeout(d time.Duration) ImpersonationOption {
	return func(c *ImpersonationController) {
		if d > 0 {
			c.auditTimeout = d
		}
	}
}

// WithImpersonationClock injects a custom clock (useful for tests).
func WithImpersonationClock(clock func() time.Time) ImpersonationOption {
	return func(c *ImpersonationController) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithImpersonationLogger overrides the controller logger.
func WithImpersonationLogger(logger Logger) ImpersonationOption {
	return func(c *ImpersonationController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithImpersonationActivitySink sets the ActivitySink used for telemetry
// events. Distinct from the Impersonations store, which is the durable trail.
func WithImpersonationActivitySink(sink ActivitySink) ImpersonationOption {
	return func(c *ImpersonationController) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

// NewImpersonationController wires the controller with its collaborators.
func NewImpersonationController(provider IdentityProvider, records Impersonations, tokens TokenService, opts ...ImpersonationOption) *ImpersonationController {
	c := &ImpersonationController{
		provider:     provider,
		records:      records,
		tokens:       tokens,
		auditTimeout: DefaultAuditTimeout,
		now:          time.Now,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	c.impersonatorRoles = make(map[UserRole]struct{})
	for _, r := range DefaultImpersonatorRoles() {
		c.impersonatorRoles[r] = struct{}{}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

var _ Impersonator = (*ImpersonationController)(nil)

// Start validates the caller, mints an impersonation token for the target
// and records the session. The audit write failing means no token: an
// un-logged grant of elevated access is worse than refusing service.
func (c *ImpersonationController) Start(ctx context.Context, callerToken string, req StartImpersonationRequest) (string, error) {
	claims, err := c.tokens.Validate(callerToken)
	if err != nil {
		return "", err
	}

	if claims.Kind() != TokenKindNormal {
		// no impersonation chaining
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error": "caller token is not a normal session token",
		})
		return "", ErrNotAuthorized
	}

	if _, ok := c.impersonatorRoles[UserRole(claims.Role())]; !ok {
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error": "caller role may not impersonate",
			"role":  claims.Role(),
		})
		return "", withMetadata(ErrNotAuthorized, map[string]any{
			"role": claims.Role(),
		})
	}

	if err := req.Validate(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid impersonation request").
			WithTextCode("INVALID_IMPERSONATION_REQUEST")
	}

	callerID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return "", ErrTokenMalformed
	}

	if req.TargetID == claims.UserID() {
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error": "self impersonation is forbidden",
		})
		return "", withMetadata(ErrInvalidTarget, map[string]any{
			"reason": "self impersonation is forbidden",
		})
	}

	target, err := c.resolveTarget(ctx, req.TargetID)
	if err != nil {
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error": err.Error(),
		})
		return "", err
	}

	if !UserRole(claims.Role()).MayImpersonate(UserRole(target.Role())) {
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error":       "target has equal or higher privilege",
			"caller_role": claims.Role(),
			"target_role": target.Role(),
		})
		return "", withMetadata(ErrInvalidTarget, map[string]any{
			"reason":      "target has equal or higher privilege",
			"caller_role": claims.Role(),
			"target_role": target.Role(),
		})
	}

	targetID, err := uuid.Parse(target.ID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "target identity has a malformed id")
	}

	auditCtx, cancel := context.WithTimeout(ctx, c.auditTimeout)
	defer cancel()

	if open, err := c.records.FindOpenImpersonation(auditCtx, callerID); err != nil {
		return "", c.auditError(err)
	} else if open != nil {
		c.emitEvent(ctx, ActivityEventImpersonationStartFailure, claims.UserID(), req.TargetID, map[string]any{
			"error":      "impersonation already active",
			"started_at": open.StartedAt,
		})
		return "", withMetadata(ErrAlreadyImpersonating, map[string]any{
			"record_id":  open.ID.String(),
			"started_at": open.StartedAt,
		})
	}

	startedAt := c.now()
	record := &ImpersonationRecord{
		ID:             uuid.New(),
		ImpersonatorID: callerID,
		TargetID:       targetID,
		Reason:         req.Reason,
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		StartedAt:      &startedAt,
	}

	record, err = c.records.OpenImpersonation(auditCtx, record)
	if err != nil {
		// two concurrent starts can both pass the open-record check; the
		// store's uniqueness constraint settles the race
		if goerrors.Is(err, ErrAlreadyImpersonating) {
			return "", err
		}
		return "", c.auditError(err)
	}

	token, err := c.tokens.IssueImpersonation(target, claims.UserID())
	if err != nil {
		if closeErr := c.records.CloseImpersonation(auditCtx, record.ID, c.now()); closeErr != nil {
			c.logger.Warn("failed to close impersonation record after mint failure",
				"record_id", record.ID.String(), "error", closeErr)
		}
		return "", err
	}

	c.emitEvent(ctx, ActivityEventImpersonationStart, claims.UserID(), target.ID(), map[string]any{
		"record_id": record.ID.String(),
		"reason":    req.Reason,
	})

	return token, nil
}

// Stop ends the caller's impersonation session and returns a fresh normal
// token for the impersonator's own identity. Closing the audit record is
// fail-open: ending impersonation must succeed even if logging is degraded.
func (c *ImpersonationController) Stop(ctx context.Context, impersonationToken string) (string, error) {
	claims, err := c.tokens.Validate(impersonationToken)
	if err != nil {
		return "", err
	}

	if claims.Kind() != TokenKindImpersonation {
		return "", ErrNotImpersonating
	}

	impersonatorID, err := uuid.Parse(claims.Impersonator())
	if err != nil {
		return "", ErrTokenMalformed
	}

	targetID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return "", ErrTokenMalformed
	}

	auditCtx, cancel := context.WithTimeout(ctx, c.auditTimeout)
	defer cancel()

	record, err := c.records.FindOpenImpersonation(auditCtx, impersonatorID)
	if err != nil {
		return "", c.auditError(err)
	}

	if record == nil || record.TargetID != targetID {
		// already stopped, expired, or record missing: idempotent failure
		return "", ErrNoActiveSession
	}

	// close first so the impersonation slot frees even when the
	// impersonator's own account can no longer authenticate
	if err := c.records.CloseImpersonation(auditCtx, record.ID, c.now()); err != nil {
		c.logger.Warn("failed to close impersonation record",
			"record_id", record.ID.String(), "error", err)
		c.emitEvent(ctx, ActivityEventImpersonationStopFailure, impersonatorID.String(), claims.UserID(), map[string]any{
			"record_id": record.ID.String(),
			"error":     err.Error(),
		})
	} else {
		c.emitEvent(ctx, ActivityEventImpersonationStop, impersonatorID.String(), claims.UserID(), map[string]any{
			"record_id": record.ID.String(),
		})
	}

	impersonator, err := c.provider.FindIdentityByIdentifier(ctx, impersonatorID.String())
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return "", richErr
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve impersonator identity")
	}

	return c.tokens.IssueSession(impersonator)
}

func (c *ImpersonationController) resolveTarget(ctx context.Context, targetID string) (Identity, error) {
	target, err := c.provider.FindIdentityByIdentifier(ctx, targetID)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) || goerrors.IsNotFound(err) {
			return nil, withMetadata(ErrInvalidTarget, map[string]any{
				"reason": "target does not exist",
			})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode == ErrAccountInactive.TextCode {
			return nil, withMetadata(ErrInvalidTarget, map[string]any{
				"reason": "target is not active",
			})
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve impersonation target")
	}

	if status, ok := identityStatus(target); ok && status != "" && status != UserStatusActive {
		return nil, withMetadata(ErrInvalidTarget, map[string]any{
			"reason": "target is not active",
			"status": status,
		})
	}

	return target, nil
}

// auditError translates store failures into the caller-visible taxonomy.
func (c *ImpersonationController) auditError(err error) error {
	c.logger.Error("audit store error", "error", err)
	return withMetadata(ErrAuditUnavailable, map[string]any{
		"cause": err.Error(),
	})
}

func (c *ImpersonationController) emitEvent(ctx context.Context, eventType ActivityEventType, actorID, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: actorID, Type: "user"},
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: c.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := c.activitySink.Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error", "error", err)
	}
}
