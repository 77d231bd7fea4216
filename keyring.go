package auth

import (
	"context"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// secretPair is an immutable snapshot of the active verification keys.
// Readers always observe a complete pair.
type secretPair struct {
	current   []byte
	previous  []byte
	rotatedAt time.Time
}

// SigningKeyring holds the process-wide signing secret set: the current
// secret used to sign new tokens and, after a rotation, the previous secret
// kept for verification during the grace window. Rotation swaps the pair
// atomically so in-flight verifications never observe a half-updated state.
type SigningKeyring struct {
	pair         atomic.Pointer[secretPair]
	activitySink ActivitySink
}

// WithActivitySink emits an event on every rotation so operators can
// correlate verification failures with key changes.
func (k *SigningKeyring) WithActivitySink(sink ActivitySink) *SigningKeyring {
	k.activitySink = normalizeActivitySink(sink)
	return k
}

// NewSigningKeyring builds a keyring from configured secrets. The previous
// secret is optional and only used to verify tokens issued before the last
// rotation.
func NewSigningKeyring(current, previous string) (*SigningKeyring, error) {
	if current == "" {
		return nil, goerrors.New("signing secret must not be empty", goerrors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_SECRET")
	}

	k := &SigningKeyring{}
	pair := &secretPair{
		current:   []byte(current),
		rotatedAt: time.Now(),
	}
	if previous != "" {
		pair.previous = []byte(previous)
	}
	k.pair.Store(pair)

	return k, nil
}

// Rotate installs a new current secret and demotes the old current secret
// to previous. The secret two rotations back stops verifying immediately.
func (k *SigningKeyring) Rotate(secret string) error {
	if secret == "" {
		return goerrors.New("signing secret must not be empty", goerrors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_SECRET")
	}

	old := k.pair.Load()
	next := &secretPair{
		current:   []byte(secret),
		previous:  old.current,
		rotatedAt: time.Now(),
	}
	k.pair.Store(next)

	if k.activitySink != nil {
		_ = k.activitySink.Record(context.Background(), ActivityEvent{
			EventType:  ActivityEventSecretRotation,
			Actor:      ActorRef{ID: "system", Type: "system"},
			OccurredAt: next.rotatedAt,
		})
	}

	return nil
}

// RotatedAt returns when the current secret was installed.
func (k *SigningKeyring) RotatedAt() time.Time {
	return k.pair.Load().rotatedAt
}

// HasPrevious reports whether a grace-window secret is present.
func (k *SigningKeyring) HasPrevious() bool {
	return k.pair.Load().previous != nil
}

// snapshot returns the immutable pair for one verification or signing
// operation.
func (k *SigningKeyring) snapshot() *secretPair {
	return k.pair.Load()
}
