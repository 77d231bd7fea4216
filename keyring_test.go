package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningKeyring(t *testing.T) {
	t.Run("requires a current secret", func(t *testing.T) {
		_, err := NewSigningKeyring("", "")
		assert.Error(t, err)
	})

	t.Run("previous secret is optional", func(t *testing.T) {
		k, err := NewSigningKeyring("current-secret", "")
		require.NoError(t, err)
		assert.False(t, k.HasPrevious())

		k, err = NewSigningKeyring("current-secret", "previous-secret")
		require.NoError(t, err)
		assert.True(t, k.HasPrevious())
	})

	t.Run("rotation emits an activity event", func(t *testing.T) {
		k, err := NewSigningKeyring("first", "")
		require.NoError(t, err)

		var events []ActivityEvent
		k.WithActivitySink(ActivitySinkFunc(func(ctx context.Context, evt ActivityEvent) error {
			events = append(events, evt)
			return nil
		}))

		require.NoError(t, k.Rotate("second"))
		require.Len(t, events, 1)
		assert.Equal(t, ActivityEventSecretRotation, events[0].EventType)
	})

	t.Run("rotation demotes the current secret", func(t *testing.T) {
		k, err := NewSigningKeyring("first", "")
		require.NoError(t, err)

		require.NoError(t, k.Rotate("second"))

		pair := k.snapshot()
		assert.Equal(t, []byte("second"), pair.current)
		assert.Equal(t, []byte("first"), pair.previous)

		require.NoError(t, k.Rotate("third"))

		pair = k.snapshot()
		assert.Equal(t, []byte("third"), pair.current)
		assert.Equal(t, []byte("second"), pair.previous)
	})
}

func TestSigningKeyringSnapshotConsistency(t *testing.T) {
	// readers must never observe a half-updated pair during rotation
	k, err := NewSigningKeyring("secret-0", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = k.Rotate("secret-rotated")
		}
		close(done)
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				pair := k.snapshot()
				if pair.current == nil {
					t.Error("snapshot observed a nil current secret")
					return
				}
			}
		}()
	}

	wg.Wait()
}
