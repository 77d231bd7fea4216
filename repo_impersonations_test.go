package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/Shubhkesarwani02/SecureAdmin-sub003"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateImpersonationRecords = `CREATE TABLE impersonation_records (
    id TEXT NOT NULL PRIMARY KEY,
    impersonator_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    started_at TIMESTAMP,
    ended_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);
CREATE UNIQUE INDEX uq_impersonation_records_open
    ON impersonation_records (impersonator_id)
    WHERE ended_at IS NULL;`

func setupImpersonationsRepo(t *testing.T) (auth.Impersonations, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateImpersonationRecords)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return auth.NewImpersonationsRepository(bunDB), cleanup
}

func newImpersonationRecord(impersonatorID, targetID uuid.UUID) *auth.ImpersonationRecord {
	return &auth.ImpersonationRecord{
		ImpersonatorID: impersonatorID,
		TargetID:       targetID,
		Reason:         "support ticket #17",
		IP:             "198.51.100.4",
		UserAgent:      "secureadmin-console",
	}
}

func TestImpersonationsRepositoryOpenAndFind(t *testing.T) {
	repo, cleanup := setupImpersonationsRepo(t)
	defer cleanup()

	ctx := context.Background()
	impersonatorID := uuid.New()
	targetID := uuid.New()

	found, err := repo.FindOpenImpersonation(ctx, impersonatorID)
	require.NoError(t, err)
	assert.Nil(t, found)

	record, err := repo.OpenImpersonation(ctx, newImpersonationRecord(impersonatorID, targetID))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, record.ID)
	require.NotNil(t, record.StartedAt)
	assert.True(t, record.IsOpen())

	found, err = repo.FindOpenImpersonation(ctx, impersonatorID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, targetID, found.TargetID)
	assert.Equal(t, "support ticket #17", found.Reason)
	assert.Nil(t, found.EndedAt)
}

func TestImpersonationsRepositoryUniqueOpenRecord(t *testing.T) {
	repo, cleanup := setupImpersonationsRepo(t)
	defer cleanup()

	ctx := context.Background()
	impersonatorID := uuid.New()

	first, err := repo.OpenImpersonation(ctx, newImpersonationRecord(impersonatorID, uuid.New()))
	require.NoError(t, err)

	t.Run("second open for the same impersonator conflicts", func(t *testing.T) {
		_, err := repo.OpenImpersonation(ctx, newImpersonationRecord(impersonatorID, uuid.New()))
		assert.ErrorIs(t, err, auth.ErrAlreadyImpersonating)
	})

	t.Run("other impersonators are unaffected", func(t *testing.T) {
		_, err := repo.OpenImpersonation(ctx, newImpersonationRecord(uuid.New(), uuid.New()))
		assert.NoError(t, err)
	})

	t.Run("closing the record frees the slot", func(t *testing.T) {
		require.NoError(t, repo.CloseImpersonation(ctx, first.ID, time.Now()))

		record, err := repo.OpenImpersonation(ctx, newImpersonationRecord(impersonatorID, uuid.New()))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, record.ID)
	})
}

func TestImpersonationsRepositoryClose(t *testing.T) {
	repo, cleanup := setupImpersonationsRepo(t)
	defer cleanup()

	ctx := context.Background()
	impersonatorID := uuid.New()

	record, err := repo.OpenImpersonation(ctx, newImpersonationRecord(impersonatorID, uuid.New()))
	require.NoError(t, err)

	require.NoError(t, repo.CloseImpersonation(ctx, record.ID, time.Now()))

	found, err := repo.FindOpenImpersonation(ctx, impersonatorID)
	require.NoError(t, err)
	assert.Nil(t, found)

	t.Run("closing twice reports no active session", func(t *testing.T) {
		err := repo.CloseImpersonation(ctx, record.ID, time.Now())
		assert.ErrorIs(t, err, auth.ErrNoActiveSession)
	})

	t.Run("closing an unknown record reports no active session", func(t *testing.T) {
		err := repo.CloseImpersonation(ctx, uuid.New(), time.Now())
		assert.ErrorIs(t, err, auth.ErrNoActiveSession)
	})
}

func TestImpersonationsRepositoryFindOpenBefore(t *testing.T) {
	repo, cleanup := setupImpersonationsRepo(t)
	defer cleanup()

	ctx := context.Background()

	staleStart := time.Now().Add(-3 * time.Hour)
	stale := newImpersonationRecord(uuid.New(), uuid.New())
	stale.StartedAt = &staleStart
	stale, err := repo.OpenImpersonation(ctx, stale)
	require.NoError(t, err)

	fresh, err := repo.OpenImpersonation(ctx, newImpersonationRecord(uuid.New(), uuid.New()))
	require.NoError(t, err)

	closedStart := time.Now().Add(-4 * time.Hour)
	closed := newImpersonationRecord(uuid.New(), uuid.New())
	closed.StartedAt = &closedStart
	closed, err = repo.OpenImpersonation(ctx, closed)
	require.NoError(t, err)
	require.NoError(t, repo.CloseImpersonation(ctx, closed.ID, time.Now()))

	records, err := repo.FindOpenBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stale.ID, records[0].ID)
	assert.NotEqual(t, fresh.ID, records[0].ID)
}
