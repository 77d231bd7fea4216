package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impersonations is the audit sink port: the durable, append-mostly trail
// of impersonation sessions. The backing table carries a partial unique
// index on (impersonator_id) WHERE ended_at IS NULL so the at-most-one-open
// invariant holds across server instances; OpenImpersonation reports a
// violation as ErrAlreadyImpersonating.
type Impersonations interface {
	OpenImpersonation(ctx context.Context, record *ImpersonationRecord) (*ImpersonationRecord, error)
	CloseImpersonation(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	FindOpenImpersonation(ctx context.Context, impersonatorID uuid.UUID) (*ImpersonationRecord, error)
	FindOpenBefore(ctx context.Context, cutoff time.Time) ([]*ImpersonationRecord, error)
}

type impersonations struct {
	db *bun.DB
}

var _ Impersonations = (*impersonations)(nil)

// NewImpersonationsRepository returns the bun-backed audit store.
func NewImpersonationsRepository(db *bun.DB) Impersonations {
	return &impersonations{db: db}
}

func (r *impersonations) OpenImpersonation(ctx context.Context, record *ImpersonationRecord) (*ImpersonationRecord, error) {
	if record == nil {
		return nil, goerrors.New("impersonation record must not be nil", goerrors.CategoryBadInput)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.StartedAt == nil {
		now := time.Now()
		record.StartedAt = &now
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyImpersonating
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open impersonation record")
	}

	return record, nil
}

func (r *impersonations) CloseImpersonation(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*ImpersonationRecord)(nil)).
		Set("ended_at = ?", endedAt).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.ended_at IS NULL").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to close impersonation record")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNoActiveSession
	}

	return nil
}

func (r *impersonations) FindOpenImpersonation(ctx context.Context, impersonatorID uuid.UUID) (*ImpersonationRecord, error) {
	record := &ImpersonationRecord{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.impersonator_id = ?", impersonatorID).
		Where("?TableAlias.ended_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up open impersonation record")
	}

	return record, nil
}

// FindOpenBefore lists open records started before the cutoff. Meant for
// the external sweeper that reconciles records left open by token expiry.
func (r *impersonations) FindOpenBefore(ctx context.Context, cutoff time.Time) ([]*ImpersonationRecord, error) {
	var records []*ImpersonationRecord

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.ended_at IS NULL").
		Where("?TableAlias.started_at < ?", cutoff).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list stale impersonation records")
	}

	return records, nil
}
