// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package postgres

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tempoverse/tempo/internal/session"
)

// VerificationRecordRepository implements
// session.VerificationRecordRepository using PostgreSQL.
type VerificationRecordRepository struct {
	pool querier
}

// NewVerificationRecordRepository creates a new
// VerificationRecordRepository.
func NewVerificationRecordRepository(pool querier) *VerificationRecordRepository {
	return &VerificationRecordRepository{pool: pool}
}

// Create stores a new verification record.
func (r *VerificationRecordRepository) Create(ctx context.Context, rec *session.VerificationRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_records (id, principal_id, contact, code, created_at, expires_at, used, used_at, address, client_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID.String(),
		rec.PrincipalID,
		rec.Contact,
		rec.Code,
		rec.CreatedAt,
		rec.ExpiresAt,
		rec.Used,
		rec.UsedAt,
		rec.Address,
		rec.ClientInfo,
	)
	if err != nil {
		return oops.Code("VERIFICATION_CREATE_FAILED").
			With("operation", "insert verification_record").
			With("principal_id", rec.PrincipalID).
			Wrap(err)
	}
	return nil
}

// MarkUsed flips the used flag and stamps the time.
func (r *VerificationRecordRepository) MarkUsed(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE verification_records SET used = TRUE, used_at = $2
		WHERE id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("VERIFICATION_MARK_USED_FAILED").
			With("operation", "update verification_record used").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("VERIFICATION_NOT_FOUND").Wrap(session.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes unused records past their expiry and returns the
// count.
func (r *VerificationRecordRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM verification_records WHERE used = FALSE AND expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification_records").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ session.VerificationRecordRepository = (*VerificationRecordRepository)(nil)
