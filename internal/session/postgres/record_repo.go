// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tempoverse/tempo/internal/session"
)

// LoginRecordRepository implements session.LoginRecordRepository using
// PostgreSQL.
type LoginRecordRepository struct {
	pool querier
}

// NewLoginRecordRepository creates a new LoginRecordRepository.
func NewLoginRecordRepository(pool querier) *LoginRecordRepository {
	return &LoginRecordRepository{pool: pool}
}

// Create stores a new login record. The token column carries a unique
// index; a collision maps to a distinct error code so the caller can
// regenerate.
func (r *LoginRecordRepository) Create(ctx context.Context, rec *session.LoginRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_records (id, principal_id, token, address, client_info, region, verified, new_location, created_at, verified_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		rec.ID.String(),
		rec.PrincipalID,
		rec.Token,
		rec.Address,
		rec.ClientInfo,
		rec.Region,
		rec.Verified,
		rec.NewLocation,
		rec.CreatedAt,
		rec.VerifiedAt,
		rec.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("RECORD_TOKEN_EXISTS").
				With("principal_id", rec.PrincipalID).
				Wrap(err)
		}
		return oops.Code("RECORD_CREATE_FAILED").
			With("operation", "insert login_record").
			With("principal_id", rec.PrincipalID).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a record by its session token.
func (r *LoginRecordRepository) GetByToken(ctx context.Context, token string) (*session.LoginRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, principal_id, token, address, client_info, region, verified, new_location, created_at, verified_at, expires_at
		FROM login_records
		WHERE token = $1
	`, token)

	rec, err := scanLoginRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RECORD_NOT_FOUND").Wrap(session.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RECORD_GET_BY_TOKEN_FAILED").
			With("operation", "get login_record by token").
			Wrap(err)
	}
	return rec, nil
}

// GetByPrincipal retrieves all records for a principal, newest first.
func (r *LoginRecordRepository) GetByPrincipal(ctx context.Context, principalID int64) ([]*session.LoginRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, principal_id, token, address, client_info, region, verified, new_location, created_at, verified_at, expires_at
		FROM login_records
		WHERE principal_id = $1
		ORDER BY created_at DESC
	`, principalID)
	if err != nil {
		return nil, oops.Code("RECORD_GET_BY_PRINCIPAL_FAILED").
			With("operation", "get login_records by principal").
			With("principal_id", principalID).
			Wrap(err)
	}
	defer rows.Close()

	var recs []*session.LoginRecord
	for rows.Next() {
		rec, err := scanLoginRecord(rows)
		if err != nil {
			return nil, oops.Code("RECORD_SCAN_FAILED").
				With("operation", "scan login_record row").
				Wrap(err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RECORD_ROWS_ERROR").
			With("operation", "iterate login_record rows").
			Wrap(err)
	}
	return recs, nil
}

// MarkVerified flips the verified flag and stamps the time.
func (r *LoginRecordRepository) MarkVerified(ctx context.Context, token string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE login_records SET verified = TRUE, verified_at = $2
		WHERE token = $1
	`, token, at)
	if err != nil {
		return oops.Code("RECORD_MARK_VERIFIED_FAILED").
			With("operation", "update login_record verified").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RECORD_NOT_FOUND").Wrap(session.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes records past their expiry and returns the count.
func (r *LoginRecordRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM login_records WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("RECORD_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired login_records").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanLoginRecord scans a single row into a LoginRecord. Callers handle
// pgx.ErrNoRows.
func scanLoginRecord(row pgx.Row) (*session.LoginRecord, error) {
	var (
		idStr       string
		principalID int64
		token       string
		address     string
		clientInfo  string
		region      string
		verified    bool
		newLocation bool
		createdAt   time.Time
		verifiedAt  *time.Time
		expiresAt   time.Time
	)

	err := row.Scan(&idStr, &principalID, &token, &address, &clientInfo, &region, &verified, &newLocation, &createdAt, &verifiedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("RECORD_SCAN_FAILED").
			With("operation", "scan login_record").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RECORD_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &session.LoginRecord{
		ID:          id,
		PrincipalID: principalID,
		Token:       token,
		Address:     address,
		ClientInfo:  clientInfo,
		Region:      region,
		Verified:    verified,
		NewLocation: newLocation,
		CreatedAt:   createdAt,
		VerifiedAt:  verifiedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// Compile-time interface check.
var _ session.LoginRecordRepository = (*LoginRecordRepository)(nil)
