// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// LoginRecord is the durable shadow of a live Session's security-relevant
// fields. The in-memory Session is the source of truth for live traffic;
// the record is written on every state transition so session history
// survives restarts and supports audit queries.
type LoginRecord struct {
	ID          ulid.ULID
	PrincipalID int64
	Token       string
	Address     string
	ClientInfo  string
	Region      string
	Verified    bool
	NewLocation bool
	CreatedAt   time.Time
	VerifiedAt  *time.Time
	ExpiresAt   time.Time
}

// VerificationRecord is the durable audit row for an issued artifact.
type VerificationRecord struct {
	ID          ulid.ULID
	PrincipalID int64
	Contact     string
	Code        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Used        bool
	UsedAt      *time.Time
	Address     string
	ClientInfo  string
}

// LoginRecordRepository manages durable login records.
type LoginRecordRepository interface {
	// Create stores a new login record.
	Create(ctx context.Context, rec *LoginRecord) error

	// GetByToken retrieves a record by its session token.
	GetByToken(ctx context.Context, token string) (*LoginRecord, error)

	// GetByPrincipal retrieves all records for a principal, newest first.
	GetByPrincipal(ctx context.Context, principalID int64) ([]*LoginRecord, error)

	// MarkVerified flips the verified flag and stamps the time.
	MarkVerified(ctx context.Context, token string, at time.Time) error

	// DeleteExpired removes records past their expiry and returns the
	// count of deleted rows.
	DeleteExpired(ctx context.Context) (int64, error)
}

// VerificationRecordRepository manages durable verification audit rows.
type VerificationRecordRepository interface {
	// Create stores a new verification record.
	Create(ctx context.Context, rec *VerificationRecord) error

	// MarkUsed flips the used flag and stamps the time.
	MarkUsed(ctx context.Context, id ulid.ULID, at time.Time) error

	// DeleteExpired removes unused records past their expiry and returns
	// the count of deleted rows.
	DeleteExpired(ctx context.Context) (int64, error)
}
