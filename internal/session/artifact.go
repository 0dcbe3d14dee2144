// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Artifact is a short-lived verification code bound to exactly one
// session and one delivery method. At most one unconsumed, unexpired
// artifact exists per session; issuing a new one supersedes the prior.
type Artifact struct {
	ID           ulid.ULID
	SessionToken string
	Method       Method
	Code         string // empty for MethodTOTP; the code is time-derived
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Consumed     bool
	ConsumedAt   time.Time
	Address      string
	ClientInfo   string
}

// NewArtifact creates a validated Artifact. Expiry must be strictly
// after creation.
func NewArtifact(sessionToken string, method Method, code string, createdAt, expiresAt time.Time, address, clientInfo string) (*Artifact, error) {
	if sessionToken == "" {
		return nil, oops.Code("ARTIFACT_INVALID_SESSION").Errorf("session token cannot be empty")
	}
	if !method.Valid() || method == MethodNone {
		return nil, oops.Code("ARTIFACT_INVALID_METHOD").With("method", string(method)).Errorf("invalid verification method")
	}
	if method == MethodMail && code == "" {
		return nil, oops.Code("ARTIFACT_INVALID_CODE").Errorf("mailed artifact requires a code")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("ARTIFACT_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}

	return &Artifact{
		ID:           ulid.Make(),
		SessionToken: sessionToken,
		Method:       method,
		Code:         code,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		Address:      address,
		ClientInfo:   clientInfo,
	}, nil
}

// IsExpiredAt reports whether the artifact would be expired at t.
func (a *Artifact) IsExpiredAt(t time.Time) bool {
	return t.After(a.ExpiresAt)
}
