// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import "context"

// Method is a second-factor verification method.
type Method string

// Verification methods. MethodNone means the principal has not chosen a
// method yet; the Controller falls back to mailed codes.
const (
	MethodNone Method = "none"
	MethodTOTP Method = "totp"
	MethodMail Method = "mail"
)

// Valid reports whether m is a member of the method enumeration.
func (m Method) Valid() bool {
	switch m {
	case MethodNone, MethodTOTP, MethodMail:
		return true
	}
	return false
}

// Verifiable is the capability set any verifiable principal must expose.
// The Controller depends only on this contract, never on how a principal
// persists.
type Verifiable interface {
	// Key returns the session key this principal is bound to.
	Key() string

	// KeyForEvent returns the key used when broadcasting verification
	// events for this principal.
	KeyForEvent() string

	// VerificationMethod returns the principal's configured second-factor
	// method.
	VerificationMethod() Method

	// IsVerified reports whether the principal has completed verification.
	IsVerified() bool

	// MarkVerified records that the principal completed verification.
	MarkVerified(ctx context.Context) error

	// SetVerificationMethod records the method chosen for this principal.
	SetVerificationMethod(ctx context.Context, method Method) error

	// UserID returns the owning user ID, if known.
	UserID() (int64, bool)
}

// TOTPSecretProvider is optionally implemented by principals that have a
// time-based-code secret enrolled. The Issuer requires it for MethodTOTP.
type TOTPSecretProvider interface {
	TOTPSecret() string
}

// VerifierSource looks up the verifiable principal bound to a session key.
type VerifierSource interface {
	// FindBySessionKey returns the principal for a session key, or
	// ErrNotFound if the key is unknown.
	FindBySessionKey(ctx context.Context, key string) (Verifiable, error)
}
