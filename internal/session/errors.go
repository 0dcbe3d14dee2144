// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import "errors"

var (
	// ErrNotFound is returned when no live session exists for a token.
	// Callers treat it as "not logged in".
	ErrNotFound = errors.New("session not found")

	// ErrEntropyUnavailable is returned when the secure random source
	// cannot be read. Fatal: session and artifact creation abort rather
	// than fall back to a weaker source.
	ErrEntropyUnavailable = errors.New("entropy source unavailable")

	// ErrVerificationFailed is the only failure the Controller reports
	// for a rejected code. It deliberately does not distinguish a wrong
	// code from an expired or missing artifact.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrTooManyFailedAttempts is returned once a session has crossed the
	// failed-attempt threshold. The session is failing and must be
	// recreated by a fresh login.
	ErrTooManyFailedAttempts = errors.New("too many failed verification attempts")

	// ErrInvalidTransition is returned when an operation is not legal in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// errVerificationExpired and errVerificationMismatch are the Issuer's
	// typed causes. The Controller collapses both into
	// ErrVerificationFailed before they reach a caller.
	errVerificationExpired  = errors.New("verification code expired")
	errVerificationMismatch = errors.New("verification code mismatch")
)
