// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/samber/oops"
)

// Token configuration.
const (
	// TokenBytes is the entropy of a session token. 32 bytes encode to
	// 43 base64url characters, safe to embed in URLs and headers.
	TokenBytes = 32

	// VerificationCodeDigits is the length of a human-enterable
	// verification code.
	VerificationCodeDigits = 8
)

// NewToken creates an unguessable, URL-safe session token.
// Returns ErrEntropyUnavailable if the secure random source cannot be read.
func NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(errors.Join(ErrEntropyUnavailable, err))
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewVerificationCode creates a short numeric code for second-factor
// verification. Each digit is drawn independently from the secure random
// source to avoid modulo bias.
// Returns ErrEntropyUnavailable if the secure random source cannot be read.
func NewVerificationCode() (string, error) {
	digits := make([]byte, VerificationCodeDigits)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", oops.Code("CODE_GENERATE_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(errors.Join(ErrEntropyUnavailable, err))
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
