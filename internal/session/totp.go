// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // RFC 6238 mandates HMAC-SHA1
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Time-based code parameters (RFC 6238).
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30 * time.Second
	totpSkewSteps   = 1 // accept one step of clock skew either way
)

// NewTOTPSecret creates a base32-encoded secret for time-based codes.
// Returns ErrEntropyUnavailable if the secure random source cannot be read.
func NewTOTPSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("TOTP_SECRET_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(errors.Join(ErrEntropyUnavailable, err))
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// totpCodeAt computes the code for a secret at time t.
func totpCodeAt(secret string, t time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", oops.Code("TOTP_SECRET_INVALID").Wrap(err)
	}

	counter := uint64(t.Unix()) / uint64(totpPeriod/time.Second)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for range totpDigits {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, value%mod), nil
}

// verifyTOTP checks a submitted code against the secret, accepting
// totpSkewSteps steps of clock skew. Fails closed on any malformed input.
func verifyTOTP(secret, submitted string, now time.Time) bool {
	submitted = strings.TrimSpace(strings.ReplaceAll(submitted, " ", ""))
	if len(submitted) != totpDigits {
		return false
	}
	for _, r := range submitted {
		if r < '0' || r > '9' {
			return false
		}
	}

	for step := -totpSkewSteps; step <= totpSkewSteps; step++ {
		expected, err := totpCodeAt(secret, now.Add(time.Duration(step)*totpPeriod))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1 {
			return true
		}
	}
	return false
}
