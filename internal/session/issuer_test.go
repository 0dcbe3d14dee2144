// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestIssuer_Issue(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()

	t.Run("mail artifact carries a code", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))

		art, err := i.Issue("tok_a", MethodMail, "203.0.113.9", "client/1")
		require.NoError(t, err)

		assert.Equal(t, MethodMail, art.Method)
		assert.Len(t, art.Code, VerificationCodeDigits)
		assert.Equal(t, base, art.CreatedAt)
		assert.Equal(t, base.Add(DefaultCodeTTL), art.ExpiresAt)
		assert.False(t, art.Consumed)
	})

	t.Run("method none falls back to mail", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))

		art, err := i.Issue("tok_a", MethodNone, "", "")
		require.NoError(t, err)
		assert.Equal(t, MethodMail, art.Method)
		assert.NotEmpty(t, art.Code)
	})

	t.Run("totp artifact has no stored code", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))

		art, err := i.Issue("tok_a", MethodTOTP, "", "")
		require.NoError(t, err)
		assert.Equal(t, MethodTOTP, art.Method)
		assert.Empty(t, art.Code)
	})

	t.Run("reissue supersedes the outstanding artifact", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))

		first, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)
		second, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)

		// The first code is dead the moment the second is issued.
		assert.ErrorIs(t, i.Validate("tok_a", first.Code, ""), errVerificationMismatch)
		require.NoError(t, i.Validate("tok_a", second.Code, ""))
	})

	t.Run("custom ttl", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)), WithCodeTTL(5*time.Minute))

		art, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)
		assert.Equal(t, base.Add(5*time.Minute), art.ExpiresAt)
	})
}

func TestIssuer_Validate(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()

	t.Run("correct code consumes the artifact", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))
		art, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)

		require.NoError(t, i.Validate("tok_a", art.Code, ""))

		stored, ok := i.Outstanding("tok_a")
		require.True(t, ok)
		assert.True(t, stored.Consumed)
		assert.Equal(t, base, stored.ConsumedAt)
	})

	t.Run("a code cannot be replayed", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))
		art, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)

		require.NoError(t, i.Validate("tok_a", art.Code, ""))
		assert.ErrorIs(t, i.Validate("tok_a", art.Code, ""), errVerificationMismatch)
	})

	t.Run("wrong code rejects", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))
		_, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)

		assert.ErrorIs(t, i.Validate("tok_a", "00000000", ""), errVerificationMismatch)
	})

	t.Run("no outstanding artifact rejects", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))
		assert.ErrorIs(t, i.Validate("tok_missing", "12345678", ""), errVerificationMismatch)
	})

	t.Run("expired artifact rejects", func(t *testing.T) {
		now := base
		i := NewIssuer(WithIssuerClock(func() time.Time { return now }))

		art, err := i.Issue("tok_a", MethodMail, "", "")
		require.NoError(t, err)

		now = base.Add(DefaultCodeTTL + time.Second)
		assert.ErrorIs(t, i.Validate("tok_a", art.Code, ""), errVerificationExpired)
	})

	t.Run("validates time-based codes against the secret", func(t *testing.T) {
		i := NewIssuer(WithIssuerClock(fixedClock(base)))
		_, err := i.Issue("tok_a", MethodTOTP, "", "")
		require.NoError(t, err)

		secret, err := NewTOTPSecret()
		require.NoError(t, err)
		code, err := totpCodeAt(secret, base)
		require.NoError(t, err)

		assert.ErrorIs(t, i.Validate("tok_a", "000000", secret), errVerificationMismatch)
		require.NoError(t, i.Validate("tok_a", code, secret))
	})
}

func TestIssuer_Drop(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	i := NewIssuer(WithIssuerClock(fixedClock(base)))

	art, err := i.Issue("tok_a", MethodMail, "", "")
	require.NoError(t, err)

	i.Drop("tok_a")
	_, ok := i.Outstanding("tok_a")
	assert.False(t, ok)
	assert.ErrorIs(t, i.Validate("tok_a", art.Code, ""), errVerificationMismatch)
}

func TestIssuer_OutstandingReturnsCopy(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	i := NewIssuer(WithIssuerClock(fixedClock(base)))

	_, err := i.Issue("tok_a", MethodMail, "", "")
	require.NoError(t, err)

	got, ok := i.Outstanding("tok_a")
	require.True(t, ok)
	got.Consumed = true

	again, ok := i.Outstanding("tok_a")
	require.True(t, ok)
	assert.False(t, again.Consumed, "callers must not mutate issuer state")
}
