// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempoverse/tempo/internal/session"
)

func TestNewToken(t *testing.T) {
	t.Run("produces URL-safe tokens of full entropy", func(t *testing.T) {
		token, err := session.NewToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err, "token should be valid base64url")
		assert.Len(t, raw, session.TokenBytes)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 64 {
			token, err := session.NewToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "token collision")
			seen[token] = true
		}
	})
}

func TestNewVerificationCode(t *testing.T) {
	t.Run("produces numeric codes of fixed length", func(t *testing.T) {
		code, err := session.NewVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, session.VerificationCodeDigits)
		for _, r := range code {
			assert.GreaterOrEqual(t, r, '0')
			assert.LessOrEqual(t, r, '9')
		}
	})

	t.Run("codes vary", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 32 {
			code, err := session.NewVerificationCode()
			require.NoError(t, err)
			seen[code] = true
		}
		// 32 draws from a 10^8 space colliding into one value is broken entropy.
		assert.Greater(t, len(seen), 1)
	})
}
