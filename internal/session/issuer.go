// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/samber/oops"
)

// DefaultCodeTTL is the validity window for mailed verification codes.
const DefaultCodeTTL = 10 * time.Minute

// Issuer creates and validates time-boxed verification artifacts. It
// holds at most one artifact per session token: issuing supersedes any
// prior outstanding artifact for that session.
type Issuer struct {
	mu        sync.Mutex
	codeTTL   time.Duration
	now       func() time.Time
	artifacts map[string]*Artifact // keyed by session token
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithCodeTTL overrides the mailed-code validity window.
func WithCodeTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.codeTTL = ttl }
}

// WithIssuerClock overrides the time source. Tests use this for
// deterministic expiry.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an Issuer.
func NewIssuer(opts ...IssuerOption) *Issuer {
	i := &Issuer{
		codeTTL:   DefaultCodeTTL,
		now:       time.Now,
		artifacts: make(map[string]*Artifact),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints a new artifact for a session, superseding any outstanding
// one. For MethodMail the returned artifact carries the code to dispatch;
// for MethodTOTP the code is derived from the principal's secret at
// validation time. The returned artifact is a copy.
func (i *Issuer) Issue(sessionToken string, method Method, address, clientInfo string) (Artifact, error) {
	if method == MethodNone {
		method = MethodMail
	}

	var code string
	if method == MethodMail {
		c, err := NewVerificationCode()
		if err != nil {
			return Artifact{}, oops.Code("ISSUE_FAILED").
				With("operation", "generate verification code").
				Wrap(err)
		}
		code = c
	}

	now := i.now()
	a, err := NewArtifact(sessionToken, method, code, now, now.Add(i.codeTTL), address, clientInfo)
	if err != nil {
		return Artifact{}, oops.Code("ISSUE_FAILED").
			With("operation", "create artifact").
			Wrap(err)
	}

	i.mu.Lock()
	i.artifacts[sessionToken] = a
	i.mu.Unlock()

	return *a, nil
}

// Validate checks a submitted code against the session's outstanding
// artifact. Fails closed: no unconsumed artifact, an expired artifact, or
// a non-matching code all reject. On a match the artifact is marked
// consumed before Validate returns, so a code can never be replayed.
// Comparison is constant-time.
//
// secret is the principal's time-based-code secret; it is only consulted
// for MethodTOTP artifacts.
func (i *Issuer) Validate(sessionToken, submitted, secret string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	a, ok := i.artifacts[sessionToken]
	if !ok || a.Consumed {
		return errVerificationMismatch
	}

	now := i.now()
	if a.IsExpiredAt(now) {
		return errVerificationExpired
	}

	var match bool
	switch a.Method {
	case MethodTOTP:
		match = verifyTOTP(secret, submitted, now)
	default:
		match = subtle.ConstantTimeCompare([]byte(a.Code), []byte(submitted)) == 1
	}
	if !match {
		return errVerificationMismatch
	}

	a.Consumed = true
	a.ConsumedAt = now
	return nil
}

// Outstanding returns a copy of the session's current artifact, if any.
func (i *Issuer) Outstanding(sessionToken string) (Artifact, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	a, ok := i.artifacts[sessionToken]
	if !ok {
		return Artifact{}, false
	}
	return *a, true
}

// Drop discards the session's artifact, if any. Called when a session is
// removed so abandoned artifacts do not accumulate.
func (i *Issuer) Drop(sessionToken string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.artifacts, sessionToken)
}
