// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"context"

	"github.com/samber/oops"
)

// SecretLookup resolves the enrolled time-based-code secret for a
// principal. Returning ok=false means no secret is enrolled.
type SecretLookup func(principalID int64) (secret string, ok bool)

// StoreVerifiers adapts the in-memory session store to the Verifiable
// contract. It is the default VerifierSource for deployments that keep
// principal verification state on the session itself; richer deployments
// substitute a source backed by their account store.
type StoreVerifiers struct {
	store   *Store
	secrets SecretLookup
}

// NewStoreVerifiers creates a StoreVerifiers. secrets may be nil when no
// principals have time-based codes enrolled.
func NewStoreVerifiers(store *Store, secrets SecretLookup) (*StoreVerifiers, error) {
	if store == nil {
		return nil, oops.Code("VERIFIERS_INVALID_DEPS").Errorf("session store is required")
	}
	return &StoreVerifiers{store: store, secrets: secrets}, nil
}

// FindBySessionKey returns the verifiable principal bound to a session
// key, or ErrNotFound if the key is unknown.
func (v *StoreVerifiers) FindBySessionKey(_ context.Context, key string) (Verifiable, error) {
	s, ok := v.store.Get(key)
	if !ok {
		return nil, oops.Code("VERIFIER_NOT_FOUND").Wrap(ErrNotFound)
	}

	sv := &storeVerifiable{store: v.store, snap: s}
	if v.secrets != nil {
		if secret, ok := v.secrets(s.PrincipalID); ok {
			return &secretVerifiable{storeVerifiable: sv, secret: secret}, nil
		}
	}
	return sv, nil
}

// storeVerifiable is a Verifiable view over one stored session. Reads
// come from the snapshot taken at lookup; writes go through the store.
type storeVerifiable struct {
	store *Store
	snap  Session
}

func (s *storeVerifiable) Key() string { return s.snap.Token }

func (s *storeVerifiable) KeyForEvent() string { return "verification:" + s.snap.Token }

func (s *storeVerifiable) VerificationMethod() Method { return s.snap.VerificationMethod }

func (s *storeVerifiable) IsVerified() bool {
	return s.snap.State == StateOnline || !s.snap.RequiresVerification
}

func (s *storeVerifiable) MarkVerified(_ context.Context) error {
	err := s.store.Mutate(s.snap.Token, func(cur *Session) error {
		cur.RequiresVerification = false
		return nil
	})
	if err != nil {
		return oops.Code("VERIFIER_MARK_FAILED").Wrap(err)
	}
	return nil
}

func (s *storeVerifiable) SetVerificationMethod(_ context.Context, method Method) error {
	if !method.Valid() {
		return oops.Code("VERIFIER_INVALID_METHOD").
			With("method", string(method)).
			Errorf("unknown verification method")
	}
	err := s.store.Mutate(s.snap.Token, func(cur *Session) error {
		cur.VerificationMethod = method
		return nil
	})
	if err != nil {
		return oops.Code("VERIFIER_SET_METHOD_FAILED").Wrap(err)
	}
	return nil
}

func (s *storeVerifiable) UserID() (int64, bool) { return s.snap.PrincipalID, true }

// secretVerifiable augments a storeVerifiable with an enrolled
// time-based-code secret.
type secretVerifiable struct {
	*storeVerifiable
	secret string
}

func (s *secretVerifiable) TOTPSecret() string { return s.secret }

var (
	_ VerifierSource     = (*StoreVerifiers)(nil)
	_ Verifiable         = (*storeVerifiable)(nil)
	_ TOTPSecretProvider = (*secretVerifiable)(nil)
)
