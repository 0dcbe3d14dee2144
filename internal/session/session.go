// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"time"

	"github.com/samber/oops"
)

// State is the lifecycle state of a session.
type State string

// Lifecycle states. OFFLINE is never stored: it is the absence of a
// session in the Store.
const (
	StateOffline             State = "offline"
	StateOnline              State = "online"
	StatePendingVerification State = "pending_verification"
	StateFailing             State = "failing"
)

// Valid reports whether s is a member of the state enumeration.
func (s State) Valid() bool {
	switch s {
	case StateOffline, StateOnline, StatePendingVerification, StateFailing:
		return true
	}
	return false
}

// Principal identifies the account a session belongs to.
type Principal struct {
	ID       int64
	Username string
	Email    string
}

// Origin describes where a login attempt came from.
type Origin struct {
	Address    string // originating network address
	Region     string // originating region code
	ClientInfo string // client descriptor (user agent or build string)
}

// Session represents one authenticated-or-authenticating client
// connection. The Store owns the canonical copy; everything callers see
// is a value copy, and all mutation goes through the Controller.
type Session struct {
	Token                   string
	PrincipalID             int64
	Username                string
	Email                   string
	State                   State
	RequiresVerification    bool
	VerificationSent        bool
	VerificationMethod      Method
	LastDispatchAt          time.Time
	LastVerificationAttempt time.Time
	FailedAttempts          int
	Address                 string
	Region                  string
	ClientInfo              string
	NewLocation             bool
	CreatedAt               time.Time
}

// NewSession creates a validated Session. A session created from a new
// location starts in PENDING_VERIFICATION and requires a second factor;
// otherwise it is ONLINE immediately.
func NewSession(token string, p Principal, origin Origin, newLocation bool) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("session token cannot be empty")
	}
	if p.ID <= 0 {
		return nil, oops.Code("SESSION_INVALID_PRINCIPAL").Errorf("principal ID must be positive")
	}

	state := StateOnline
	if newLocation {
		state = StatePendingVerification
	}

	return &Session{
		Token:                token,
		PrincipalID:          p.ID,
		Username:             p.Username,
		Email:                p.Email,
		State:                state,
		RequiresVerification: newLocation,
		VerificationMethod:   MethodNone,
		Address:              origin.Address,
		Region:               origin.Region,
		ClientInfo:           origin.ClientInfo,
		NewLocation:          newLocation,
		CreatedAt:            time.Now(),
	}, nil
}

// Pending reports whether the session is awaiting second-factor
// verification.
func (s *Session) Pending() bool {
	return s.State == StatePendingVerification
}

// RecordFailure increments the failed-attempt counter and flips the
// session to FAILING once threshold attempts have been consumed.
// Returns true if the session is now failing.
func (s *Session) RecordFailure(threshold int, at time.Time) bool {
	s.FailedAttempts++
	s.LastVerificationAttempt = at
	if threshold > 0 && s.FailedAttempts >= threshold {
		s.State = StateFailing
	}
	return s.State == StateFailing
}

// RecordSuccess promotes the session to ONLINE and resets the
// verification bookkeeping.
func (s *Session) RecordSuccess(at time.Time) {
	s.State = StateOnline
	s.RequiresVerification = false
	s.FailedAttempts = 0
	s.LastVerificationAttempt = at
}
