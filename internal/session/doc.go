// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

// Package session tracks which game clients are authenticated and gates
// full access behind second-factor verification.
//
// # Domain Types
//
// Domain types (Session, Artifact, LoginRecord) should be created using
// their respective constructors:
//   - NewSession - creates a Session with a validated token and principal
//   - NewArtifact - creates a verification Artifact with a validated expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. The Store holds the canonical copy of every live Session; callers
// receive defensive copies and route mutations through the Controller.
//
// # Components
//
//   - Store - keyed registry of live sessions with per-entry locking
//   - Issuer - mints and validates time-boxed verification codes
//   - Controller - the lifecycle state machine (create, request, submit,
//     force-state, remove)
//   - Sweeper - removes stale pending sessions on a configurable cadence
//
// The Controller depends on principals only through the Verifiable
// contract, never on concrete storage.
package session
