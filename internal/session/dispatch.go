// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"context"
	"log/slog"
)

// DispatchStatus reports what happened to a verification-code delivery.
// Delivery failures are surfaced through this status, never through the
// Controller's transition errors, so a caller can offer a resend without
// the session state being corrupted.
type DispatchStatus string

const (
	// DispatchSent means the code was handed to the delivery channel.
	DispatchSent DispatchStatus = "sent"

	// DispatchFailed means the delivery channel rejected the code. The
	// session stays in PENDING_VERIFICATION and the caller may resend.
	DispatchFailed DispatchStatus = "failed"

	// DispatchThrottled means a dispatch happened too recently.
	DispatchThrottled DispatchStatus = "throttled"

	// DispatchNone means the method needs no delivery (time-based codes).
	DispatchNone DispatchStatus = "none"
)

// Dispatcher delivers a verification code to a principal's contact
// address. Implementations live with the mail/SMS collaborator; this
// package only defines the seam.
type Dispatcher interface {
	DispatchCode(ctx context.Context, contact, code string) error
}

// LogDispatcher logs codes instead of delivering them. Development and
// test use only.
type LogDispatcher struct {
	Logger *slog.Logger
}

// DispatchCode logs the code at debug level.
func (d LogDispatcher) DispatchCode(_ context.Context, contact, code string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("dispatching verification code", "contact", contact, "code", code)
	return nil
}
