// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/tempoverse/tempo/pkg/errutil"
)

// Controller defaults.
const (
	// DefaultMaxAttempts is the failed-submission count at which a
	// session flips to FAILING.
	DefaultMaxAttempts = 5

	// DefaultResendInterval is the minimum gap between code dispatches
	// for one session.
	DefaultResendInterval = time.Minute

	// DefaultRecordTTL is the expiry stamped on durable login records.
	DefaultRecordTTL = 24 * time.Hour

	// createTokenRetries bounds regeneration on a live-token collision.
	// With 256-bit tokens a single retry is already vanishingly unlikely.
	createTokenRetries = 5

	// recordWriteTimeout bounds one durable write-through, retries
	// included.
	recordWriteTimeout = 10 * time.Second

	recordWriteRetries = 3
)

// Controller is the session lifecycle state machine. It is the only
// mutator of session state and the only caller of the Verification
// Issuer. All durable writes are fire-and-forget with bounded retry:
// the in-memory transition is observable before, and independently of,
// the durable write succeeding.
type Controller struct {
	store          *Store
	issuer         *Issuer
	verifiers      VerifierSource
	dispatcher     Dispatcher
	records        LoginRecordRepository
	verifications  VerificationRecordRepository
	logger         *slog.Logger
	metrics        *Metrics
	maxAttempts    int
	resendInterval time.Duration
	recordTTL      time.Duration
	now            func() time.Time

	writes sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLoginRecords enables the durable login-record shadow.
func WithLoginRecords(repo LoginRecordRepository) ControllerOption {
	return func(c *Controller) { c.records = repo }
}

// WithVerificationRecords enables durable verification audit rows.
func WithVerificationRecords(repo VerificationRecordRepository) ControllerOption {
	return func(c *Controller) { c.verifications = repo }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics sets the controller metrics.
func WithMetrics(m *Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithMaxAttempts overrides the failed-attempt threshold.
func WithMaxAttempts(n int) ControllerOption {
	return func(c *Controller) { c.maxAttempts = n }
}

// WithResendInterval overrides the dispatch throttle window.
func WithResendInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.resendInterval = d }
}

// WithRecordTTL overrides the expiry stamped on durable login records.
func WithRecordTTL(d time.Duration) ControllerOption {
	return func(c *Controller) { c.recordTTL = d }
}

// WithClock overrides the time source. Tests use this for deterministic
// throttle and expiry behavior.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// NewController creates a Controller.
func NewController(store *Store, issuer *Issuer, verifiers VerifierSource, dispatcher Dispatcher, opts ...ControllerOption) (*Controller, error) {
	if store == nil {
		return nil, oops.Code("CONTROLLER_INVALID_DEPS").Errorf("session store is required")
	}
	if issuer == nil {
		return nil, oops.Code("CONTROLLER_INVALID_DEPS").Errorf("verification issuer is required")
	}
	if verifiers == nil {
		return nil, oops.Code("CONTROLLER_INVALID_DEPS").Errorf("verifier source is required")
	}
	if dispatcher == nil {
		return nil, oops.Code("CONTROLLER_INVALID_DEPS").Errorf("dispatcher is required")
	}

	c := &Controller{
		store:          store,
		issuer:         issuer,
		verifiers:      verifiers,
		dispatcher:     dispatcher,
		logger:         slog.Default(),
		maxAttempts:    DefaultMaxAttempts,
		resendInterval: DefaultResendInterval,
		recordTTL:      DefaultRecordTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c, nil
}

// Create materializes a session after a successful primary-credential
// check. A login from a new location lands in PENDING_VERIFICATION;
// anything else goes ONLINE directly. The returned token is unique among
// live sessions.
func (c *Controller) Create(ctx context.Context, p Principal, origin Origin, newLocation bool) (Session, error) {
	if p.ID <= 0 {
		return Session{}, oops.Code("SESSION_INVALID_PRINCIPAL").Errorf("principal ID must be positive")
	}

	var sess *Session
	for range createTokenRetries {
		token, err := NewToken()
		if err != nil {
			return Session{}, oops.Code("SESSION_CREATE_FAILED").
				With("operation", "generate session token").
				Wrap(err)
		}
		s, err := NewSession(token, p, origin, newLocation)
		if err != nil {
			return Session{}, oops.Code("SESSION_CREATE_FAILED").
				With("operation", "create session").
				Wrap(err)
		}
		if c.store.PutIfAbsent(s) {
			sess = s
			break
		}
	}
	if sess == nil {
		return Session{}, oops.Code("SESSION_TOKEN_COLLISION").
			With("retries", createTokenRetries).
			Errorf("could not generate a unique session token")
	}

	c.metrics.SessionsCreated.WithLabelValues(string(sess.State)).Inc()
	c.metrics.ActiveSessions.Set(float64(c.store.Len()))
	c.logger.InfoContext(ctx, "session created",
		"principal_id", p.ID,
		"state", string(sess.State),
		"new_location", newLocation,
		"region", origin.Region,
	)

	if c.records != nil {
		rec := &LoginRecord{
			ID:          ulid.Make(),
			PrincipalID: p.ID,
			Token:       sess.Token,
			Address:     origin.Address,
			ClientInfo:  origin.ClientInfo,
			Region:      origin.Region,
			Verified:    !newLocation,
			NewLocation: newLocation,
			CreatedAt:   sess.CreatedAt,
			ExpiresAt:   sess.CreatedAt.Add(c.recordTTL),
		}
		c.writeAsync("create login record", func(ctx context.Context) error {
			return c.records.Create(ctx, rec)
		})
	}

	return *sess, nil
}

// Get returns a read-only copy of a live session.
func (c *Controller) Get(token string) (Session, error) {
	s, ok := c.store.Get(token)
	if !ok {
		return Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	return s, nil
}

// RequestVerification mints a verification artifact for a pending
// session and, for mailed codes, hands it to the delivery channel. Each
// call supersedes any prior outstanding artifact for the session. The
// throttle check, issuance, dispatch, and bookkeeping all run under the
// session's entry lock, so concurrent requests for one token serialize
// and at most one passes the throttle. A session removed before the lock
// is taken reports not-found with no artifact issued; a removal after
// drops the artifact through Remove.
// Delivery failure is reported through the DispatchStatus, never as an
// error, so the caller can offer a resend.
func (c *Controller) RequestVerification(ctx context.Context, token string) (DispatchStatus, error) {
	// Contract lookup may do I/O, so it happens before the entry lock.
	method := c.resolveMethod(ctx, token)

	status := DispatchNone
	mutErr := c.store.Mutate(token, func(s *Session) error {
		if !s.Pending() {
			return oops.Code("VERIFY_REQUEST_INVALID_STATE").
				With("state", string(s.State)).
				Wrap(ErrInvalidTransition)
		}

		now := c.now()
		if c.resendInterval > 0 && s.VerificationSent && now.Sub(s.LastDispatchAt) < c.resendInterval {
			status = DispatchThrottled
			return nil
		}

		art, err := c.issuer.Issue(token, method, s.Address, s.ClientInfo)
		if err != nil {
			return oops.Code("VERIFY_REQUEST_FAILED").
				With("operation", "issue artifact").
				Wrap(err)
		}

		if c.verifications != nil {
			rec := &VerificationRecord{
				ID:          art.ID,
				PrincipalID: s.PrincipalID,
				Contact:     s.Email,
				Code:        art.Code,
				CreatedAt:   art.CreatedAt,
				ExpiresAt:   art.ExpiresAt,
				Address:     art.Address,
				ClientInfo:  art.ClientInfo,
			}
			c.writeAsync("create verification record", func(ctx context.Context) error {
				return c.verifications.Create(ctx, rec)
			})
		}

		if art.Method == MethodMail {
			if err := c.dispatcher.DispatchCode(ctx, s.Email, art.Code); err != nil {
				status = DispatchFailed
				c.metrics.DispatchFailures.Inc()
				errutil.LogError(c.logger, "verification code dispatch failed", err)
			} else {
				status = DispatchSent
			}
		}

		s.VerificationMethod = art.Method
		s.LastDispatchAt = now
		if status != DispatchFailed {
			s.VerificationSent = true
		}
		return nil
	})
	switch {
	case errors.Is(mutErr, ErrNotFound):
		return DispatchFailed, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	case mutErr != nil:
		return DispatchFailed, mutErr
	}
	return status, nil
}

// resolveMethod picks the verification method through the principal's
// contract, falling back to mailed codes when no preference is set or
// the principal store is unavailable. Storage failures are isolated
// here: they log, they never surface through the transition.
func (c *Controller) resolveMethod(ctx context.Context, token string) Method {
	v, err := c.verifiers.FindBySessionKey(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(c.logger, "verifier lookup failed", err)
		}
		return MethodMail
	}

	if m := v.VerificationMethod(); m != MethodNone {
		return m
	}
	if err := v.SetVerificationMethod(ctx, MethodMail); err != nil {
		errutil.LogError(c.logger, "persisting verification method failed", err)
	}
	return MethodMail
}

// SubmitVerification validates a submitted code for a pending session.
// On success the session goes ONLINE and the principal is marked
// verified. On failure the failed-attempt counter increments; past the
// threshold the session flips to FAILING and every further submission
// fails with ErrTooManyFailedAttempts.
//
// All rejections other than the threshold are reported as the generic
// ErrVerificationFailed: callers never learn whether the code was wrong,
// expired, or the session unknown.
func (c *Controller) SubmitVerification(ctx context.Context, token, submitted string) error {
	// Contract lookup may do I/O, so it happens before the entry lock.
	var verifiable Verifiable
	var secret string
	if v, err := c.verifiers.FindBySessionKey(ctx, token); err == nil {
		verifiable = v
		if sp, ok := v.(TOTPSecretProvider); ok {
			secret = sp.TOTPSecret()
		}
	} else if !errors.Is(err, ErrNotFound) {
		errutil.LogError(c.logger, "verifier lookup failed", err)
	}

	now := c.now()
	var rejected error
	mutErr := c.store.Mutate(token, func(s *Session) error {
		switch s.State {
		case StateFailing:
			return ErrTooManyFailedAttempts
		case StatePendingVerification:
			// proceed
		default:
			return oops.Code("VERIFY_SUBMIT_INVALID_STATE").
				With("state", string(s.State)).
				Wrap(ErrInvalidTransition)
		}

		// Validation and the counter update happen under the entry lock,
		// so an abandoned caller still leaves the session consistent.
		rejected = c.issuer.Validate(token, submitted, secret)
		if rejected != nil {
			s.RecordFailure(c.maxAttempts, now)
			return nil
		}
		s.RecordSuccess(now)
		return nil
	})

	switch {
	case errors.Is(mutErr, ErrNotFound):
		c.metrics.VerificationAttempts.WithLabelValues("unknown_session").Inc()
		return oops.Code("VERIFY_FAILED").Wrap(ErrVerificationFailed)
	case errors.Is(mutErr, ErrTooManyFailedAttempts):
		c.metrics.VerificationAttempts.WithLabelValues("locked").Inc()
		return oops.Code("VERIFY_LOCKED").Wrap(ErrTooManyFailedAttempts)
	case mutErr != nil:
		return mutErr
	}

	if rejected != nil {
		c.metrics.VerificationAttempts.WithLabelValues("failure").Inc()
		c.logger.DebugContext(ctx, "verification rejected", "cause", rejected.Error())
		return oops.Code("VERIFY_FAILED").Wrap(ErrVerificationFailed)
	}

	c.metrics.VerificationAttempts.WithLabelValues("success").Inc()
	c.logger.InfoContext(ctx, "session verified", "token_prefix", tokenPrefix(token))

	// Post-transition side effects are best effort: the in-memory state
	// is already ONLINE and is never rolled back.
	if verifiable != nil {
		if err := verifiable.MarkVerified(ctx); err != nil {
			errutil.LogError(c.logger, "marking principal verified failed", err)
		}
	}
	if c.verifications != nil {
		if art, ok := c.issuer.Outstanding(token); ok {
			c.writeAsync("mark verification used", func(ctx context.Context) error {
				return c.verifications.MarkUsed(ctx, art.ID, now)
			})
		}
	}
	if c.records != nil {
		c.writeAsync("mark login record verified", func(ctx context.Context) error {
			return c.records.MarkVerified(ctx, token, now)
		})
	}
	return nil
}

// SetState forces a session into the given state with no precondition.
// Administrative escape hatch for abuse response.
func (c *Controller) SetState(token string, state State) error {
	if !state.Valid() {
		return oops.Code("SESSION_INVALID_STATE").With("state", string(state)).Errorf("unknown session state")
	}
	err := c.store.Mutate(token, func(s *Session) error {
		s.State = state
		if state == StateOnline {
			s.RequiresVerification = false
		}
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_NOT_FOUND").Wrap(err)
	}
	return nil
}

// Remove deletes a session from the store. Allowed from any state;
// terminal. The durable login record is kept as audit trail.
func (c *Controller) Remove(token string) {
	c.store.Remove(token)
	c.issuer.Drop(token)
	c.metrics.ActiveSessions.Set(float64(c.store.Len()))
}

// Close waits for outstanding durable writes to drain. Call on shutdown.
func (c *Controller) Close() {
	c.writes.Wait()
}

// writeAsync runs a durable write detached from the caller with bounded
// exponential retry. Permanent failure is logged and counted, never
// rolled back into in-memory state.
func (c *Controller) writeAsync(op string, fn func(context.Context) error) {
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordWriteTimeout)
		defer cancel()

		backoff := retry.WithMaxRetries(recordWriteRetries, retry.NewExponential(100*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(fn(ctx))
		})
		if err != nil {
			c.metrics.RecordWriteFailures.Inc()
			errutil.LogError(c.logger, "durable write failed: "+op, err)
		}
	}()
}

// tokenPrefix returns a short, log-safe prefix of a session token.
func tokenPrefix(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}
	return token[:n]
}
