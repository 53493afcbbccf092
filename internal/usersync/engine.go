// Package usersync keeps a local user profile in step with the signed-in identity.
package usersync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SimpnicServerTeam/planner-usersync/internal/apiclient"
	"github.com/SimpnicServerTeam/planner-usersync/internal/logger"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/retry"
)

const (
	SyncTimeoutMessage    = "Connection timeout - the server is taking too long to respond. This may happen on first request after inactivity. Please retry."
	RefreshTimeoutMessage = "Connection timeout - the server is taking too long to respond. Please try again."
)

// ErrNotAuthenticated is returned by account operations called without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Identity is the signed-in user as the identity provider reports it.
type Identity = models.Identity

// API is the part of the user API the engine drives.
type API interface {
	GetProfile(ctx context.Context) (*models.UserProfile, error)
	CreateProfile(ctx context.Context, req models.SyncProfileRequest) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.UserProfile, error)
	DeleteAccount(ctx context.Context) error
}

var _ API = (*apiclient.Client)(nil)

// Options tunes an Engine.
type Options struct {
	// Policy for every profile read and create. The zero value means
	// retry.DefaultPolicy(apiclient.IsTimeout).
	Policy retry.Policy
}

type listener struct {
	id int
	fn func(Status)
}

// Engine runs the sync state machine for one client. It is safe for concurrent use.
type Engine struct {
	api    API
	tokens *apiclient.TokenSource
	policy retry.Policy
	log    zerolog.Logger

	mu         sync.Mutex
	identity   *Identity
	status     Status
	generation uint64
	inFlight   bool
	listeners  []listener
	nextID     int

	// Statuses waiting for delivery, drained by whichever goroutine is delivering.
	pending    []Status
	delivering bool
}

// New creates an idle engine. tokens must be the source the API client reads from.
func New(api API, tokens *apiclient.TokenSource, opts Options) *Engine {
	e := &Engine{
		api:    api,
		tokens: tokens,
		policy: opts.Policy,
		log:    logger.Component("usersync"),
		status: Idle(),
	}
	if e.policy.MaxAttempts == 0 {
		e.policy = retry.DefaultPolicy(apiclient.IsTimeout)
	}
	if e.policy.OnRetry == nil {
		e.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			e.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Sync attempt failed, retrying")
		}
	}
	return e
}

// Login starts a session: the provider is installed and the status resets to idle.
// Call EnsureSynced (or Sync) afterwards.
func (e *Engine) Login(identity Identity, provider apiclient.TokenProvider) {
	e.tokens.Set(provider)

	e.mu.Lock()
	e.generation++
	e.inFlight = false
	e.identity = &identity
	e.commitLocked(Idle())
}

// Logout clears the provider and the profile. Results of requests still in flight are dropped.
func (e *Engine) Logout() {
	e.tokens.Set(nil)

	e.mu.Lock()
	e.generation++
	e.inFlight = false
	e.identity = nil
	e.commitLocked(Idle())
}

// Status returns the current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Profile returns the last synced profile, or nil.
func (e *Engine) Profile() *models.UserProfile {
	return e.Status().Profile
}

// Roles returns the role flags of the current profile.
func (e *Engine) Roles() Roles {
	return RolesFor(e.Status())
}

// Authenticated reports whether a session is active.
func (e *Engine) Authenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity != nil
}

// OnChange registers fn to receive every new status in transition order. Listeners
// run outside the engine lock. The returned func unregisters fn.
func (e *Engine) OnChange(fn func(Status)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Sync makes sure a local profile exists for the session identity and loads it.
// A missing profile is created from the identity claims and read back. Sync never
// fails: errors end up in the returned Failed status. A call made while another
// sync is running returns the current status without issuing requests.
func (e *Engine) Sync(ctx context.Context) Status {
	e.mu.Lock()
	if e.identity == nil {
		if e.status.IsIdle() {
			defer e.mu.Unlock()
			return e.status
		}
		return e.commitLocked(Idle())
	}
	if e.inFlight {
		defer e.mu.Unlock()
		e.log.Debug().Msg("Sync already in progress, skipping")
		return e.status
	}
	e.inFlight = true
	gen := e.generation
	identity := *e.identity
	last := e.status.Profile
	e.commitLocked(Syncing(last))

	profile, err := e.syncProfile(ctx, identity)
	if err != nil {
		e.log.Error().Err(err).Str("sub", identity.Subject).Msg("Failed to sync user profile after retries")
		return e.finishSync(gen, failure(last, err, SyncTimeoutMessage))
	}
	e.log.Info().Str("sub", identity.Subject).Str("role", string(profile.Role)).Msg("User synced successfully")
	return e.finishSync(gen, Synced(profile))
}

func (e *Engine) syncProfile(ctx context.Context, identity Identity) (*models.UserProfile, error) {
	profile, err := retry.Do(ctx, e.policy, e.api.GetProfile)
	if err == nil {
		return profile, nil
	}
	if !apiclient.IsNotFound(err) {
		return nil, err
	}

	e.log.Info().Str("sub", identity.Subject).Msg("No local profile yet, creating it")
	req := models.SyncProfileRequest{
		Email:         identity.Email,
		Name:          identity.Name,
		Picture:       identity.Picture,
		EmailVerified: identity.EmailVerified,
	}
	if req.Name == "" {
		req.Name = identity.Email
	}
	_, err = retry.Do(ctx, e.policy, func(ctx context.Context) (struct{}, error) {
		_, err := e.api.CreateProfile(ctx, req)
		if apiclient.IsConflict(err) {
			// Someone else created it first.
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		return nil, err
	}

	return retry.Do(ctx, e.policy, e.api.GetProfile)
}

// Refresh re-reads the profile without create-on-miss, e.g. after an edit.
// Without a session, or while a sync or refresh is running, it returns the
// current status without issuing requests.
func (e *Engine) Refresh(ctx context.Context) Status {
	e.mu.Lock()
	if e.identity == nil {
		defer e.mu.Unlock()
		return e.status
	}
	if e.inFlight {
		defer e.mu.Unlock()
		e.log.Debug().Msg("Sync already in progress, skipping refresh")
		return e.status
	}
	e.inFlight = true
	gen := e.generation
	last := e.status.Profile
	e.mu.Unlock()

	profile, err := retry.Do(ctx, e.policy, e.api.GetProfile)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to refresh user after retries")
		return e.finishSync(gen, failure(last, err, RefreshTimeoutMessage))
	}
	return e.finishSync(gen, Synced(profile))
}

// Retry moves a failed engine back to idle so the next EnsureSynced runs again.
// It does not issue requests itself.
func (e *Engine) Retry() {
	e.mu.Lock()
	if !e.status.IsFailed() {
		e.mu.Unlock()
		return
	}
	e.commitLocked(Idle())
}

// EnsureSynced syncs when a session is active and the engine is idle. It is what a
// view calls when it appears; repeated calls after a sync are no-ops.
func (e *Engine) EnsureSynced(ctx context.Context) Status {
	e.mu.Lock()
	if e.identity == nil || !e.status.IsIdle() || e.inFlight {
		defer e.mu.Unlock()
		return e.status
	}
	e.mu.Unlock()
	return e.Sync(ctx)
}

// UpdateProfile sends the edit and then refreshes. Server errors such as validation
// failures are returned as is and leave the status untouched.
func (e *Engine) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (Status, error) {
	if !e.Authenticated() {
		return e.Status(), ErrNotAuthenticated
	}
	if _, err := e.api.UpdateProfile(ctx, req); err != nil {
		return e.Status(), err
	}
	return e.Refresh(ctx), nil
}

// DeleteAccount deletes the account server side and logs out.
func (e *Engine) DeleteAccount(ctx context.Context) error {
	if !e.Authenticated() {
		return ErrNotAuthenticated
	}
	if err := e.api.DeleteAccount(ctx); err != nil {
		return err
	}
	e.log.Info().Msg("Account deleted, logging out")
	e.Logout()
	return nil
}

func failure(last *models.UserProfile, err error, timeoutMessage string) Status {
	if apiclient.IsTimeout(err) {
		return Failed(last, timeoutMessage, true, err)
	}
	return Failed(last, err.Error(), false, err)
}

// finishSync stores st if the session that produced it is still current, clearing the
// in-flight flag in the same step.
func (e *Engine) finishSync(gen uint64, st Status) Status {
	e.mu.Lock()
	if gen == e.generation {
		e.inFlight = false
	}
	return e.commitGenLocked(gen, st)
}

func (e *Engine) commitGenLocked(gen uint64, st Status) Status {
	if gen != e.generation {
		defer e.mu.Unlock()
		e.log.Debug().Str("status", st.String()).Msg("Discarding result from an ended session")
		return e.status
	}
	return e.commitLocked(st)
}

// commitLocked stores st and delivers it to listeners. e.mu must be held; it is released.
func (e *Engine) commitLocked(st Status) Status {
	e.status = st
	e.pending = append(e.pending, st)
	if e.delivering {
		e.mu.Unlock()
		return st
	}

	e.delivering = true
	for len(e.pending) > 0 {
		batch := e.pending
		e.pending = nil
		fns := make([]func(Status), len(e.listeners))
		for i, l := range e.listeners {
			fns[i] = l.fn
		}
		e.mu.Unlock()
		for _, s := range batch {
			for _, fn := range fns {
				fn(s)
			}
		}
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
	return st
}
