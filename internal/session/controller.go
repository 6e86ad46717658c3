package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"goose/internal/store"
	"goose/pkg/logging"
)

var errNoUser = errors.New("backend returned no user")

// Controller owns the session state. It is safe for concurrent use.
//
// mu guards state and is never held across gateway calls. Store writes
// happen under mu so a stale result cannot interleave with a logout.
type Controller struct {
	api   AuthAPI
	store store.Store

	startOnce sync.Once

	mu             sync.Mutex
	state          State
	user           *UserProfile
	generation     uint64
	loginPending   bool
	logouts        int
	subscribers    map[int]func(Snapshot)
	nextSubscriber int
}

// NewController creates a controller in StateInitializing. Call Start to
// validate any persisted session.
func NewController(api AuthAPI, st store.Store) *Controller {
	return &Controller{
		api:         api,
		store:       st,
		state:       StateInitializing,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Start validates the persisted token, once. A token the backend rejects
// is removed from the store. Later calls return the current snapshot.
//
// If ctx ends before the backend answers, the session becomes Anonymous
// but the token is kept for the next run to validate.
func (c *Controller) Start(ctx context.Context) Snapshot {
	c.startOnce.Do(func() {
		c.validate(ctx)
	})
	return c.Snapshot()
}

func (c *Controller) validate(ctx context.Context) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	token, ok := c.store.Get(store.TokenKey)
	if !ok || token == "" {
		logging.Debug("Session", "No stored session token")
		c.settle(gen, func() {
			c.store.Remove(store.UserKey)
		})
		return
	}

	user, err := c.api.GetCurrentUser(ctx)
	if err == nil && user == nil {
		err = errNoUser
	}

	if err != nil {
		if ctx.Err() != nil {
			logging.Warn("Session", "Session validation interrupted: %v", ctx.Err())
			c.settle(gen, nil)
			return
		}

		logging.Info("Session", "Stored session is no longer valid, signing out locally: %v", err)
		c.settle(gen, func() {
			c.api.ClearToken()
			c.store.Remove(store.UserKey)
			logging.Audit(logging.AuditEvent{
				Event:     "session_token_discarded",
				Subsystem: "Session",
				Outcome:   "success",
				Attrs:     []slog.Attr{slog.String("reason", err.Error())},
			})
		})
		return
	}

	profile := profileFromUser(user)
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		logging.Debug("Session", "Discarding startup validation result after logout")
		return
	}
	c.cacheProfileLocked(profile)
	c.user = profile
	c.state = StateAuthenticated
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logging.Info("Session", "Restored session for %s", profile.Email)
	c.publish(snap)
}

// settle moves to Anonymous, running teardown under the lock, unless a
// logout already did.
func (c *Controller) settle(gen uint64, teardown func()) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if teardown != nil {
		teardown()
	}
	c.user = nil
	c.state = StateAnonymous
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// LoginWithIdentityAssertion exchanges assertion for a session. Gateway
// errors are returned unchanged and leave the state as it was.
func (c *Controller) LoginWithIdentityAssertion(ctx context.Context, assertion string) (*UserProfile, error) {
	c.mu.Lock()
	switch {
	case c.state == StateInitializing:
		c.mu.Unlock()
		return nil, ErrInitializing
	case c.logouts > 0:
		c.mu.Unlock()
		return nil, ErrLogoutInProgress
	case c.loginPending:
		c.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	c.loginPending = true
	gen := c.generation
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loginPending = false
		c.mu.Unlock()
	}()

	resp, err := c.api.Login(ctx, assertion)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Event:     "login",
			Subsystem: "Session",
			Outcome:   "failure",
			Attrs:     []slog.Attr{slog.String("error", err.Error())},
		})
		return nil, err
	}

	switch {
	case resp == nil:
		return nil, ErrInvalidLoginResponse
	case resp.Token == "":
		return nil, fmt.Errorf("%w: missing token", ErrInvalidLoginResponse)
	case resp.User == nil:
		return nil, fmt.Errorf("%w: missing user", ErrInvalidLoginResponse)
	}

	profile := profileFromUser(resp.User)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		logging.Warn("Session", "Discarding login result: session was signed out while it was in flight")
		return nil, ErrSessionChanged
	}
	c.api.SetToken(resp.Token)
	c.cacheProfileLocked(profile)
	c.user = profile
	c.state = StateAuthenticated
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logging.Audit(logging.AuditEvent{
		Event:     "login",
		Subsystem: "Session",
		Outcome:   "success",
		Attrs:     []slog.Attr{slog.String("user_id", profile.ID)},
	})
	c.publish(snap)

	copied := *profile
	return &copied, nil
}

// Logout ends the session. The backend is told on a best-effort basis;
// local state is always cleared and no error is returned.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.logouts++
	c.mu.Unlock()

	if token, ok := c.store.Get(store.TokenKey); ok && token != "" {
		if err := c.api.Logout(ctx); err != nil {
			logging.Warn("Session", "Backend logout failed, clearing local session anyway: %v", err)
		}
	}

	c.mu.Lock()
	c.api.ClearToken()
	c.store.Remove(store.UserKey)
	c.user = nil
	c.state = StateAnonymous
	c.logouts--
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logging.Audit(logging.AuditEvent{
		Event:     "logout",
		Subsystem: "Session",
		Outcome:   "success",
	})
	c.publish(snap)
}

// cacheProfileLocked REQUIRES c.mu held.
func (c *Controller) cacheProfileLocked(p *UserProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		logging.Warn("Session", "Failed to encode user profile: %v", err)
		return
	}
	c.store.Set(store.UserKey, string(data))
}

// CachedProfile returns the advisory profile copy from the store, which
// may be stale. Use User for the authoritative value.
func (c *Controller) CachedProfile() (*UserProfile, bool) {
	raw, ok := c.store.Get(store.UserKey)
	if !ok || raw == "" {
		return nil, false
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logging.Debug("Session", "Ignoring unreadable cached profile: %v", err)
		return nil, false
	}
	return &p, true
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	var user *UserProfile
	if c.user != nil {
		copied := *c.user
		user = &copied
	}
	return Snapshot{
		State:         c.state,
		Loading:       c.state == StateInitializing,
		Authenticated: user != nil,
		User:          user,
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.Snapshot().State
}

// User returns a copy of the signed-in user, or nil.
func (c *Controller) User() *UserProfile {
	return c.Snapshot().User
}

// Loading reports whether startup validation is still running.
func (c *Controller) Loading() bool {
	return c.Snapshot().Loading
}

// IsAuthenticated reports whether a user is signed in.
func (c *Controller) IsAuthenticated() bool {
	return c.Snapshot().Authenticated
}

// Subscribe registers fn to be called with the new snapshot after every
// transition. fn runs on the goroutine that caused the transition and
// must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) publish(snap Snapshot) {
	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
