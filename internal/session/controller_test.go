package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose/internal/gateway"
	"goose/internal/store"
	"goose/internal/testing/mock"
)

type fixture struct {
	backend *mock.Backend
	store   *store.Memory
	client  *gateway.Client
	ctrl    *Controller
}

func newFixture(t *testing.T, cfg ...mock.BackendConfig) *fixture {
	t.Helper()
	var backendCfg mock.BackendConfig
	if len(cfg) > 0 {
		backendCfg = cfg[0]
	}
	backend := mock.NewBackend(backendCfg)
	t.Cleanup(backend.Close)
	st := store.NewMemory()
	client := gateway.New(backend.URL(), st)
	return &fixture{
		backend: backend,
		store:   st,
		client:  client,
		ctrl:    NewController(client, st),
	}
}

func (f *fixture) seedToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := f.backend.IssueToken(sub)
	require.NoError(t, err)
	f.store.Set(store.TokenKey, token)
	return token
}

func (f *fixture) startAnonymous(t *testing.T) {
	t.Helper()
	snap := f.ctrl.Start(context.Background())
	require.Equal(t, StateAnonymous, snap.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestController_InitialSnapshot(t *testing.T) {
	f := newFixture(t)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateInitializing, snap.State)
	assert.True(t, snap.Loading)
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.User)
}

func TestController_StartWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.store.Set(store.UserKey, `{"id":"9","email":"stale@example.com"}`)

	snap := f.ctrl.Start(context.Background())

	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	assert.False(t, snap.Authenticated)
	assert.Zero(t, f.backend.CountRequests("GetCurrentUser"))
	_, ok := f.store.Get(store.UserKey)
	assert.False(t, ok)
}

func TestController_StartWithAcceptedToken(t *testing.T) {
	f := newFixture(t)
	token := f.seedToken(t, "sub-42")

	snap := f.ctrl.Start(context.Background())

	require.Equal(t, StateAuthenticated, snap.State)
	assert.False(t, snap.Loading)
	assert.True(t, snap.Authenticated)
	assert.Equal(t, &UserProfile{
		ID:                 "1",
		Email:              "sub-42@example.com",
		ExternalIdentityID: "sub-42",
		DisplayName:        "User sub-42",
	}, snap.User)

	got, _ := f.store.Get(store.TokenKey)
	assert.Equal(t, token, got)

	raw, ok := f.store.Get(store.UserKey)
	require.True(t, ok)
	var cached map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, map[string]string{
		"id":       "1",
		"email":    "sub-42@example.com",
		"googleId": "sub-42",
		"name":     "User sub-42",
	}, cached)

	req, _ := f.backend.LastRequest("GetCurrentUser")
	assert.Equal(t, "Bearer "+token, req.Authorization)
}

func TestController_StartWithRejectedToken(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
	}{
		{
			name: "revoked",
			setup: func(t *testing.T, f *fixture) {
				f.backend.Revoke(f.seedToken(t, "sub-1"))
			},
		},
		{
			name: "garbage",
			setup: func(t *testing.T, f *fixture) {
				f.store.Set(store.TokenKey, "not-a-jwt")
			},
		},
		{
			name: "no user in response",
			setup: func(t *testing.T, f *fixture) {
				f.seedToken(t, "sub-1")
				f.backend.SetBehavior(mock.Behavior{OmitCurrentUser: true})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)
			f.store.Set(store.UserKey, `{"id":"1"}`)

			snap := f.ctrl.Start(context.Background())

			assert.Equal(t, StateAnonymous, snap.State)
			assert.Nil(t, snap.User)
			_, ok := f.store.Get(store.TokenKey)
			assert.False(t, ok)
			_, ok = f.store.Get(store.UserKey)
			assert.False(t, ok)
		})
	}
}

func TestController_StartWithExpiredToken(t *testing.T) {
	clock := mock.NewManualClock(time.Time{})
	f := newFixture(t, mock.BackendConfig{Clock: clock, TokenLifetime: time.Hour})
	f.seedToken(t, "alice")
	clock.Advance(2 * time.Hour)

	snap := f.ctrl.Start(context.Background())

	assert.Equal(t, StateAnonymous, snap.State)
	_, ok := f.store.Get(store.TokenKey)
	assert.False(t, ok)
}

func TestController_StartWithUnreachableBackend(t *testing.T) {
	f := newFixture(t)
	f.seedToken(t, "sub-1")
	f.backend.Close()

	snap := f.ctrl.Start(context.Background())

	assert.Equal(t, StateAnonymous, snap.State)
	_, ok := f.store.Get(store.TokenKey)
	assert.False(t, ok)
}

func TestController_StartInterruptedKeepsToken(t *testing.T) {
	f := newFixture(t)
	token := f.seedToken(t, "sub-1")
	gate := make(chan struct{})
	defer close(gate)
	f.backend.SetBehavior(mock.Behavior{CurrentUserGate: gate})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	snap := f.ctrl.Start(ctx)

	assert.Equal(t, StateAnonymous, snap.State)
	got, ok := f.store.Get(store.TokenKey)
	assert.True(t, ok)
	assert.Equal(t, token, got)
}

func TestController_StartRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.seedToken(t, "sub-1")

	f.ctrl.Start(context.Background())
	snap := f.ctrl.Start(context.Background())

	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, 1, f.backend.CountRequests("GetCurrentUser"))
}

func TestController_LoginRejectedWhileInitializing(t *testing.T) {
	f := newFixture(t)
	f.seedToken(t, "sub-1")
	gate := make(chan struct{})
	f.backend.SetBehavior(mock.Behavior{CurrentUserGate: gate})

	done := make(chan Snapshot, 1)
	go func() { done <- f.ctrl.Start(context.Background()) }()
	require.Eventually(t, func() bool {
		return f.backend.CountRequests("GetCurrentUser") == 1
	}, 5*time.Second, time.Millisecond)

	assert.True(t, f.ctrl.Loading())
	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-2")
	assert.ErrorIs(t, err, ErrInitializing)
	assert.Zero(t, f.backend.CountRequests("Login"))

	close(gate)
	assert.Equal(t, StateAuthenticated, (<-done).State)
}

// The token written by login is the one attached to the next call without
// the caller passing it around.
func TestController_LoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)

	user, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-7")
	require.NoError(t, err)
	assert.Equal(t, "sub-7@example.com", user.Email)
	assert.Equal(t, "sub-7", user.ExternalIdentityID)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.True(t, snap.Authenticated)
	assert.Equal(t, user, snap.User)

	token, ok := f.store.Get(store.TokenKey)
	require.True(t, ok)

	_, err = f.client.ListAPIKeys(context.Background())
	require.NoError(t, err)
	req, _ := f.backend.LastRequest("ListAPIKeys")
	assert.Equal(t, "Bearer "+token, req.Authorization)

	cached, ok := f.ctrl.CachedProfile()
	require.True(t, ok)
	assert.Equal(t, user, cached)
}

func TestController_LoginInvalidResponse(t *testing.T) {
	tests := []struct {
		name     string
		behavior mock.Behavior
	}{
		{name: "missing token", behavior: mock.Behavior{OmitLoginToken: true}},
		{name: "missing user", behavior: mock.Behavior{OmitLoginUser: true}},
		{name: "missing both", behavior: mock.Behavior{OmitLoginToken: true, OmitLoginUser: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.startAnonymous(t)
			f.backend.SetBehavior(tt.behavior)

			user, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-1")

			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrInvalidLoginResponse)
			assert.Equal(t, StateAnonymous, f.ctrl.State())
			_, ok := f.store.Get(store.TokenKey)
			assert.False(t, ok)
			_, ok = f.store.Get(store.UserKey)
			assert.False(t, ok)
		})
	}
}

func TestController_LoginGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)

	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "invalid-assertion")

	require.Error(t, err)
	assert.True(t, gateway.IsUnauthenticated(err))
	assert.Equal(t, StateAnonymous, f.ctrl.State())
	_, ok := f.store.Get(store.TokenKey)
	assert.False(t, ok)
}

func TestController_ConcurrentLoginRejected(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)
	gate := make(chan struct{})
	f.backend.SetBehavior(mock.Behavior{LoginGate: gate})

	first := make(chan error, 1)
	go func() {
		_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-a")
		first <- err
	}()
	require.Eventually(t, func() bool {
		return f.backend.CountRequests("Login") == 1
	}, 5*time.Second, time.Millisecond)

	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-b")
	assert.ErrorIs(t, err, ErrLoginInProgress)

	close(gate)
	require.NoError(t, <-first)
	assert.Equal(t, "sub-a", f.ctrl.User().ExternalIdentityID)

	// The slot frees up once the first login finishes.
	f.backend.SetBehavior(mock.Behavior{})
	_, err = f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-b")
	require.NoError(t, err)
	assert.Equal(t, "sub-b", f.ctrl.User().ExternalIdentityID)
}

func TestController_Logout(t *testing.T) {
	tests := []struct {
		name    string
		disrupt func(f *fixture)
	}{
		{name: "backend succeeds", disrupt: func(*fixture) {}},
		{name: "backend fails", disrupt: func(f *fixture) {
			f.backend.SetBehavior(mock.Behavior{FailLogout: true})
		}},
		{name: "backend unreachable", disrupt: func(f *fixture) {
			f.backend.Close()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.startAnonymous(t)
			_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-1")
			require.NoError(t, err)

			tt.disrupt(f)
			f.ctrl.Logout(context.Background())

			snap := f.ctrl.Snapshot()
			assert.Equal(t, StateAnonymous, snap.State)
			assert.Nil(t, snap.User)
			_, ok := f.store.Get(store.TokenKey)
			assert.False(t, ok)
			_, ok = f.store.Get(store.UserKey)
			assert.False(t, ok)
		})
	}
}

func TestController_LogoutRevokesBackendSession(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)
	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-1")
	require.NoError(t, err)
	token, _ := f.store.Get(store.TokenKey)

	f.ctrl.Logout(context.Background())

	req, ok := f.backend.LastRequest("AuthService/Logout")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+token, req.Authorization)

	// The old token no longer works even if someone kept a copy.
	f.store.Set(store.TokenKey, token)
	_, err = f.client.GetCurrentUser(context.Background())
	assert.True(t, gateway.IsUnauthenticated(err))
}

func TestController_LogoutWithoutSessionSkipsBackend(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)

	f.ctrl.Logout(context.Background())

	assert.Zero(t, f.backend.CountRequests("Logout"))
	assert.Equal(t, StateAnonymous, f.ctrl.State())
}

func TestController_LoginCompletingAfterLogoutIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.startAnonymous(t)
	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-a")
	require.NoError(t, err)

	gate := make(chan struct{})
	f.backend.SetBehavior(mock.Behavior{LoginGate: gate})

	pending := make(chan error, 1)
	go func() {
		_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-b")
		pending <- err
	}()
	require.Eventually(t, func() bool {
		return f.backend.CountRequests("Login") == 2
	}, 5*time.Second, time.Millisecond)

	f.ctrl.Logout(context.Background())
	close(gate)

	assert.ErrorIs(t, <-pending, ErrSessionChanged)
	assert.Equal(t, StateAnonymous, f.ctrl.State())
	_, ok := f.store.Get(store.TokenKey)
	assert.False(t, ok)
}

func TestController_LogoutDuringStartup(t *testing.T) {
	f := newFixture(t)
	f.seedToken(t, "sub-1")
	gate := make(chan struct{})
	f.backend.SetBehavior(mock.Behavior{CurrentUserGate: gate})

	done := make(chan Snapshot, 1)
	go func() { done <- f.ctrl.Start(context.Background()) }()
	require.Eventually(t, func() bool {
		return f.backend.CountRequests("GetCurrentUser") == 1
	}, 5*time.Second, time.Millisecond)

	f.ctrl.Logout(context.Background())
	close(gate)

	snap := <-done
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	_, ok := f.store.Get(store.TokenKey)
	assert.False(t, ok)
}

func TestController_Subscribe(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var states []State
	unsubscribe := f.ctrl.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
		assert.Equal(t, s.User != nil, s.Authenticated)
	})

	f.ctrl.Start(context.Background())
	_, err := f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-1")
	require.NoError(t, err)
	f.ctrl.Logout(context.Background())

	unsubscribe()
	_, err = f.ctrl.LoginWithIdentityAssertion(context.Background(), "sub-1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateAnonymous, StateAuthenticated, StateAnonymous}, states)
}

func TestController_CachedProfileIgnoresGarbage(t *testing.T) {
	f := newFixture(t)

	_, ok := f.ctrl.CachedProfile()
	assert.False(t, ok)

	f.store.Set(store.UserKey, "{not json")
	_, ok = f.ctrl.CachedProfile()
	assert.False(t, ok)
}
