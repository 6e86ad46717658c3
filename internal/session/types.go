package session

import (
	"context"

	"goose/internal/gateway"
)

// State is the session lifecycle state.
type State int

const (
	// StateInitializing means startup validation has not finished.
	StateInitializing State = iota

	// StateAnonymous means no user is signed in.
	StateAnonymous

	// StateAuthenticated means a validated or freshly issued token is held.
	StateAuthenticated
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// UserProfile is the signed-in user. The JSON form is what gets cached in
// the store and matches the backend's user message.
type UserProfile struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	ExternalIdentityID string `json:"googleId"`
	DisplayName        string `json:"name"`
}

func profileFromUser(u *gateway.User) *UserProfile {
	return &UserProfile{
		ID:                 string(u.ID),
		Email:              u.Email,
		ExternalIdentityID: u.GoogleID,
		DisplayName:        u.Name,
	}
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State State
	// Loading is true only while State is StateInitializing.
	Loading bool
	// Authenticated is exactly User != nil.
	Authenticated bool
	User          *UserProfile
}

// AuthAPI is the part of the gateway the controller drives.
type AuthAPI interface {
	Login(ctx context.Context, identityAssertion string) (*gateway.LoginResponse, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*gateway.User, error)
	SetToken(token string)
	ClearToken()
}

var _ AuthAPI = (*gateway.Client)(nil)
