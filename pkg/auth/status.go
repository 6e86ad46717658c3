package auth

// StatusResponse is the structured session state.
type StatusResponse struct {
	// Endpoint is the backend the session belongs to.
	Endpoint string `json:"endpoint"`

	// Store describes where the session token is kept.
	Store string `json:"store"`

	// State is one of: "initializing", "anonymous", "authenticated".
	State string `json:"state"`

	Authenticated bool `json:"authenticated"`

	// User is present when Authenticated is true.
	User *UserStatus `json:"user,omitempty"`

	// Cleared is true when a stored token was rejected and removed
	// during this check.
	Cleared bool `json:"cleared,omitempty"`
}

// UserStatus describes the signed-in user.
type UserStatus struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	IdentityID string `json:"identity_id"`
}
