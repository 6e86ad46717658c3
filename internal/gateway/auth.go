package gateway

import "context"

// Login exchanges an identity assertion for a session token and profile.
// The response is returned as received; completeness is checked by the
// caller.
func (c *Client) Login(ctx context.Context, identityAssertion string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call(ctx, authService+"Login", loginRequest{GoogleIDToken: identityAssertion}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the backend the session is ending.
func (c *Client) Logout(ctx context.Context) error {
	var resp logoutResponse
	return c.call(ctx, authService+"Logout", empty{}, &resp)
}

// GetCurrentUser returns the user owning the presented session token.
// The user is nil if the backend answered without one.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var resp getCurrentUserResponse
	if err := c.call(ctx, authService+"GetCurrentUser", empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}
