package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a backend int64 identifier. The backend's JSON encoding renders
// int64 values as strings; plain numbers are accepted as well.
type ID string

// UnmarshalJSON accepts both "42" and 42.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

// User is the backend's user message.
type User struct {
	ID       ID     `json:"id"`
	Email    string `json:"email"`
	GoogleID string `json:"googleId"`
	Name     string `json:"name"`
}

// LoginResponse is returned by AuthService/Login. Either field may be
// missing in a malformed response; callers must check both.
type LoginResponse struct {
	Token string `json:"jwt"`
	User  *User  `json:"user"`
}

// APIKey is a listed key. The secret is never returned after creation.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyMasked  string     `json:"keyMasked"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// CreatedAPIKey carries the full secret, shown exactly once.
type CreatedAPIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginRequest struct {
	GoogleIDToken string `json:"googleIdToken"`
}

type getCurrentUserResponse struct {
	User *User `json:"user"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

type listAPIKeysResponse struct {
	APIKeys []APIKey `json:"apiKeys"`
}

type updateAPIKeyRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type updateAPIKeyResponse struct {
	APIKey *APIKey `json:"apiKey"`
}

type deleteAPIKeyRequest struct {
	ID string `json:"id"`
}

type deleteAPIKeyResponse struct {
	Success bool `json:"success"`
}

type empty struct{}
