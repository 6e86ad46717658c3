package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose/internal/store"
	"goose/internal/testing/mock"
)

func newTestClient(t *testing.T) (*Client, *mock.Backend, store.Store) {
	t.Helper()
	backend := mock.NewBackend(mock.BackendConfig{})
	t.Cleanup(backend.Close)
	st := store.NewMemory()
	return New(backend.URL(), st), backend, st
}

func TestClient_NoTokenSendsNoAuthorization(t *testing.T) {
	client, backend, _ := newTestClient(t)

	_, err := client.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))

	req, ok := backend.LastRequest("AuthService/GetCurrentUser")
	require.True(t, ok)
	assert.Empty(t, req.Authorization)
}

func TestClient_TokenReadOnEveryCall(t *testing.T) {
	client, backend, st := newTestClient(t)

	st.Set(store.TokenKey, "t1")
	_, _ = client.GetCurrentUser(context.Background())
	req, _ := backend.LastRequest("AuthService/GetCurrentUser")
	assert.Equal(t, "Bearer t1", req.Authorization)

	// Changing the store directly takes effect without touching the client.
	st.Set(store.TokenKey, "t2")
	_, _ = client.GetCurrentUser(context.Background())
	req, _ = backend.LastRequest("AuthService/GetCurrentUser")
	assert.Equal(t, "Bearer t2", req.Authorization)

	client.ClearToken()
	_, _ = client.GetCurrentUser(context.Background())
	req, _ = backend.LastRequest("AuthService/GetCurrentUser")
	assert.Empty(t, req.Authorization)
}

func TestClient_LoginThenAuthenticatedCall(t *testing.T) {
	client, backend, st := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Login(ctx, "sub-1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, ID("1"), resp.User.ID)
	assert.Equal(t, "sub-1@example.com", resp.User.Email)
	assert.Equal(t, "sub-1", resp.User.GoogleID)

	loginReq, _ := backend.LastRequest("AuthService/Login")
	assert.Empty(t, loginReq.Authorization)

	client.SetToken(resp.Token)
	got, _ := st.Get(store.TokenKey)
	assert.Equal(t, resp.Token, got)

	user, err := client.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, resp.User.Email, user.Email)

	req, _ := backend.LastRequest("AuthService/GetCurrentUser")
	assert.Equal(t, "Bearer "+resp.Token, req.Authorization)
}

func TestClient_LoginRejected(t *testing.T) {
	client, _, _ := newTestClient(t)

	_, err := client.Login(context.Background(), "invalid-assertion")
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, CodeUnauthenticated, gwErr.Code)
	assert.Equal(t, http.StatusUnauthorized, gwErr.HTTPStatus)
	assert.Equal(t, "/api.v1.AuthService/Login", gwErr.Procedure)
}

func TestClient_LogoutRevokesToken(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Login(ctx, "sub-2")
	require.NoError(t, err)
	client.SetToken(resp.Token)

	require.NoError(t, client.Logout(ctx))

	_, err = client.GetCurrentUser(ctx)
	assert.True(t, IsUnauthenticated(err))
}

func TestClient_LogoutFailure(t *testing.T) {
	client, backend, st := newTestClient(t)
	token, err := backend.IssueToken("sub-3")
	require.NoError(t, err)
	st.Set(store.TokenKey, token)

	backend.SetBehavior(mock.Behavior{FailLogout: true})
	err = client.Logout(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
}

func TestClient_APIKeys(t *testing.T) {
	client, backend, st := newTestClient(t)
	ctx := context.Background()

	token, err := backend.IssueToken("keys")
	require.NoError(t, err)
	st.Set(store.TokenKey, token)

	created, err := client.CreateAPIKey(ctx, "ci")
	require.NoError(t, err)
	assert.Equal(t, "ci", created.Name)
	assert.NotEmpty(t, created.Key)
	assert.False(t, created.CreatedAt.IsZero())

	keys, err := client.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, created.ID, keys[0].ID)
	assert.NotContains(t, keys[0].KeyMasked, created.Key[4:len(created.Key)-4])

	renamed, err := client.RenameAPIKey(ctx, created.ID, "deploy")
	require.NoError(t, err)
	assert.Equal(t, "deploy", renamed.Name)

	require.NoError(t, client.RevokeAPIKey(ctx, created.ID))

	err = client.RevokeAPIKey(ctx, created.ID)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	keys, err = client.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClient_APIKeyArgumentChecks(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateAPIKey(ctx, "")
	assert.Error(t, err)
	_, err = client.RenameAPIKey(ctx, "", "x")
	assert.Error(t, err)
	assert.Error(t, client.RevokeAPIKey(ctx, ""))

	assert.Empty(t, backend.Requests())
}

func TestClient_ConnectHeaders(t *testing.T) {
	var gotVersion, gotContentType, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("Connect-Protocol-Version")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"user":{"id":7,"email":"a@b.c"}}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", store.NewMemory())
	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/api.v1.AuthService/GetCurrentUser", gotPath)
	assert.Equal(t, ID("7"), user.ID)
}

func TestClient_TransportErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url, store.NewMemory())
	_, err := client.GetCurrentUser(context.Background())
	require.Error(t, err)

	var gwErr *Error
	assert.False(t, errors.As(err, &gwErr))
	assert.Equal(t, Code(""), CodeOf(err))
}

func TestNewError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode Code
		wantMsg  string
	}{
		{
			name:     "connect error body",
			status:   http.StatusNotFound,
			body:     `{"code":"not_found","message":"API key not found"}`,
			wantCode: CodeNotFound,
			wantMsg:  "API key not found",
		},
		{
			name:     "html from a proxy",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantCode: CodeUnavailable,
			wantMsg:  "Bad Gateway",
		},
		{
			name:     "empty 401",
			status:   http.StatusUnauthorized,
			wantCode: CodeUnauthenticated,
			wantMsg:  "Unauthorized",
		},
		{
			name:     "unmapped status",
			status:   http.StatusTeapot,
			wantCode: CodeUnknown,
			wantMsg:  "I'm a teapot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newError("/p", tt.status, []byte(tt.body))
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Contains(t, err.Error(), "/p")
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"42"`, "42"},
		{`42`, "42"},
		{`null`, ""},
		{`9007199254740993`, "9007199254740993"},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.in), &id), tt.in)
		assert.Equal(t, tt.want, id, tt.in)
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}
