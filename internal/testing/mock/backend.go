package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// BackendConfig configures the fake goose backend.
type BackendConfig struct {
	// Secret signs session tokens. A random secret is used when empty.
	Secret []byte

	// TokenLifetime defaults to 24h.
	TokenLifetime time.Duration

	// Clock defaults to the system clock.
	Clock Clock
}

// RecordedRequest is one call observed by the backend.
type RecordedRequest struct {
	Procedure     string
	Authorization string
}

// Backend is an in-process fake of the goose backend speaking Connect JSON.
//
// Identity assertions are accepted as-is: the assertion string becomes the
// user's external identity id, and the email is "<assertion>@example.com".
// An assertion starting with "invalid" is rejected as unauthenticated.
type Backend struct {
	server *httptest.Server
	config BackendConfig

	mu       sync.Mutex
	requests []RecordedRequest
	users    map[int64]*backendUser
	bySub    map[string]int64
	nextID   int64
	keys     map[string]*backendKey
	revoked  map[string]bool
	behavior Behavior
}

// Behavior switches failure modes on and off during a test.
type Behavior struct {
	// FailLogout makes Logout answer 503.
	FailLogout bool
	// RejectAllTokens makes every authenticated call answer unauthenticated.
	RejectAllTokens bool
	// OmitLoginToken drops "jwt" from Login responses.
	OmitLoginToken bool
	// OmitLoginUser drops "user" from Login responses.
	OmitLoginUser bool
	// OmitCurrentUser drops "user" from GetCurrentUser responses.
	OmitCurrentUser bool
	// LoginGate, when set, blocks Login until it is closed or receives.
	LoginGate chan struct{}
	// CurrentUserGate blocks GetCurrentUser the same way.
	CurrentUserGate chan struct{}
}

type backendUser struct {
	ID       int64
	Email    string
	GoogleID string
	Name     string
}

type backendKey struct {
	ID         string
	UserID     int64
	Name       string
	Key        string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

type sessionClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewBackend starts a fake backend. Call Close when done.
func NewBackend(cfg BackendConfig) *Backend {
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte(uuid.NewString())
	}
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	b := &Backend{
		config:  cfg,
		users:   make(map[int64]*backendUser),
		bySub:   make(map[string]int64),
		nextID:  1,
		keys:    make(map[string]*backendKey),
		revoked: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api.v1.AuthService/Login", b.record(b.handleLogin))
	mux.HandleFunc("POST /api.v1.AuthService/GetCurrentUser", b.record(b.authenticated(b.handleGetCurrentUser)))
	mux.HandleFunc("POST /api.v1.AuthService/Logout", b.record(b.authenticated(b.handleLogout)))
	mux.HandleFunc("POST /api.v1.APIKeyService/CreateAPIKey", b.record(b.authenticated(b.handleCreateAPIKey)))
	mux.HandleFunc("POST /api.v1.APIKeyService/ListAPIKeys", b.record(b.authenticated(b.handleListAPIKeys)))
	mux.HandleFunc("POST /api.v1.APIKeyService/UpdateAPIKey", b.record(b.authenticated(b.handleUpdateAPIKey)))
	mux.HandleFunc("POST /api.v1.APIKeyService/DeleteAPIKey", b.record(b.authenticated(b.handleDeleteAPIKey)))

	b.server = httptest.NewServer(mux)
	return b
}

// URL is the backend's base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// Close shuts the backend down.
func (b *Backend) Close() {
	b.server.Close()
}

// SetBehavior replaces the failure-mode switches.
func (b *Backend) SetBehavior(behavior Behavior) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.behavior = behavior
}

func (b *Backend) currentBehavior() Behavior {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.behavior
}

// Requests returns every call seen so far, in arrival order.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent call to procedure, e.g.
// "AuthService/GetCurrentUser".
func (b *Backend) LastRequest(procedure string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if strings.HasSuffix(b.requests[i].Procedure, procedure) {
			return b.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// CountRequests returns how many calls to procedure were seen.
func (b *Backend) CountRequests(procedure string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if strings.HasSuffix(r.Procedure, procedure) {
			n++
		}
	}
	return n
}

// IssueToken creates (or reuses) the user for sub and returns a valid
// session token, as if that user had logged in earlier.
func (b *Backend) IssueToken(sub string) (string, error) {
	b.mu.Lock()
	user := b.findOrCreateUserLocked(sub)
	b.mu.Unlock()
	return b.signToken(user)
}

// Revoke makes a previously issued token unacceptable.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
}

func (b *Backend) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Procedure:     r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()
		next(w, r)
	}
}

// authenticated mirrors the backend interceptor: a bearer token is required
// and must verify.
func (b *Backend) authenticated(next func(http.ResponseWriter, *http.Request, *backendUser, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing token")
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
			return
		}

		user, err := b.verifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		next(w, r, user, token)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoogleIDToken string `json:"googleIdToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	behavior := b.currentBehavior()
	if behavior.LoginGate != nil {
		select {
		case <-behavior.LoginGate:
		case <-r.Context().Done():
			return
		}
	}

	if req.GoogleIDToken == "" || strings.HasPrefix(req.GoogleIDToken, "invalid") {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "failed to validate identity assertion")
		return
	}

	b.mu.Lock()
	user := b.findOrCreateUserLocked(req.GoogleIDToken)
	b.mu.Unlock()

	token, err := b.signToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	resp := map[string]interface{}{}
	if !behavior.OmitLoginToken {
		resp["jwt"] = token
	}
	if !behavior.OmitLoginUser {
		resp["user"] = userJSON(user)
	}
	writeJSON(w, resp)
}

func (b *Backend) handleGetCurrentUser(w http.ResponseWriter, r *http.Request, user *backendUser, _ string) {
	behavior := b.currentBehavior()
	if behavior.CurrentUserGate != nil {
		select {
		case <-behavior.CurrentUserGate:
		case <-r.Context().Done():
			return
		}
	}
	if behavior.OmitCurrentUser {
		writeJSON(w, map[string]interface{}{})
		return
	}
	writeJSON(w, map[string]interface{}{"user": userJSON(user)})
}

func (b *Backend) handleLogout(w http.ResponseWriter, _ *http.Request, _ *backendUser, token string) {
	if b.currentBehavior().FailLogout {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "logout unavailable")
		return
	}
	b.Revoke(token)
	writeJSON(w, map[string]interface{}{"success": true})
}

func (b *Backend) handleCreateAPIKey(w http.ResponseWriter, r *http.Request, user *backendUser, _ string) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}

	key := &backendKey{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      req.Name,
		Key:       "gsk_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		CreatedAt: b.config.Clock.Now().UTC().Truncate(time.Second),
	}

	b.mu.Lock()
	b.keys[key.ID] = key
	b.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"id":        key.ID,
		"name":      key.Name,
		"key":       key.Key,
		"createdAt": key.CreatedAt.Format(time.RFC3339),
	})
}

func (b *Backend) handleListAPIKeys(w http.ResponseWriter, _ *http.Request, user *backendUser, _ string) {
	b.mu.Lock()
	var list []map[string]interface{}
	for _, k := range b.keys {
		if k.UserID == user.ID {
			list = append(list, keyJSON(k))
		}
	}
	b.mu.Unlock()

	writeJSON(w, map[string]interface{}{"apiKeys": list})
}

func (b *Backend) handleUpdateAPIKey(w http.ResponseWriter, r *http.Request, user *backendUser, _ string) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "id and name are required")
		return
	}

	b.mu.Lock()
	k, ok := b.keys[req.ID]
	owned := ok && k.UserID == user.ID
	var updated map[string]interface{}
	if owned {
		k.Name = req.Name
		updated = keyJSON(k)
	}
	b.mu.Unlock()

	if !owned {
		writeError(w, http.StatusNotFound, "not_found", "API key not found")
		return
	}
	writeJSON(w, map[string]interface{}{"apiKey": updated})
}

func (b *Backend) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request, user *backendUser, _ string) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "id is required")
		return
	}

	b.mu.Lock()
	k, ok := b.keys[req.ID]
	owned := ok && k.UserID == user.ID
	if owned {
		delete(b.keys, req.ID)
	}
	b.mu.Unlock()

	if !owned {
		writeError(w, http.StatusNotFound, "not_found", "API key not found")
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

// findOrCreateUserLocked REQUIRES b.mu held.
func (b *Backend) findOrCreateUserLocked(sub string) *backendUser {
	if id, ok := b.bySub[sub]; ok {
		return b.users[id]
	}
	u := &backendUser{
		ID:       b.nextID,
		Email:    sub + "@example.com",
		GoogleID: sub,
		Name:     "User " + sub,
	}
	b.nextID++
	b.users[u.ID] = u
	b.bySub[sub] = u.ID
	return u
}

func (b *Backend) signToken(user *backendUser) (string, error) {
	now := b.config.Clock.Now()
	claims := sessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.config.TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.config.Secret)
}

func (b *Backend) verifyToken(token string) (*backendUser, error) {
	b.mu.Lock()
	revoked := b.revoked[token]
	reject := b.behavior.RejectAllTokens
	b.mu.Unlock()
	if revoked || reject {
		return nil, errors.New("token revoked")
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.config.Secret, nil
	}, jwt.WithTimeFunc(b.config.Clock.Now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[claims.UserID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func userJSON(u *backendUser) map[string]interface{} {
	return map[string]interface{}{
		"id":       strconv.FormatInt(u.ID, 10),
		"email":    u.Email,
		"googleId": u.GoogleID,
		"name":     u.Name,
	}
}

func keyJSON(k *backendKey) map[string]interface{} {
	out := map[string]interface{}{
		"id":        k.ID,
		"name":      k.Name,
		"keyMasked": fmt.Sprintf("%s****...****%s", k.Key[:4], k.Key[len(k.Key)-4:]),
		"createdAt": k.CreatedAt.Format(time.RFC3339),
	}
	if k.LastUsedAt != nil {
		out["lastUsedAt"] = k.LastUsedAt.Format(time.RFC3339)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
