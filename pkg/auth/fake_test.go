package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"

	"go.minekube.com/yggdrasil/pkg/util/profile"
	"go.minekube.com/yggdrasil/pkg/util/uuid"
)

func testContext(t *testing.T) context.Context {
	return logr.NewContext(context.Background(), testr.NewWithOptions(t, testr.Options{Verbosity: 1}))
}

type fakeAccount struct {
	login    string
	password string
	profile  profile.GameProfile
}

// fakeMojang is an in-memory authentication and session server.
type fakeMojang struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*fakeAccount // by login
	tokens   map[string]*fakeAccount // by access token
	clients  map[string]string       // access token -> client token
	joins    map[string]string       // profile name -> server hash
	joined   []joinRequest
}

func newFakeMojang(t *testing.T) *fakeMojang {
	f := &fakeMojang{
		accounts: map[string]*fakeAccount{},
		tokens:   map[string]*fakeAccount{},
		clients:  map[string]string{},
		joins:    map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /authenticate", f.authenticate)
	mux.HandleFunc("POST /refresh", f.refresh)
	mux.HandleFunc("POST /validate", f.validate)
	mux.HandleFunc("POST /invalidate", f.invalidate)
	mux.HandleFunc("POST /signout", f.signout)
	mux.HandleFunc("POST /session/minecraft/join", f.join)
	mux.HandleFunc("GET /session/minecraft/hasJoined", f.hasJoined)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// addAccount registers a new account with the given profile name
// and returns its credentials.
func (f *fakeMojang) addAccount(t *testing.T, name string) *fakeAccount {
	a := &fakeAccount{
		login:    faker.Email(),
		password: faker.Password(),
		profile:  profile.GameProfile{ID: uuid.New(), Name: name},
	}
	require.NotEmpty(t, a.login)
	require.NotEmpty(t, a.password)
	f.mu.Lock()
	f.accounts[a.login] = a
	f.mu.Unlock()
	return a
}

func (f *fakeMojang) newSession(t *testing.T, options Options) *Session {
	options.AuthServerURL = f.URL
	options.SessionServerURL = f.URL
	s, err := NewSession(options)
	require.NoError(t, err)
	return s
}

func (f *fakeMojang) joinRequests() []joinRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]joinRequest(nil), f.joined...)
}

func forbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":        "ForbiddenOperationException",
		"errorMessage": msg,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeMojang) issue(a *fakeAccount, clientToken string, requestUser bool) map[string]any {
	accessToken := uuid.New().Undashed()
	f.tokens[accessToken] = a
	f.clients[accessToken] = clientToken
	resp := map[string]any{
		"accessToken":       accessToken,
		"clientToken":       clientToken,
		"selectedProfile":   a.profile,
		"availableProfiles": []profile.GameProfile{a.profile},
	}
	if requestUser {
		resp["user"] = User{ID: uuid.New().Undashed(), Username: a.login}
	}
	return resp
}

func (f *fakeMojang) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Agent != MinecraftAgent {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[req.Username]
	if !ok || a.password != req.Password {
		forbidden(w, "Invalid credentials. Invalid username or password.")
		return
	}
	clientToken := req.ClientToken
	if clientToken == "" {
		clientToken = uuid.New().Undashed()
	}
	writeJSON(w, f.issue(a, clientToken, req.RequestUser))
}

func (f *fakeMojang) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.tokens[req.AccessToken]
	if !ok || f.clients[req.AccessToken] != req.ClientToken {
		forbidden(w, "Invalid token.")
		return
	}
	delete(f.tokens, req.AccessToken)
	delete(f.clients, req.AccessToken)
	writeJSON(w, f.issue(a, req.ClientToken, req.RequestUser))
}

func (f *fakeMojang) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[req.AccessToken]; !ok {
		forbidden(w, "Invalid token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeMojang) invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, req.AccessToken)
	delete(f.clients, req.AccessToken)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeMojang) signout(w http.ResponseWriter, r *http.Request) {
	var req signoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[req.Username]
	if !ok || a.password != req.Password {
		forbidden(w, "Invalid credentials. Invalid username or password.")
		return
	}
	for token, owner := range f.tokens {
		if owner == a {
			delete(f.tokens, token)
			delete(f.clients, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeMojang) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, req)
	a, ok := f.tokens[req.AccessToken]
	if !ok || a.profile.ID.Undashed() != req.SelectedProfile {
		forbidden(w, "Invalid token")
		return
	}
	f.joins[a.profile.Name] = req.ServerID
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeMojang) hasJoined(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	serverID := r.URL.Query().Get("serverId")
	f.mu.Lock()
	defer f.mu.Unlock()
	if serverID == "" || f.joins[username] != serverID {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	for _, a := range f.accounts {
		if a.profile.Name == username {
			writeJSON(w, a.profile)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordedRequest struct {
	method string
	url    string
	body   []byte
}

// recordingTransport records requests and answers them with respond.
type recordingTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(method, url string, body []byte) ([]byte, error)
}

var _ Transport = (*recordingTransport)(nil)

func (r *recordingTransport) Get(_ context.Context, url string) ([]byte, error) {
	return r.record(http.MethodGet, url, nil)
}

func (r *recordingTransport) Post(_ context.Context, url string, jsonBody []byte) ([]byte, error) {
	return r.record(http.MethodPost, url, jsonBody)
}

func (r *recordingTransport) record(method, url string, body []byte) ([]byte, error) {
	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{method: method, url: url, body: body})
	r.mu.Unlock()
	if r.respond == nil {
		return nil, nil
	}
	return r.respond(method, url, body)
}

func (r *recordingTransport) last(t *testing.T) recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests, "no request recorded")
	return r.requests[len(r.requests)-1]
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
