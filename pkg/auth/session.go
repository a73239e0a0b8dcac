// Package auth implements the Yggdrasil login and session-join handshake
// of Minecraft Java edition for both the joining client and the verifying server.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/go-logr/logr"

	"go.minekube.com/yggdrasil/pkg/util/profile"
)

// State is the state of a Session.
type State string

const (
	Unauthenticated State = "unauthenticated"

	// Client role
	Authenticated State = "authenticated"
	Joining       State = "joining"
	Joined        State = "joined"

	// Server role
	Verifying State = "verifying"
	Verified  State = "verified"
	Rejected  State = "rejected"
)

// Options to create a new Session.
type Options struct {
	// The Transport to send requests with.
	// If none is set, a new HTTPTransport is created.
	Transport Transport
	// Base url of the authentication server.
	// The default is DefaultAuthServerURL.
	AuthServerURL string
	// Base url of the session server.
	// The default is DefaultSessionServerURL.
	SessionServerURL string
	// This setting allows to use an authentication url other
	// than the "hasJoined" endpoint of SessionServerURL.
	HasJoinedURLFn HasJoinedURLFn
	// ClientToken is sent with the authenticate request to
	// continue a previous session. If empty, a random one is generated.
	ClientToken string
	// Whether to request the user object on authenticate and refresh.
	RequestUser bool
	// The KeyExchange used by HandleEncryptionRequest.
	// If nil, DefaultKeyExchange is used.
	KeyExchange *KeyExchange
}

// Session is the state of one login (client role) or
// one connecting client's verification (server role).
//
// The handshake is strictly ordered, so a Session must only be used by one
// goroutine at a time. Independent sessions share no mutable state and may
// run in parallel.
type Session struct {
	transport      Transport
	authURL        string
	joinURL        string
	hasJoinedURLFn HasJoinedURLFn
	keyExchange    *KeyExchange
	clientToken    string
	requestUser    bool

	state   State
	tokens  Tokens
	profile *profile.GameProfile
	user    *User
}

// NewSession returns a new unauthenticated Session.
func NewSession(options Options) (*Session, error) {
	transport := options.Transport
	if transport == nil {
		transport = NewHTTPTransport(HTTPOptions{})
	}
	authURL := options.AuthServerURL
	if authURL == "" {
		authURL = DefaultAuthServerURL
	}
	sessionURL := options.SessionServerURL
	if sessionURL == "" {
		sessionURL = DefaultSessionServerURL
	}
	// validate base urls early
	if _, err := endpoint(authURL, "/"); err != nil {
		return nil, fmt.Errorf("error parsing auth server url: %w", err)
	}
	joinURL, err := endpoint(sessionURL, joinPath)
	if err != nil {
		return nil, fmt.Errorf("error parsing session server url: %w", err)
	}

	hasJoinedURLFn := options.HasJoinedURLFn
	if hasJoinedURLFn == nil {
		if sessionURL == DefaultSessionServerURL {
			hasJoinedURLFn = DefaultHasJoinedURL
		} else {
			hasJoined, err := endpoint(sessionURL, hasJoinedPath)
			if err != nil {
				return nil, err
			}
			base, err := url.Parse(hasJoined)
			if err != nil {
				return nil, err
			}
			hasJoinedURLFn = CustomHasJoinedURL(base)
		}
	}

	keyExchange := options.KeyExchange
	if keyExchange == nil {
		keyExchange = DefaultKeyExchange
	}

	return &Session{
		transport:      transport,
		authURL:        authURL,
		joinURL:        joinURL,
		hasJoinedURLFn: hasJoinedURLFn,
		keyExchange:    keyExchange,
		clientToken:    options.ClientToken,
		requestUser:    options.RequestUser,
		state:          Unauthenticated,
	}, nil
}

// State returns the current state of the session.
func (s *Session) State() State { return s.state }

// Tokens returns the session tokens.
// They are empty until the session is authenticated.
func (s *Session) Tokens() Tokens { return s.tokens }

// GameProfile returns the selected profile of an authenticated client
// or the verified profile of a connecting client. Returns nil otherwise.
func (s *Session) GameProfile() *profile.GameProfile { return s.profile }

// User returns the user if it was requested and returned by the authentication server.
func (s *Session) User() *User { return s.user }

// SetHasJoinedURLFn sets the HasJoinedURLFn.
// If nil, DefaultHasJoinedURL is used.
func (s *Session) SetHasJoinedURLFn(fn HasJoinedURLFn) {
	if fn == nil {
		fn = DefaultHasJoinedURL
	}
	s.hasJoinedURLFn = fn
}

func (s *Session) authEndpoint(path string) string {
	// authURL was validated by NewSession
	u, _ := endpoint(s.authURL, path)
	return u
}

func (s *Session) setState(ctx context.Context, state State) {
	logr.FromContextOrDiscard(ctx).V(1).WithName("session").Info("state transition",
		"from", s.state, "to", state)
	s.state = state
}

// expectState returns an error wrapping ErrInvalidState if the
// session is not in one of the expected states.
func (s *Session) expectState(op string, expected ...State) error {
	if slices.Contains(expected, s.state) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s in state %q, expected one of %q",
		ErrInvalidState, op, s.state, expected)
}

// reset forgets tokens and profile and returns to Unauthenticated.
func (s *Session) reset(ctx context.Context) {
	s.tokens = Tokens{}
	s.profile = nil
	s.user = nil
	s.setState(ctx, Unauthenticated)
}
