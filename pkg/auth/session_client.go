package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"

	"go.minekube.com/yggdrasil/pkg/util/profile"
	"go.minekube.com/yggdrasil/pkg/util/uuid"
)

// Authenticate exchanges the credentials for session tokens and the selected profile.
//
// Refused credentials and unusable responses return an error wrapping
// ErrAuthenticationFailed and the caller should ask for credentials again
// instead of retrying. If the server could not be reached at all the error
// is a *TransportError and the session stays unauthenticated.
func (s *Session) Authenticate(ctx context.Context, username, password string) (err error) {
	if err = s.expectState("authenticate", Unauthenticated); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "Authenticate", attribute.Bool("user.requested", s.requestUser))
	defer func() { endSpan(span, err); recordRequest(ctx, "authenticate", err) }()

	clientToken := s.clientToken
	if clientToken == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("%w: error generating client token: %w", ErrRandomSource, err)
		}
		clientToken = id.Undashed()
	}

	log := logr.FromContextOrDiscard(ctx).WithName("authenticate")
	log.V(1).Info("authenticating against authserver")

	resp, err := s.postAuth(ctx, "/authenticate", &authenticateRequest{
		Agent:       MinecraftAgent,
		Username:    username,
		Password:    password,
		ClientToken: clientToken,
		RequestUser: s.requestUser,
	})
	if err != nil {
		if respondedErr(err) {
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return fmt.Errorf("error authenticating with authserver: %w", err)
	}

	ar, err := decodeAuthenticationResponse(resp, true)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	s.tokens = Tokens{AccessToken: ar.AccessToken, ClientToken: ar.ClientToken}
	s.profile = ar.SelectedProfile
	s.user = ar.User
	s.clientToken = ar.ClientToken
	s.setState(ctx, Authenticated)

	log.V(1).Info("authenticated", "profile", s.profile.Name, "uuid", s.profile.ID.Undashed())
	return nil
}

// Resume restores the tokens of a previous session, e.g. after a restart.
// The profile is optional and can be fetched with Refresh.
func (s *Session) Resume(ctx context.Context, tokens Tokens, p *profile.GameProfile) error {
	if err := s.expectState("resume", Unauthenticated); err != nil {
		return err
	}
	if tokens.AccessToken == "" || tokens.ClientToken == "" {
		return errors.New("resume requires both access and client token")
	}
	if p != nil {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid profile: %w", err)
		}
	}
	s.tokens = tokens
	s.clientToken = tokens.ClientToken
	s.profile = p
	s.setState(ctx, Authenticated)
	return nil
}

// Refresh renews the access token of an authenticated session.
//
// If the authentication server refuses the tokens the session
// becomes unauthenticated and the error wraps ErrAuthenticationFailed.
func (s *Session) Refresh(ctx context.Context) (err error) {
	if err = s.expectState("refresh", Authenticated, Joined); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "Refresh")
	defer func() { endSpan(span, err); recordRequest(ctx, "refresh", err) }()

	resp, err := s.postAuth(ctx, "/refresh", &refreshRequest{
		AccessToken: s.tokens.AccessToken,
		ClientToken: s.tokens.ClientToken,
		RequestUser: s.requestUser,
	})
	if err != nil {
		if respondedErr(err) {
			s.reset(ctx)
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return fmt.Errorf("error refreshing access token: %w", err)
	}

	ar, err := decodeAuthenticationResponse(resp, s.profile == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	s.tokens = Tokens{AccessToken: ar.AccessToken, ClientToken: ar.ClientToken}
	if ar.SelectedProfile != nil {
		s.profile = ar.SelectedProfile
	}
	if ar.User != nil {
		s.user = ar.User
	}
	if s.state != Authenticated {
		s.setState(ctx, Authenticated)
	}
	return nil
}

// Validate reports whether the access token is still usable for joining servers.
// An error is only returned if the authentication server could not be asked.
func (s *Session) Validate(ctx context.Context) (valid bool, err error) {
	if err = s.expectState("validate", Authenticated, Joined); err != nil {
		return false, err
	}
	ctx, span := startSpan(ctx, "Validate")
	defer func() { endSpan(span, err); recordRequest(ctx, "validate", err) }()

	_, err = s.postAuth(ctx, "/validate", &validateRequest{
		AccessToken: s.tokens.AccessToken,
		ClientToken: s.tokens.ClientToken,
	})
	if err != nil {
		if respondedErr(err) {
			logr.FromContextOrDiscard(ctx).V(1).Info("access token is no longer valid", "reason", err.Error())
			return false, nil
		}
		return false, fmt.Errorf("error validating access token: %w", err)
	}
	return true, nil
}

// Invalidate invalidates the session's access token and returns to Unauthenticated.
func (s *Session) Invalidate(ctx context.Context) (err error) {
	if err = s.expectState("invalidate", Authenticated, Joined); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "Invalidate")
	defer func() { endSpan(span, err); recordRequest(ctx, "invalidate", err) }()

	if _, err = s.postAuth(ctx, "/invalidate", &invalidateRequest{
		AccessToken: s.tokens.AccessToken,
		ClientToken: s.tokens.ClientToken,
	}); err != nil {
		return fmt.Errorf("error invalidating access token: %w", err)
	}
	s.reset(ctx)
	return nil
}

// Signout invalidates all access tokens of the account using its credentials
// and returns to Unauthenticated.
func (s *Session) Signout(ctx context.Context, username, password string) (err error) {
	if err = s.expectState("sign out", Unauthenticated, Authenticated, Joined); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "Signout")
	defer func() { endSpan(span, err); recordRequest(ctx, "signout", err) }()

	if _, err = s.postAuth(ctx, "/signout", &signoutRequest{
		Username: username,
		Password: password,
	}); err != nil {
		if respondedErr(err) {
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return fmt.Errorf("error signing out: %w", err)
	}
	s.reset(ctx)
	return nil
}

// Join notifies the session server that the client joins the server the
// encryption request came from and returns the posted server hash.
// It must be called immediately before sending the encryption response.
//
// If the session server refuses the join the error wraps ErrJoinRejected,
// the server will not accept the connection. A new connection attempt needs
// a new shared secret.
func (s *Session) Join(ctx context.Context, serverID string, sharedSecret, publicKey []byte) (hash string, err error) {
	if err = s.expectState("join", Authenticated, Joined); err != nil {
		return "", err
	}
	if s.profile == nil {
		return "", fmt.Errorf("%w: cannot join without selected profile, refresh the session first", ErrInvalidState)
	}
	if len(sharedSecret) != SharedSecretSize {
		return "", fmt.Errorf("invalid shared secret size %d, expected %d", len(sharedSecret), SharedSecretSize)
	}

	hash = ServerIDHash(serverID, sharedSecret, publicKey)

	ctx, span := startSpan(ctx, "Join",
		attribute.String("server.hash", hash),
		attribute.String("user.name", s.profile.Name),
	)
	defer func() { endSpan(span, err); recordRequest(ctx, "join", err) }()

	s.setState(ctx, Joining)
	body, err := json.Marshal(&joinRequest{
		AccessToken:     s.tokens.AccessToken,
		SelectedProfile: s.profile.ID.Undashed(),
		ServerID:        hash,
	})
	if err != nil {
		s.setState(ctx, Authenticated)
		return "", fmt.Errorf("error marshal join request: %w", err)
	}

	log := logr.FromContextOrDiscard(ctx).WithName("join")
	log.V(1).Info("joining server via sessionserver", "serverHash", hash)

	if _, err = s.transport.Post(ctx, s.joinURL, body); err != nil {
		s.setState(ctx, Authenticated)
		if respondedErr(err) {
			return "", fmt.Errorf("%w: %w", ErrJoinRejected, err)
		}
		return "", fmt.Errorf("error joining server via sessionserver: %w", err)
	}

	s.setState(ctx, Joined)
	return hash, nil
}

// HandleEncryptionRequest performs the client side of the protocol's encryption step
// in the required order: it generates a shared secret, encrypts it and the verify
// token with the server's public key and joins the server via the session server.
//
// The returned response must be sent to the server afterwards and the shared
// secret used to enable the connection cipher.
func (s *Session) HandleEncryptionRequest(ctx context.Context, req EncryptionRequest) (*EncryptionResponse, error) {
	if err := s.expectState("handle encryption request", Authenticated, Joined); err != nil {
		return nil, err
	}
	secret, err := s.keyExchange.GenerateSharedSecret()
	if err != nil {
		return nil, err
	}
	encryptedSecret, err := s.keyExchange.EncryptRSA(req.PublicKey, secret)
	if err != nil {
		return nil, fmt.Errorf("error encrypting shared secret: %w", err)
	}
	encryptedToken, err := s.keyExchange.EncryptRSA(req.PublicKey, req.VerifyToken)
	if err != nil {
		return nil, fmt.Errorf("error encrypting verify token: %w", err)
	}
	hash, err := s.Join(ctx, req.ServerID, secret, req.PublicKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionResponse{
		SharedSecret:          secret,
		EncryptedSharedSecret: encryptedSecret,
		EncryptedVerifyToken:  encryptedToken,
		ServerIDHash:          hash,
	}, nil
}

func (s *Session) postAuth(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshal request: %w", err)
	}
	return s.transport.Post(ctx, s.authEndpoint(path), body)
}

func decodeAuthenticationResponse(body []byte, requireProfile bool) (*authenticationResponse, error) {
	var ar authenticationResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("%w: error unmarshal authentication response: %w", ErrMalformedResponse, err)
	}
	if err := ar.validate(requireProfile); err != nil {
		return nil, err
	}
	return &ar, nil
}
