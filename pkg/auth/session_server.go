package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"

	"go.minekube.com/yggdrasil/pkg/util/errs"
	"go.minekube.com/yggdrasil/pkg/util/profile"
	"go.minekube.com/yggdrasil/pkg/util/validation"
)

// VerifyJoin verifies that the connecting client with the claimed username has
// joined this server via the session server. The server hash is computed from
// the same inputs the client used. The ip is optional.
//
// On success the session is Verified and the authoritative profile is returned.
// Any failure leaves the session Rejected, returns an error wrapping ErrRejected
// and the server must disconnect the client.
func (s *Session) VerifyJoin(ctx context.Context, username, serverID string, sharedSecret, publicKey []byte, ip string) (p *profile.GameProfile, err error) {
	if err = s.expectState("verify join", Unauthenticated); err != nil {
		return nil, err
	}
	s.setState(ctx, Verifying)

	hash := ServerIDHash(serverID, sharedSecret, publicKey)

	ctx, span := startSpan(ctx, "VerifyJoin",
		attribute.String("server.hash", hash),
		attribute.String("user.name", username),
		attribute.String("user.ip", ip),
	)
	defer func() { endSpan(span, err); recordRequest(ctx, "hasJoined", err) }()

	log := logr.FromContextOrDiscard(ctx).WithName("verifyJoin")

	// Silent causes are the client's fault and only logged for debugging.
	reject := func(cause error) (*profile.GameProfile, error) {
		s.setState(ctx, Rejected)
		if errs.IsSilent(cause) {
			log.V(1).Info("rejected connecting client", "username", username, "reason", cause.Error())
		} else {
			log.Error(cause, "could not verify connecting client", "username", username)
		}
		return nil, fmt.Errorf("%w: %w", ErrRejected, cause)
	}

	if !validation.ValidPlayerName(username) {
		return reject(errs.NewSilentErr("invalid username %q", username))
	}

	hasJoinedURL := s.hasJoinedURLFn(hash, username, ip)
	log.V(1).Info("authenticating user against sessionserver", "url", hasJoinedURL)

	start := time.Now()
	body, err := s.transport.Get(ctx, hasJoinedURL)
	if err != nil {
		return reject(fmt.Errorf("error authenticating join with sessionserver: %w", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		// No Content: the client has not joined, potentially offline mode
		return reject(errs.NewSilentErr("sessionserver could not find user"))
	}

	var gp profile.GameProfile
	if err = json.Unmarshal(body, &gp); err != nil {
		return reject(fmt.Errorf("%w: error unmarshal GameProfile: %w", ErrMalformedResponse, err))
	}
	if err = gp.Validate(); err != nil {
		return reject(fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	if !strings.EqualFold(gp.Name, username) {
		return reject(errs.NewSilentErr("sessionserver returned profile %q for claimed username %q", gp.Name, username))
	}

	s.profile = &gp
	s.setState(ctx, Verified)
	log.V(1).Info("user authenticated against sessionserver",
		"profile", gp.Name,
		"uuid", gp.ID.Undashed(),
		"time", time.Since(start).String())
	return &gp, nil
}

// LoginAttempt is what a server received from a connecting client
// during the protocol's encryption step.
type LoginAttempt struct {
	// Username claimed in the login start packet.
	Username string
	// IP of the client, optional.
	IP string
	// ServerID sent in the encryption request, usually empty.
	ServerID string
	// VerifyToken sent in the encryption request.
	VerifyToken []byte
	// Received from the client's encryption response.
	EncryptedSharedSecret []byte
	EncryptedVerifyToken  []byte
}

// VerifiedLogin is the result of a successful VerifyLogin.
type VerifiedLogin struct {
	// Profile is the authoritative profile of the connecting client.
	Profile *profile.GameProfile
	// SharedSecret is the decrypted shared secret to enable the
	// connection cipher with. Never log or reuse it.
	SharedSecret []byte
}

// VerifyLogin performs the server side of the protocol's encryption step:
// it checks the verify token, decrypts the shared secret with key
// and verifies the join with VerifyJoin.
func (s *Session) VerifyLogin(ctx context.Context, key *ServerKey, attempt LoginAttempt) (*VerifiedLogin, error) {
	if err := s.expectState("verify login", Unauthenticated); err != nil {
		return nil, err
	}
	reject := func(cause error) (*VerifiedLogin, error) {
		s.setState(ctx, Rejected)
		return nil, fmt.Errorf("%w: %w", ErrRejected, cause)
	}
	if key == nil {
		return reject(errors.New("no server key"))
	}
	if len(attempt.VerifyToken) == 0 {
		return reject(errors.New("no verify token was sent"))
	}
	valid, err := key.VerifyToken(attempt.EncryptedVerifyToken, attempt.VerifyToken)
	if err != nil {
		return reject(err)
	}
	if !valid {
		return reject(errs.NewSilentErr("invalid verification token"))
	}
	secret, err := key.DecryptSharedSecret(attempt.EncryptedSharedSecret)
	if err != nil {
		return reject(err)
	}
	p, err := s.VerifyJoin(ctx, attempt.Username, attempt.ServerID, secret, key.PublicKey(), attempt.IP)
	if err != nil {
		return nil, err
	}
	return &VerifiedLogin{Profile: p, SharedSecret: secret}, nil
}
