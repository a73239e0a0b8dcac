package auth

import (
	"errors"
	"fmt"
	"net/url"

	"go.minekube.com/yggdrasil/pkg/util/profile"
)

const (
	// DefaultAuthServerURL is the base url of Mojang's authentication server.
	DefaultAuthServerURL = "https://authserver.mojang.com"
	// DefaultSessionServerURL is the base url of Mojang's session server.
	DefaultSessionServerURL = "https://sessionserver.mojang.com"

	joinPath      = "/session/minecraft/join"
	hasJoinedPath = "/session/minecraft/hasJoined"
)

const defaultHasJoinedEndpoint = DefaultSessionServerURL + hasJoinedPath

var defaultHasJoinedBaseURL, _ = url.Parse(defaultHasJoinedEndpoint)

// HasJoinedURLFn returns the url to authenticate a
// joining online mode user. Note that userIP is optional.
// See DefaultHasJoinedURL for the default implementation.
type HasJoinedURLFn func(serverID, username, userIP string) string

// DefaultHasJoinedURL returns the default hasJoined URL for the given serverID and username.
// The userIP is optional.
func DefaultHasJoinedURL(serverID, username, userIP string) string {
	return buildHasJoinedURL(defaultHasJoinedBaseURL, serverID, username, userIP)
}

// CustomHasJoinedURL returns a HasJoinedURLFn that uses the given baseURL instead of the default official Mojang API.
func CustomHasJoinedURL(baseURL *url.URL) HasJoinedURLFn {
	if baseURL == nil {
		baseURL = defaultHasJoinedBaseURL
	}
	return func(serverID, username, userIP string) string {
		return buildHasJoinedURL(baseURL, serverID, username, userIP)
	}
}

// buildHasJoinedURL builds the hasJoined URL for the given baseURL.
func buildHasJoinedURL(baseURL *url.URL, serverID, username, userIP string) string {
	query := url.Values{}
	query.Set("serverId", serverID)
	query.Set("username", username)
	if userIP != "" {
		query.Set("ip", userIP)
	}
	return baseURL.ResolveReference(&url.URL{RawQuery: query.Encode()}).String()
}

// Agent identifies the game an authenticate request is for.
type Agent struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// MinecraftAgent is the agent sent with every authenticate request.
var MinecraftAgent = Agent{Name: "Minecraft", Version: 1}

// Tokens are the tokens of an authenticated session.
type Tokens struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
}

// User is the account returned when the user was requested.
type User struct {
	ID         string             `json:"id"`
	Username   string             `json:"username"`
	Properties []profile.Property `json:"properties,omitempty"`
}

type authenticateRequest struct {
	Agent       Agent  `json:"agent"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientToken string `json:"clientToken,omitempty"`
	RequestUser bool   `json:"requestUser"`
}

type refreshRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
	RequestUser bool   `json:"requestUser"`
}

type validateRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
}

type invalidateRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
}

type signoutRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type joinRequest struct {
	AccessToken     string `json:"accessToken"`
	SelectedProfile string `json:"selectedProfile"` // undashed uuid
	ServerID        string `json:"serverId"`
}

// authenticationResponse is the response of the authenticate and refresh requests.
type authenticationResponse struct {
	AccessToken       string                `json:"accessToken"`
	ClientToken       string                `json:"clientToken"`
	SelectedProfile   *profile.GameProfile  `json:"selectedProfile"`
	AvailableProfiles []profile.GameProfile `json:"availableProfiles"`
	User              *User                 `json:"user"`
}

func (r *authenticationResponse) validate(requireProfile bool) error {
	var missing []error
	if r.AccessToken == "" {
		missing = append(missing, errors.New("missing accessToken"))
	}
	if r.ClientToken == "" {
		missing = append(missing, errors.New("missing clientToken"))
	}
	if r.SelectedProfile != nil {
		if err := r.SelectedProfile.Validate(); err != nil {
			missing = append(missing, fmt.Errorf("selectedProfile: %w", err))
		}
	} else if requireProfile {
		missing = append(missing, errors.New("missing selectedProfile"))
	}
	if len(missing) != 0 {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, errors.Join(missing...))
	}
	return nil
}

// EncryptionRequest is the data of the server's encryption request
// a client needs to answer it.
type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte // ASN.1 DER form encoded
	VerifyToken []byte
}

// EncryptionResponse contains the artifacts of the client side key exchange.
type EncryptionResponse struct {
	// SharedSecret is the plain shared secret to enable the
	// connection cipher with. Never log or reuse it.
	SharedSecret []byte
	// EncryptedSharedSecret is sent to the server.
	EncryptedSharedSecret []byte
	// EncryptedVerifyToken is sent to the server.
	EncryptedVerifyToken []byte
	// ServerIDHash is the hash that was posted to the session server.
	ServerIDHash string
}

func endpoint(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: must be absolute", base)
	}
	return u.JoinPath(path).String(), nil
}
