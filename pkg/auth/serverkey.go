package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"fmt"
	"io"
)

// DefaultPrivateKeyBits is the default bit size of a generated private key.
const DefaultPrivateKeyBits = 1024

// VerifyTokenSize is the size of a generated verify token.
const VerifyTokenSize = 4

// ServerKey is the server side of the key exchange.
// It holds the keypair whose public key is sent to joining clients in the
// encryption request and decrypts what they send back.
type ServerKey struct {
	private *rsa.PrivateKey
	public  []byte // ASN.1 DER form encoded
	rand    io.Reader
}

// ServerKeyOptions to create a new ServerKey.
type ServerKeyOptions struct {
	// The servers private key.
	// If none is set, a new one will be generated.
	PrivateKey *rsa.PrivateKey
	// PrivateKey is not set,
	// the bit size of a generated private key.
	// The default is DefaultPrivateKeyBits.
	PrivateKeyBits int
	// Random source for key generation and verify tokens.
	// If nil, crypto/rand.Reader is used.
	Rand io.Reader
}

// NewServerKey returns a new ServerKey.
func NewServerKey(options ServerKeyOptions) (*ServerKey, error) {
	random := options.Rand
	if random == nil {
		random = rand.Reader
	}
	var err error
	private := options.PrivateKey
	if private == nil {
		bits := options.PrivateKeyBits
		if bits == 0 {
			bits = DefaultPrivateKeyBits
		}
		private, err = rsa.GenerateKey(random, bits)
		if err != nil {
			return nil, fmt.Errorf("error generate private key: %w", err)
		}
	}

	public, err := x509.MarshalPKIXPublicKey(private.Public())
	if err != nil {
		return nil, fmt.Errorf("error form public key to PKIX, ASN.1 DER: %w", err)
	}

	private.Precompute()

	return &ServerKey{
		private: private,
		public:  public,
		rand:    random,
	}, nil
}

// PublicKey returns the public key encoded in ASN.1 DER form.
func (k *ServerKey) PublicKey() []byte {
	return k.public
}

// NewVerifyToken returns a random verify token to send in the encryption request.
func (k *ServerKey) NewVerifyToken() ([]byte, error) {
	token := make([]byte, VerifyTokenSize)
	if _, err := io.ReadFull(k.rand, token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return token, nil
}

// VerifyToken decrypts the verify token sent by a joining client and
// reports whether it equals the token sent in the encryption request.
func (k *ServerKey) VerifyToken(encryptedVerifyToken, actualVerifyToken []byte) (equal bool, err error) {
	decryptedVerifyToken, err := rsa.DecryptPKCS1v15(k.rand, k.private, encryptedVerifyToken)
	if err != nil {
		return false, fmt.Errorf("error decrypt verify token: %w", err)
	}
	return subtle.ConstantTimeCompare(decryptedVerifyToken, actualVerifyToken) == 1, nil
}

// DecryptSharedSecret decrypts the shared secret sent by a joining client.
func (k *ServerKey) DecryptSharedSecret(encrypted []byte) (decrypted []byte, err error) {
	decrypted, err = rsa.DecryptPKCS1v15(k.rand, k.private, encrypted)
	if err != nil {
		return nil, fmt.Errorf("error decrypt shared secret: %w", err)
	}
	if len(decrypted) != SharedSecretSize {
		return nil, fmt.Errorf("decrypted shared secret has %d bytes, expected %d",
			len(decrypted), SharedSecretSize)
	}
	return decrypted, nil
}
