package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
)

const (
	// SharedSecretSize is the size of the shared secret in bytes.
	SharedSecretSize = 16
	// EncryptedSize is the size of data encrypted with the server's 1024 bit public key.
	EncryptedSize = 128
)

// KeyExchange produces the artifacts of the protocol's encryption step:
// the shared secret and its RSA encrypted form.
//
// The zero value uses crypto/rand.Reader. A KeyExchange is safe for
// concurrent use if its random source is.
type KeyExchange struct {
	// Rand is the random source for shared secrets and padding.
	// If nil, crypto/rand.Reader is used.
	Rand io.Reader
}

// DefaultKeyExchange is the KeyExchange used by the package level functions.
var DefaultKeyExchange = &KeyExchange{}

func (k *KeyExchange) rand() io.Reader {
	if k == nil || k.Rand == nil {
		return rand.Reader
	}
	return k.Rand
}

// GenerateSharedSecret returns a new random shared secret of SharedSecretSize bytes.
//
// A failing random source is not recoverable in-process, the returned error wraps ErrRandomSource.
func (k *KeyExchange) GenerateSharedSecret() ([]byte, error) {
	secret := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(k.rand(), secret); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return secret, nil
}

// EncryptRSA encrypts plaintext with the DER encoded server public key
// using PKCS #1 v1.5 padding. It is used for the shared secret and the verify token.
//
// The ciphertext is always EncryptedSize bytes, anything else is reported as
// ErrEncryptionFailed since it would silently break the encrypted connection.
func (k *KeyExchange) EncryptRSA(publicKeyDER, plaintext []byte) ([]byte, error) {
	pub, err := ParsePublicKey(publicKeyDER)
	if err != nil {
		return nil, err
	}
	ciphertext, err := rsa.EncryptPKCS1v15(k.rand(), pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	if len(ciphertext) != EncryptedSize {
		return nil, fmt.Errorf("%w: got %d bytes of ciphertext, expected %d (key size %d bits)",
			ErrEncryptionFailed, len(ciphertext), EncryptedSize, pub.N.BitLen())
	}
	return ciphertext, nil
}

// ParsePublicKey parses a DER encoded RSA public key as sent in the encryption request.
// The key is expected in X.509 SubjectPublicKeyInfo form, PKCS #1 is accepted as well.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	if len(der) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPublicKey)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		pub, pkcs1Err := x509.ParsePKCS1PublicKey(der)
		if pkcs1Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		return pub, nil
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected RSA key, got %T", ErrInvalidPublicKey, key)
	}
	return pub, nil
}

// GenerateSharedSecret returns a new shared secret using DefaultKeyExchange.
func GenerateSharedSecret() ([]byte, error) {
	return DefaultKeyExchange.GenerateSharedSecret()
}

// EncryptRSA encrypts plaintext using DefaultKeyExchange.
func EncryptRSA(publicKeyDER, plaintext []byte) ([]byte, error) {
	return DefaultKeyExchange.EncryptRSA(publicKeyDER, plaintext)
}
