package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// ServerIDHash returns the server hash Mojang's session server expects as "serverId"
// for the join and hasJoined requests.
//
// It is the HexDigest of serverID, sharedSecret and publicKey, written in that order.
// Both the joining client and the verifying server must compute it from the same inputs.
func ServerIDHash(serverID string, sharedSecret, publicKey []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(publicKey)
	var sum [sha1.Size]byte
	h.Sum(sum[:0])
	return signedHex(sum)
}

// HexDigest returns the Minecraft style SHA-1 hex digest of data.
//
// The 20 byte digest is read as a big endian two's complement integer
// and written in lowercase hex without leading zeros, prefixed with '-'
// when negative. E.g. "Notch" yields 4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48
// and "jeb_" yields -7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1.
func HexDigest(data []byte) string {
	return signedHex(sha1.Sum(data))
}

func signedHex(hash [sha1.Size]byte) string {
	var s strings.Builder
	// Check for negative hash
	if (hash[0] & 0x80) == 0x80 {
		twosComplement(hash[:])
		s.WriteByte('-')
	}
	digits := strings.TrimLeft(hex.EncodeToString(hash[:]), "0")
	if digits == "" {
		digits = "0"
	}
	s.WriteString(digits)
	return s.String()
}

// big endian!
func twosComplement(p []byte) []byte {
	carry := true
	for i := len(p) - 1; i >= 0; i-- {
		p[i] = ^p[i]
		if carry {
			carry = p[i] == 0xff
			p[i]++
		}
	}
	return p
}
