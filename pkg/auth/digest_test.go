package auth

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestHexDigest(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"Notch", "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48"},
		{"jeb_", "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1"},
		{"simon", "88e16a1019277b15d58faf0541e11910eb756f6"},
		{"Ozelot", "5cfe44b70ee91ccccdb05b1ab8b328d5d8632cbf"},
		{"Cactus", "-43468c66aebd37d40b99237799da0772d04308"},
		{"Bobcat", "-da0143edc7918223fcc86951a195a5212c77c3f"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, HexDigest([]byte(tc.in)))
		})
	}
}

// bigIntHex is the reference rendering: the digest as signed big endian integer in base 16.
func bigIntHex(sum [sha1.Size]byte) string {
	n := new(big.Int).SetBytes(sum[:])
	if sum[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), sha1.Size*8))
	}
	return n.Text(16)
}

func TestHexDigest_MatchesSignedInteger(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		data := make([]byte, r.IntN(64))
		for j := range data {
			data[j] = byte(r.UintN(256))
		}
		require.Equal(t, bigIntHex(sha1.Sum(data)), HexDigest(data), "input %x", data)
	}
}

func TestSignedHex_EdgeCases(t *testing.T) {
	var zero [sha1.Size]byte
	assert.Equal(t, "0", signedHex(zero))

	var one [sha1.Size]byte
	one[sha1.Size-1] = 1
	assert.Equal(t, "1", signedHex(one))

	var minusOne [sha1.Size]byte
	for i := range minusOne {
		minusOne[i] = 0xff
	}
	assert.Equal(t, "-1", signedHex(minusOne))

	// most negative value has no positive counterpart of the same width
	var minValue [sha1.Size]byte
	minValue[0] = 0x80
	assert.Equal(t, "-8"+strings.Repeat("0", 39), signedHex(minValue))

	var maxValue [sha1.Size]byte
	maxValue[0] = 0x7f
	for i := 1; i < len(maxValue); i++ {
		maxValue[i] = 0xff
	}
	assert.Equal(t, "7f"+strings.Repeat("f", 38), signedHex(maxValue))

	for _, sum := range [][sha1.Size]byte{zero, one, minusOne, minValue, maxValue} {
		assert.Equal(t, bigIntHex(sum), signedHex(sum))
	}
}

func TestServerIDHash(t *testing.T) {
	secret := []byte("0123456789abcdef")
	key := []byte{0x30, 0x81, 0x9f, 0x30, 0x0d}

	// hashes the concatenation in order
	assert.Equal(t, HexDigest([]byte("server"+string(secret)+string(key))),
		ServerIDHash("server", secret, key))
	// an empty server id is what vanilla servers send
	assert.Equal(t, HexDigest(append(append([]byte{}, secret...), key...)),
		ServerIDHash("", secret, key))
	// deterministic
	assert.Equal(t, ServerIDHash("", secret, key), ServerIDHash("", secret, key))
	// differs if any input differs
	assert.NotEqual(t, ServerIDHash("", secret, key), ServerIDHash("", secret, key[:4]))
	// does not modify the inputs
	assert.Equal(t, []byte("0123456789abcdef"), secret)
}

func TestServerIDHash_Concurrent(t *testing.T) {
	want := HexDigest([]byte("jeb_"))
	var eg errgroup.Group
	for i := 0; i < 64; i++ {
		eg.Go(func() error {
			if got := ServerIDHash("je", []byte("b"), []byte("_")); got != want {
				return fmt.Errorf("got %s, want %s", got, want)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}
