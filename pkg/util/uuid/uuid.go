package uuid

import (
	"encoding/hex"
	"fmt"
	"strconv"

	guuid "github.com/google/uuid"
)

type UUID guuid.UUID

// Empty UUID, all zeros
var Nil = UUID(guuid.Nil)

// String returns the string form of uuid,
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx , or "" if uuid is invalid.
func (i UUID) String() string {
	return guuid.UUID(i).String()
}

// Undashed returns the undashed string form of the uuid.
// This is the form used by the Mojang authentication and session servers.
func (i UUID) Undashed() string {
	return hex.EncodeToString(i[:])
}

// MarshalJSON encodes the uuid in its undashed form as Mojang expects it.
func (i UUID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.Undashed())), nil
}
func (i *UUID) UnmarshalJSON(b []byte) (err error) {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("expected quoted uuid, but got %s: %w", b, err)
	}
	*i, err = Parse(s)
	return
}

// Parse decodes s into a UUID or returns an error.  Both the standard UUID
// forms of xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx and
// urn:uuid:xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx are decoded as well as the
// Microsoft encoding {xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx} and the raw hex
// encoding: xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx.
func Parse(s string) (UUID, error) {
	uuid, err := guuid.Parse(s)
	return UUID(uuid), err
}

// ParseUndashed decodes the 32 character hex form only.
func ParseUndashed(s string) (UUID, error) {
	if len(s) != 32 {
		return Nil, fmt.Errorf("invalid undashed uuid length %d: %q", len(s), s)
	}
	var id UUID
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return Nil, fmt.Errorf("invalid undashed uuid %q: %w", s, err)
	}
	return id, nil
}

// FromBytes creates a new UUID from a byte slice. Returns an error if the slice
// does not have a length of 16. The bytes are copied from the slice.
func FromBytes(b []byte) (UUID, error) {
	uuid, err := guuid.FromBytes(b)
	return UUID(uuid), err
}

// New creates a new random UUID or panics.
func New() UUID { return UUID(guuid.New()) }

// NewRandom creates a new random UUID or returns an error
// if the random source could not be read.
func NewRandom() (UUID, error) {
	uuid, err := guuid.NewRandom()
	return UUID(uuid), err
}
