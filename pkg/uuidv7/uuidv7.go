// Package uuidv7 generates time-ordered record identifiers (RFC 9562).
// Every persisted row in the six relations gets one so that insertion
// order survives in the id itself.
package uuidv7

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	"github.com/google/uuid"
)

var randReader io.Reader = rand.Reader

// New returns a UUIDv7: 48-bit millisecond timestamp, then random bits,
// with version and variant stamped per the RFC.
func New() (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(randReader, b[:]); err != nil {
		return uuid.Nil, err
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))
	copy(b[:6], ts[2:])

	b[6] = (b[6] & 0x0f) | 0x70
	b[8] = (b[8] & 0x3f) | 0x80

	return uuid.FromBytes(b[:])
}

// NewString is New rendered in canonical form.
func NewString() (string, error) {
	u, err := New()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
