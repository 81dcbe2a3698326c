package action

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"sync"
	"time"
)

var tokenRandReader io.Reader = rand.Reader

// newToken returns the caller-visible token and the sha256 digest that
// gets stored. The plaintext token never touches the store.
func newToken() (token string, digest string, err error) {
	var b [32]byte
	if _, err := tokenRandReader.Read(b[:]); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b[:])
	sum := sha256.Sum256([]byte(token))
	return token, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func digestOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// binding pins a pending confirmation to the exact request that opened
// it. A token replayed by another user, organization or action misses.
type binding struct {
	OrgID    string
	UserID   string
	EntityID string
	ActionID string
}

type pending struct {
	binding   binding
	expiresAt time.Time
}

// ConfirmationStore holds open confirmations in memory, keyed by token
// digest. Expired entries are swept inline; consumption deletes the
// entry under the same lock, so a token spends exactly once even when
// confirms race.
type ConfirmationStore struct {
	mu       sync.Mutex
	byDigest map[string]pending
	ttl      time.Duration
	now      func() time.Time
}

func NewConfirmationStore(ttl time.Duration) *ConfirmationStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ConfirmationStore{
		byDigest: map[string]pending{},
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *ConfirmationStore) Issue(b binding) (string, error) {
	token, digest, err := newToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.byDigest[digest] = pending{binding: b, expiresAt: now.Add(s.ttl)}
	return token, nil
}

// Consume spends the token if it is live and bound to b.
func (s *ConfirmationStore) Consume(token string, b binding) bool {
	if token == "" {
		return false
	}
	digest := digestOf(token)
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	p, ok := s.byDigest[digest]
	if !ok || p.binding != b {
		return false
	}
	delete(s.byDigest, digest)
	return true
}

func (s *ConfirmationStore) sweepLocked(now time.Time) {
	for d, p := range s.byDigest {
		if now.After(p.expiresAt) {
			delete(s.byDigest, d)
		}
	}
}
