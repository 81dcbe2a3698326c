package uuidv7

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_VersionAndVariant(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if u.Version() != 7 {
		t.Fatalf("version=%d", u.Version())
	}
	if v := u[8] >> 6; v != 0b10 {
		t.Fatalf("variant bits=%b", v)
	}
}

func TestNewString_Ordering(t *testing.T) {
	prev := ""
	for i := 0; i < 32; i++ {
		s, err := NewString()
		if err != nil {
			t.Fatal(err)
		}
		// Millisecond prefix is non-decreasing within one process.
		if prev != "" && strings.Compare(s[:8], prev[:8]) < 0 {
			t.Fatalf("timestamp prefix went backwards: %s then %s", prev, s)
		}
		prev = s
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNew_ReaderError(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	defer func() { randReader = orig }()
	if _, err := New(); err == nil {
		t.Fatal("expected error")
	}
}
